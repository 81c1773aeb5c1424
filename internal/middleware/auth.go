package middleware

import (
	"net/http"
	"strings"

	"photoshare/internal/domain"
	"photoshare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenVerifier resolves an access token to its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth rejects requests without a valid Bearer access token.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		attachIdentity(c, userID)
		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a valid token is sent
// and lets every request through.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if userID, err := verifier.Verify(token); err == nil {
				attachIdentity(c, userID)
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the identity attached by RequireAuth or OptionalAuth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	return domain.IdentityFromContext(c.Request.Context())
}

func attachIdentity(c *gin.Context, userID string) {
	c.Set("user_id", userID)
	c.Request = c.Request.WithContext(domain.ContextWithIdentity(c.Request.Context(), domain.Identity{UserID: userID}))
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
