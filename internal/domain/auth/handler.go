package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"photoshare/internal/domain"
	"photoshare/internal/metrics"
	"photoshare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const RefreshCookieName = "refresh_token"

// SessionService is what the HTTP layer needs from Service.
type SessionService interface {
	Signup(ctx context.Context, req SignupRequest, meta RequestMeta) (*Session, error)
	Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*Session, error)
	Refresh(ctx context.Context, presented string, meta RequestMeta) (*RefreshResult, error)
	Logout(ctx context.Context, presented string) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	CurrentUser(ctx context.Context, userID string) (*UserView, error)
}

type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite string
	MaxAge   time.Duration
}

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service SessionService
	cookie  CookieOptions
	logger  *slog.Logger
}

func NewHandler(service SessionService, cookie CookieOptions, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, cookie: cookie, logger: logger}
}

// Signup creates an account and starts a session.
// @Summary		Sign up
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		body	body	SignupRequest	true	"payload"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{}
// @Router		/auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.service.Signup(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.ObserveAuth("signup", "invalid")
			response.FieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(verr), verr.Field)
		case errors.Is(err, ErrEmailTaken):
			metrics.ObserveAuth("signup", "conflict")
			response.Error(c, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
		case errors.Is(err, ErrUsernameTaken):
			metrics.ObserveAuth("signup", "conflict")
			response.Error(c, http.StatusConflict, "USERNAME_TAKEN", "Username already taken")
		default:
			h.internalError(c, "signup", "SIGNUP_FAILED", "Failed to sign up", err)
		}
		return
	}

	metrics.ObserveAuth("signup", "ok")
	h.setRefreshCookie(c, session.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"accessToken": session.AccessToken,
		"user":        session.User,
	})
}

// Login starts a session for an email or username.
// @Summary		Log in
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		body	body	LoginRequest	true	"payload"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.service.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.ObserveAuth("login", "invalid")
			response.FieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(verr), verr.Field)
		case errors.Is(err, ErrInvalidCredentials):
			metrics.ObserveAuth("login", "rejected")
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		default:
			h.internalError(c, "login", "LOGIN_FAILED", "Failed to login", err)
		}
		return
	}

	metrics.ObserveAuth("login", "ok")
	h.setRefreshCookie(c, session.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"accessToken": session.AccessToken,
		"user":        session.User,
	})
}

// Refresh rotates the refresh cookie and returns a new access token.
// @Summary		Refresh session
// @Tags		Auth
// @Produce		json
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	presented, _ := c.Cookie(RefreshCookieName)
	if strings.TrimSpace(presented) == "" {
		metrics.ObserveAuth("refresh", "missing")
		response.Error(c, http.StatusUnauthorized, "NO_REFRESH", "No refresh")
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), presented, requestMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNoRefresh):
			metrics.ObserveAuth("refresh", "missing")
			response.Error(c, http.StatusUnauthorized, "NO_REFRESH", "No refresh")
		case errors.Is(err, ErrUnauthorized):
			metrics.ObserveAuth("refresh", "rejected")
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		default:
			h.internalError(c, "refresh", "REFRESH_FAILED", "Failed to refresh session", err)
		}
		return
	}

	metrics.ObserveAuth("refresh", "ok")
	h.setRefreshCookie(c, result.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"accessToken": result.AccessToken,
	})
}

// Logout revokes the current refresh token and clears the cookie.
// @Summary		Log out
// @Tags		Auth
// @Success		200	{object}	map[string]interface{}
// @Router		/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	presented, _ := c.Cookie(RefreshCookieName)
	h.clearRefreshCookie(c)

	if err := h.service.Logout(c.Request.Context(), presented); err != nil {
		h.internalError(c, "logout", "LOGOUT_FAILED", "Failed to logout", err)
		return
	}

	metrics.ObserveAuth("logout", "ok")
	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// LogoutAll ends every session of the authenticated caller.
// @Summary		Log out everywhere
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/logout-all [post]
func (h *Handler) LogoutAll(c *gin.Context) {
	identity, ok := domain.IdentityFromContext(c.Request.Context())
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}
	h.clearRefreshCookie(c)

	n, err := h.service.LogoutAll(c.Request.Context(), identity.UserID)
	if err != nil {
		h.internalError(c, "logout_all", "LOGOUT_FAILED", "Failed to logout", err)
		return
	}

	metrics.ObserveAuth("logout_all", "ok")
	response.Success(c, http.StatusOK, gin.H{"ok": true, "revoked": n})
}

// Me returns the caller resolved by the access-token gate.
// @Summary		Current user
// @Tags		Auth
// @Security	BearerAuth
// @Produce		json
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	identity, ok := domain.IdentityFromContext(c.Request.Context())
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return
		}
		h.internalError(c, "me", "ME_FAILED", "Failed to load user", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// internalError logs the cause without request input; the client only
// sees a generic message.
func (h *Handler) internalError(c *gin.Context, op, code, message string, err error) {
	metrics.ObserveAuth(op, "error")
	h.logger.Error("auth request failed",
		slog.String("op", op),
		slog.String("request_id", c.GetString("request_id")),
		slog.String("error", err.Error()),
	)
	response.Error(c, http.StatusInternalServerError, code, message)
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(RefreshCookieName, token, int(h.cookie.MaxAge.Seconds()), h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(RefreshCookieName, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
}

func requestMeta(c *gin.Context) RequestMeta {
	return RequestMeta{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

func validationMessage(err *ValidationError) string {
	switch err.Reason {
	case "required":
		return err.Field + " is required"
	case "emailish":
		return "email must look like name@domain.tld"
	case "min":
		if err.Field == "password" {
			return "password must be at least 8 characters"
		}
		return err.Field + " is too short"
	case "max":
		if err.Field == "password" {
			return "password must be at most 72 bytes"
		}
		return err.Field + " is too long"
	case "excludes":
		return "username must not contain @"
	default:
		return err.Field + " is invalid"
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
