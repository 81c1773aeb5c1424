package auth

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the session endpoints. guards run before
// signup and login only.
func (h *Handler) RegisterPublicRoutes(api *gin.RouterGroup, guards ...gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", withGuards(guards, h.Signup)...)
		authGroup.POST("/login", withGuards(guards, h.Login)...)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/auth/me", h.Me)
	protected.POST("/auth/logout-all", h.LogoutAll)
}

func withGuards(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, h)
}
