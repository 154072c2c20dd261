// Package router registers HTTP routes, grouped by audience: public
// endpoints for students, the auth endpoints, and the JWT-protected
// teacher console.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/qr-attendance/internal/config"
	"github.com/iliyamo/qr-attendance/internal/handler"
	"github.com/iliyamo/qr-attendance/internal/middleware"
)

// RegisterPublic mounts the endpoints students reach without an
// account.  The submission endpoint is rate limited per IP; status
// responses are cached briefly because a whole classroom polls the
// same session while waiting for the code.
func RegisterPublic(e *echo.Echo, a *handler.AttendanceHandler, s *handler.SessionHandler,
	rl config.RateLimitConfig, cc config.CacheConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1")
	g.POST("/attendance/submit", a.Submit, middleware.RateLimit(rl, rdb))
	g.GET("/sessions/:id/status", s.Status, middleware.CacheGET(cc, rdb))
}

// RegisterAuth mounts the account endpoints under /v1/auth.  Only /me
// requires a token.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole("TEACHER", "STUDENT"))
}
