package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/qr-attendance/internal/handler"
	"github.com/iliyamo/qr-attendance/internal/middleware"
)

// RegisterTeacher mounts the teacher console under /v1.  Every route
// requires a valid JWT with the TEACHER role; ownership of individual
// sessions and classes is enforced inside the handlers.
func RegisterTeacher(e *echo.Echo, s *handler.SessionHandler, x *handler.ExportHandler,
	c *handler.ClassHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("TEACHER"),
	)

	g.POST("/sessions", s.Start)
	g.GET("/sessions/:id", s.Get)
	g.POST("/sessions/:id/stop", s.Stop)
	g.GET("/sessions/:id/qr", s.QR)
	g.GET("/sessions/:id/submissions", s.ListSubmissions)
	g.GET("/sessions/:id/export", x.CSV)

	g.POST("/classes", c.Create)
	g.GET("/classes", c.List)
	g.GET("/classes/:id", c.Get)
	g.PUT("/classes/:id/students", c.ReplaceStudents)
	g.DELETE("/classes/:id", c.Delete)
}
