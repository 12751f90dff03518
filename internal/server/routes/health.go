package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthRoutes registers unauthenticated liveness endpoints.
type HealthRoutes struct{}

func (HealthRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/health", handleHealth)
	s.GET("/_healthz", handleHealth)
}

func handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
