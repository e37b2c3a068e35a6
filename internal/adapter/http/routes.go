package http

import (
	nethttp "net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the rebooking API routes.
// metrics is served on /metrics when non-nil.
func RegisterRoutes(e *echo.Echo, h *RebookingHandler, metrics nethttp.Handler) {
	// Unversioned operational endpoints
	e.GET("/health", h.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	api := e.Group("/api/v1")

	rebookings := api.Group("/rebookings")
	rebookings.POST("", h.Rebook)
	rebookings.POST("/preview", h.Preview)
}
