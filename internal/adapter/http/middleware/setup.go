package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
)

// Setup registers all middleware on the Echo instance in the correct order:
//  1. RequestID, so every later log line carries the ID
//  2. RequestLogger, which also sees the status of recovered panics
//  3. Recover, closest to the handlers
//
// This function should be called before registering routes.
func Setup(e *echo.Echo, log *logger.Logger) {
	SetupWithConfig(e, log, RecoveryConfig{})
}

// SetupWithConfig registers middleware with custom recovery configuration.
func SetupWithConfig(e *echo.Echo, log *logger.Logger, recoveryConfig RecoveryConfig) {
	if log == nil {
		log = logger.Nop()
	}
	e.Use(RequestID())
	e.Use(RequestLogger(log))
	e.Use(RecoverWithConfig(log, recoveryConfig))
}
