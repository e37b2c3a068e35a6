package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/response"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
)

// RecoveryConfig configures Recover.
type RecoveryConfig struct {
	// DisablePrintStack omits the goroutine stack from the panic log entry
	DisablePrintStack bool
}

// Recover returns middleware that turns a handler panic into a logged 500 response.
// The server keeps serving subsequent requests.
func Recover(log *logger.Logger) echo.MiddlewareFunc {
	return RecoverWithConfig(log, RecoveryConfig{})
}

// RecoverWithConfig returns recovery middleware with custom configuration.
func RecoverWithConfig(log *logger.Logger, config RecoveryConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				var panicMsg string
				if e, ok := r.(error); ok {
					panicMsg = e.Error()
				} else {
					panicMsg = fmt.Sprintf("%v", r)
				}

				event := log.Error().
					Str("request_id", GetRequestID(c)).
					Str("panic", panicMsg)
				if !config.DisablePrintStack {
					event = event.Str("stack", string(debug.Stack()))
				}
				event.Msg("Panic recovered")

				// Never leak internals to the client
				if !c.Response().Committed {
					err = response.InternalServerError(c)
				}
			}()
			return next(c)
		}
	}
}
