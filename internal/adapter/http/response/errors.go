package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// InvalidRequestBody writes a 400 Bad Request response for malformed request bodies.
func InvalidRequestBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, Failure(CodeInvalidRequest, MsgInvalidRequestBody, nil))
}

// ValidationError writes a 400 Bad Request response with validation error details.
func ValidationError(c echo.Context, details map[string]string) error {
	return c.JSON(http.StatusBadRequest, Failure(CodeValidationError, MsgValidationFailed, details))
}

// ValidationErrorWithMessage writes a 400 Bad Request response with a custom message.
func ValidationErrorWithMessage(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, Failure(CodeValidationError, message, nil))
}

// SessionBusy writes a 409 Conflict response for a run refused because the portal
// account was locked by another run.
func SessionBusy(c echo.Context, runID string) error {
	resp := Failure(CodeSessionBusy, MsgSessionBusy, nil)
	resp.Error.RunID = runID
	return c.JSON(http.StatusConflict, resp)
}

// InternalServerError writes a 500 Internal Server Error response.
func InternalServerError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, Failure(CodeInternalError, MsgInternalError, nil))
}
