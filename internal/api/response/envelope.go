// Package response renders every API outcome in the uniform envelope
//
//	{"success": bool, "data" | "message": ..., "statusCode": int}
//
// Handlers return their result through Handle; faults travel as errors to the
// echo.HTTPErrorHandler built by NewHTTPErrorHandler.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the canonical body of every JSON response.
type Envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// Func is a handler that reports its intended status and payload instead of
// writing the response itself.
type Func func(c echo.Context) (int, any, error)

// Handle adapts fn to an echo.HandlerFunc. Errors are returned untouched so the
// HTTP error handler can map them. A zero status means 200.
func Handle(fn Func) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, data, err := fn(c)
		if err != nil {
			return err
		}
		if code == 0 {
			code = http.StatusOK
		}
		return c.JSON(code, Envelope{
			Success:    code < http.StatusBadRequest,
			Data:       data,
			StatusCode: code,
		})
	}
}

func failure(code int, message string) Envelope {
	return Envelope{Success: false, Message: message, StatusCode: code}
}
