package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusOf maps an error returned by a handler to its HTTP status.
func statusOf(err error) int {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Kind.Status()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders errors as {error, detail?}. Causes of internal
// failures are only exposed as detail when exposeDetail is true.
func ErrorHandler(logger zerolog.Logger, exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusOf(err)
		body := ErrorBody{Error: http.StatusText(status)}

		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			body.Error = ae.Msg
			if ae.Err != nil && exposeDetail {
				body.Detail = ae.Err.Error()
			}
		case errors.As(err, &he):
			body.Error = fmt.Sprintf("%v", he.Message)
			if he.Internal != nil && exposeDetail {
				body.Detail = he.Internal.Error()
			}
		default:
			body.Error = "internal server error"
			if exposeDetail {
				body.Detail = err.Error()
			}
		}

		if status >= 500 {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}
