package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/platform/metrics"
)

// Metrics records request counts and latency labelled by the route pattern,
// so path parameters do not explode label cardinality.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveHTTPRequest(c.Request().Method, route, strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}
