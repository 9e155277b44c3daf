package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticketing/internal/monitoring"
)

// Metrics counts every handled request by method, matched route and
// status code.  The matched route template is used, not the raw URL, so
// the label set stays bounded.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			monitoring.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
