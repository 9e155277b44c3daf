// Package handler defines the HTTP handlers.  Handlers translate between
// JSON requests/responses and the repositories and services; sentinel
// errors from below map to status codes here and nowhere else.
package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticketing/internal/middleware"
)

// getUserID extracts the authenticated user's ID placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if v, ok := c.Get(middleware.CtxUserID).(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errors.New("missing user_id in context")
}

// pathID parses the named numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
