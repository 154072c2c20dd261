// Package handler contains the HTTP handlers of the attendance
// service.  Handlers bind and validate input, call into repositories
// or the attendance service, and translate sentinel errors into
// status codes with machine-readable reason codes.
package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user id that JWTAuth stored in
// the context.  JWT numeric claims arrive as float64 after parsing, so
// several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}
