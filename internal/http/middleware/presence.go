package middleware

import (
	"context"

	"github.com/jmehdipour/agenthub/internal/presence"
	echo "github.com/labstack/echo/v4"
)

// PresenceMiddleware marks the authenticated user active on every request.
// Failures never affect the request.
func PresenceMiddleware(tr *presence.Tracker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, ok := UserIDFromCtx(c); ok {
				if err := tr.MarkActive(context.WithoutCancel(c.Request().Context()), id); err != nil {
					c.Logger().Debugf("presence mark active user=%d: %v", id, err)
				}
			}
			return next(c)
		}
	}
}
