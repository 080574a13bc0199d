package rbac

import (
	"net/http"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/labstack/echo/v4"
)

// RoleKey is the echo context key the auth middleware stores the caller's role under.
const RoleKey = "role"

// Require rejects requests whose role lacks capability with 403.
func (p *Policy) Require(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(model.Role)
			if !p.Can(role, capability) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "capability": capability})
			}
			return next(c)
		}
	}
}
