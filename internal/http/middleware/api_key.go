package middleware

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/rbac"
	"github.com/jmehdipour/agenthub/internal/repository"
	echo "github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxUser   = "user"
)

// UserIDFromCtx extracts the authenticated user id set by APIKeyMiddleware.
func UserIDFromCtx(c echo.Context) (int64, bool) {
	id, ok := c.Get(ctxUserID).(int64)
	return id, ok && id > 0
}

// UserFromCtx returns the authenticated user set by APIKeyMiddleware.
func UserFromCtx(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUser).(*model.User)
	return u, ok && u != nil
}

// APIKeyMiddleware authenticates requests using the X-API-Key header.
// On success it stores the user, its id and its role in the context.
// Disabled users are rejected like unknown keys.
func APIKeyMiddleware(users repository.UsersRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			u, err := users.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				c.Logger().Errorf("api key lookup: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if u == nil || u.Disabled {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set(ctxUser, u)
			c.Set(ctxUserID, u.ID)
			c.Set(rbac.RoleKey, u.Role)
			return next(c)
		}
	}
}
