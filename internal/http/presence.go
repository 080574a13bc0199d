package http

import (
	"net/http"

	"github.com/jmehdipour/agenthub/internal/http/middleware"
	"github.com/jmehdipour/agenthub/internal/presence"
	"github.com/jmehdipour/agenthub/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func userPresenceHandler(tr *presence.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		}
		st, err := tr.Status(c.Request().Context(), id)
		if err != nil {
			c.Logger().Errorf("presence status user=%d: %v", id, err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "presence unavailable"})
		}
		return c.JSON(http.StatusOK, st)
	}
}

// teamPresenceHandler lists the presence of everyone sharing a team with the caller.
func teamPresenceHandler(users repository.UsersRepository, tr *presence.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		ids, err := users.ListTeammates(c.Request().Context(), userID)
		if err != nil {
			c.Logger().Errorf("list teammates: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		out, err := tr.StatusMany(c.Request().Context(), ids)
		if err != nil {
			c.Logger().Errorf("presence status: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "presence unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(out), "results": out})
	}
}
