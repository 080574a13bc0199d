package http

import (
	"net/http"

	"github.com/jmehdipour/agenthub/internal/http/middleware"
	"github.com/jmehdipour/agenthub/internal/recommend"
	echo "github.com/labstack/echo/v4"
)

func recommendationsHandler(svc *recommend.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		limit := queryInt(c, "limit", 10, 1, 100)

		items, err := svc.For(c.Request().Context(), userID, limit)
		if err != nil {
			c.Logger().Errorf("recommendations: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"count":   len(items),
			"results": items,
		})
	}
}
