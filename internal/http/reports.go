package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jmehdipour/agenthub/internal/repository"
	echo "github.com/labstack/echo/v4"
)

const dayLayout = "2006-01-02"

// listDailyViewsHandler serves per-day view counts from ClickHouse.
// Query: item_id (optional), from/to as YYYY-MM-DD (default last 7 days), limit, offset.
func listDailyViewsHandler(chRepo repository.CHViewsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if chRepo == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "reports disabled"})
		}

		limit := queryInt(c, "limit", 50, 1, 1000)
		offset := queryInt(c, "offset", 0, 0, 1<<30)

		var itemID int64
		if v := c.QueryParam("item_id"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
			}
			itemID = n
		}

		to := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		from := to.AddDate(0, 0, -7)
		if v := c.QueryParam("from"); v != "" {
			t, err := time.Parse(dayLayout, v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid from"})
			}
			from = t
		}
		if v := c.QueryParam("to"); v != "" {
			t, err := time.Parse(dayLayout, v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid to"})
			}
			to = t.AddDate(0, 0, 1)
		}
		if !from.Before(to) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "from must not be after to"})
		}

		rows, err := chRepo.DailyViews(c.Request().Context(), itemID, from, to, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse daily views failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
