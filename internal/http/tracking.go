package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/agenthub/internal/http/middleware"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/service/tracking"
	echo "github.com/labstack/echo/v4"
)

func viewHandler(svc *tracking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		itemID, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		}

		eventID, recorded, err := svc.RecordView(c.Request().Context(), userID, itemID)
		if err != nil {
			if errors.Is(err, tracking.ErrQueueUnavailable) {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "event queue unavailable"})
			}
			if errors.Is(err, model.ErrMalformed) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
			}
			c.Logger().Errorf("record view: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}

		resp := map[string]any{"enqueued": recorded}
		if recorded {
			resp["event_id"] = eventID
		}
		return c.JSON(http.StatusAccepted, resp)
	}
}

type progressReq struct {
	Position *int64 `json:"position"`
	Duration *int64 `json:"duration"`
}

func progressHandler(svc *tracking.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		itemID, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		}

		var req progressReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.Position == nil || req.Duration == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "position and duration are required"})
		}

		err := svc.RecordProgress(c.Request().Context(), userID, itemID, *req.Position, *req.Duration)
		if err != nil {
			if errors.Is(err, model.ErrMalformed) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "position and duration must be non-negative"})
			}
			c.Logger().Errorf("record progress: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}
}

// getProgressHandler returns the caller's stored progress on an item. The
// row trails the producer by up to one scan interval.
func getProgressHandler(progress repository.ProgressRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		itemID, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		}

		p, err := progress.Get(c.Request().Context(), userID, itemID)
		if err != nil {
			c.Logger().Errorf("get progress: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{"progress": p})
	}
}
