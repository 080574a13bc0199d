package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/agenthub/internal/presentation"
	echo "github.com/labstack/echo/v4"
)

func gotoSlideHandler(m *presentation.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		presID, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid presentation id"})
		}
		slideID, ok := pathID(c, "slide")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid slide id"})
		}
		if err := m.Goto(c.Request().Context(), presID, slideID); err != nil {
			c.Logger().Errorf("goto slide: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "presentation state unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]any{"ok": true, "slide": slideID})
	}
}

func currentSlideHandler(m *presentation.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		presID, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid presentation id"})
		}
		slideID, ok, err := m.Current(c.Request().Context(), presID)
		if err != nil {
			c.Logger().Errorf("current slide: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "presentation state unavailable"})
		}
		if !ok {
			return c.JSON(http.StatusOK, map[string]any{"slide": nil})
		}
		return c.JSON(http.StatusOK, map[string]any{"slide": slideID})
	}
}

// slideStreamHandler pushes slide changes as server-sent events until the
// client goes away. The current slide, if any, is sent first.
func slideStreamHandler(m *presentation.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		presID, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid presentation id"})
		}

		ctx := c.Request().Context()
		updates, err := m.Subscribe(ctx, presID)
		if err != nil {
			c.Logger().Errorf("subscribe slides: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "presentation state unavailable"})
		}

		w := c.Response()
		w.Header().Set(echo.HeaderContentType, "text/event-stream")
		w.Header().Set(echo.HeaderCacheControl, "no-cache")
		w.Header().Set(echo.HeaderConnection, "keep-alive")
		w.WriteHeader(http.StatusOK)

		send := func(slideID int64) error {
			if _, err := fmt.Fprintf(w, "event: slide\ndata: %d\n\n", slideID); err != nil {
				return err
			}
			w.Flush()
			return nil
		}

		if cur, ok, err := m.Current(ctx, presID); err == nil && ok {
			if err := send(cur); err != nil {
				return nil
			}
		} else {
			w.Flush()
		}

		keepAlive := time.NewTicker(25 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return nil
				}
				w.Flush()
			case slideID, ok := <-updates:
				if !ok {
					return nil
				}
				if err := send(slideID); err != nil {
					return nil
				}
			}
		}
	}
}
