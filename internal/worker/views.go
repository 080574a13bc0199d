package worker

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmehdipour/agenthub/internal/metrics"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ViewHandler appends one library_view row per view event.
type ViewHandler struct {
	Views repository.ViewsRepository
	Tx    *repository.TxRunner
	Log   *zap.Logger

	now func() time.Time
}

func NewViewHandler(views repository.ViewsRepository, tx *repository.TxRunner, log *zap.Logger) *ViewHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ViewHandler{Views: views, Tx: tx, Log: log, now: time.Now}
}

var _ Handler = (*ViewHandler)(nil)

func (h *ViewHandler) Handle(ctx context.Context, payload []byte) error {
	ev, err := model.DecodeView(payload)
	if err != nil {
		return err
	}

	row := model.LibraryView{
		EventID:  sql.NullString{String: ev.EventID, Valid: ev.EventID != ""},
		UserID:   ev.ActorID,
		ItemID:   ev.SubjectID,
		ViewedAt: ev.Time(h.now()),
	}
	return h.Tx.Run(ctx, func(tx *sqlx.Tx) error {
		inserted, err := h.Views.Insert(ctx, tx, row)
		if err == nil && !inserted {
			h.Log.Debug("view_duplicate_ignored", zap.String("event_id", ev.EventID))
		}
		return err
	})
}

// CountRetries returns a TxRunner.OnRetry hook that counts and logs retries
// under the given label.
func CountRetries(label string, log *zap.Logger) func(attempt int, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	return func(attempt int, err error) {
		metrics.CommitRetriesTotal.WithLabelValues(label).Inc()
		log.Debug("commit_retry", zap.String("queue", label), zap.Int("attempt", attempt+1), zap.Error(err))
	}
}
