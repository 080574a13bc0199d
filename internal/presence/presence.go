// Package presence tracks which users are online from their request activity.
package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Status is what other users see about someone's presence.
type Status struct {
	UserID   int64  `json:"id"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen,omitempty"` // "N min ago" / "N hr ago", offline only
}

type Tracker struct {
	rdb       *redis.Client
	onlineTTL time.Duration
	now       func() time.Time
}

func New(rdb *redis.Client, onlineTTL time.Duration) *Tracker {
	if onlineTTL <= 0 {
		onlineTTL = 60 * time.Second
	}
	return &Tracker{rdb: rdb, onlineTTL: onlineTTL, now: time.Now}
}

func onlineKey(id int64) string   { return "user:" + strconv.FormatInt(id, 10) + ":online" }
func lastSeenKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) + ":last_seen" }

// MarkActive sets the expiring online marker and the permanent last-seen stamp.
func (t *Tracker) MarkActive(ctx context.Context, userID int64) error {
	now := t.now().Unix()
	_, err := t.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, onlineKey(userID), now, t.onlineTTL)
		p.Set(ctx, lastSeenKey(userID), now, 0)
		return nil
	})
	return err
}

func (t *Tracker) Status(ctx context.Context, userID int64) (Status, error) {
	st := Status{UserID: userID, Status: StatusOffline}

	online, err := t.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return st, err
	}
	if online > 0 {
		st.Status = StatusOnline
		return st, nil
	}

	raw, err := t.rdb.Get(ctx, lastSeenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	seen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return st, fmt.Errorf("last_seen %q: %w", raw, err)
	}
	st.LastSeen = Ago(t.now().Unix() - seen)
	return st, nil
}

// StatusMany resolves several users; a lookup failure aborts the batch.
func (t *Tracker) StatusMany(ctx context.Context, userIDs []int64) ([]Status, error) {
	out := make([]Status, 0, len(userIDs))
	for _, id := range userIDs {
		st, err := t.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Ago renders an age in seconds as whole minutes under an hour, whole hours otherwise.
func Ago(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 3600 {
		return strconv.FormatInt(seconds/60, 10) + " min ago"
	}
	return strconv.FormatInt(seconds/3600, 10) + " hr ago"
}
