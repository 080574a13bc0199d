package model

import (
	"database/sql"
	"time"
)

// LibraryView is one append-only row per drained view event.
type LibraryView struct {
	ID       int64          `db:"id"`
	EventID  sql.NullString `db:"event_id"`
	UserID   int64          `db:"user_id"`
	ItemID   int64          `db:"item_id"`
	ViewedAt time.Time      `db:"viewed_at"`
}

// LibraryProgress is the last known playback position of a user on an item.
type LibraryProgress struct {
	ID        int64     `db:"id" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ItemID    int64     `db:"item_id" json:"item_id"`
	Position  int64     `db:"position" json:"position"` // seconds
	Duration  int64     `db:"duration" json:"duration"` // seconds
	Percent   float64   `db:"percent" json:"percent"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Percent returns position/duration as a percentage clamped to [0, 100].
func Percent(position, duration int64) float64 {
	if duration <= 0 || position <= 0 {
		return 0
	}
	p := float64(position) / float64(duration) * 100
	if p > 100 {
		return 100
	}
	return p
}

// ItemAggregate carries the per-item counters recommendation scoring needs.
type ItemAggregate struct {
	ItemID    int64   `db:"item_id"`
	Title     string  `db:"title"`
	Views     int64   `db:"views"`
	AvgRating float64 `db:"avg_rating"`
	AvgQuiz   float64 `db:"avg_quiz"`
	ItemBias  float64 `db:"item_bias"`
	TeamBias  float64 `db:"team_bias"`
	UserBias  float64 `db:"user_bias"`
}

// DailyViews is one row of the view report.
type DailyViews struct {
	Day    time.Time `db:"day" json:"day"`
	ItemID int64     `db:"item_id" json:"item_id"`
	Views  uint64    `db:"views" json:"views"`
}
