package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformed marks a queue payload that can never be written, no matter how
// often it is retried.
var ErrMalformed = errors.New("malformed event")

// ViewEvent is the payload pushed to the library view queue.
type ViewEvent struct {
	EventID   string `json:"event_id,omitempty"` // ULID, idempotency key
	ActorID   int64  `json:"actor_id"`           // user id
	SubjectID int64  `json:"subject_id"`         // library item id
	TS        int64  `json:"ts"`                 // unix seconds
}

// ProgressEvent is a playback position report. It travels as a hash in the
// fast store rather than through a queue, but shares the wire field names.
type ProgressEvent struct {
	ActorID   int64 `json:"actor_id"`
	SubjectID int64 `json:"subject_id"`
	TS        int64 `json:"ts"`
	Position  int64 `json:"position"` // seconds
	Duration  int64 `json:"duration"` // seconds
}

// Time returns ts as UTC, or fallback when ts is unset.
func (e ViewEvent) Time(fallback time.Time) time.Time {
	if e.TS == 0 {
		return fallback.UTC()
	}
	return time.Unix(e.TS, 0).UTC()
}

func (e ViewEvent) Validate() error {
	if e.ActorID <= 0 {
		return fmt.Errorf("%w: actor_id=%d", ErrMalformed, e.ActorID)
	}
	if e.SubjectID <= 0 {
		return fmt.Errorf("%w: subject_id=%d", ErrMalformed, e.SubjectID)
	}
	if e.TS < 0 {
		return fmt.Errorf("%w: ts=%d", ErrMalformed, e.TS)
	}
	return nil
}

func (e ProgressEvent) Validate() error {
	if e.ActorID <= 0 || e.SubjectID <= 0 {
		return fmt.Errorf("%w: actor_id=%d subject_id=%d", ErrMalformed, e.ActorID, e.SubjectID)
	}
	if e.Position < 0 || e.Duration < 0 {
		return fmt.Errorf("%w: position=%d duration=%d", ErrMalformed, e.Position, e.Duration)
	}
	return nil
}

func EncodeView(e ViewEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeView parses and validates a view payload. Every failure wraps ErrMalformed.
func DecodeView(b []byte) (ViewEvent, error) {
	var e ViewEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return ViewEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.Validate(); err != nil {
		return ViewEvent{}, err
	}
	return e, nil
}

func EncodeProgress(e ProgressEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeProgress parses and validates a progress payload. Every failure wraps ErrMalformed.
func DecodeProgress(b []byte) (ProgressEvent, error) {
	var e ProgressEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return ProgressEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.Validate(); err != nil {
		return ProgressEvent{}, err
	}
	return e, nil
}
