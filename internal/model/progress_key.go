package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ProgressKey builds the fast-store key "{prefix}{actor}:{subject}".
func ProgressKey(prefix string, actorID, subjectID int64) string {
	return prefix + strconv.FormatInt(actorID, 10) + ":" + strconv.FormatInt(subjectID, 10)
}

// ParseProgressKey extracts (actor, subject) from a key built by ProgressKey.
func ParseProgressKey(prefix, key string) (actorID, subjectID int64, err error) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: key %q lacks prefix %q", ErrMalformed, key, prefix)
	}
	a, s, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: key %q", ErrMalformed, key)
	}
	actorID, err = strconv.ParseInt(a, 10, 64)
	if err != nil || actorID <= 0 {
		return 0, 0, fmt.Errorf("%w: key %q actor", ErrMalformed, key)
	}
	subjectID, err = strconv.ParseInt(s, 10, 64)
	if err != nil || subjectID <= 0 {
		return 0, 0, fmt.Errorf("%w: key %q subject", ErrMalformed, key)
	}
	return actorID, subjectID, nil
}

// ProgressFromHash builds a ProgressEvent from the hash fields stored under a
// progress key. Missing position/duration is malformed; ts is optional.
func ProgressFromHash(actorID, subjectID int64, fields map[string]string) (ProgressEvent, error) {
	e := ProgressEvent{ActorID: actorID, SubjectID: subjectID}

	pos, ok := fields["position"]
	if !ok {
		return ProgressEvent{}, fmt.Errorf("%w: missing position", ErrMalformed)
	}
	dur, ok := fields["duration"]
	if !ok {
		return ProgressEvent{}, fmt.Errorf("%w: missing duration", ErrMalformed)
	}

	var err error
	if e.Position, err = strconv.ParseInt(pos, 10, 64); err != nil {
		return ProgressEvent{}, fmt.Errorf("%w: position %q", ErrMalformed, pos)
	}
	if e.Duration, err = strconv.ParseInt(dur, 10, 64); err != nil {
		return ProgressEvent{}, fmt.Errorf("%w: duration %q", ErrMalformed, dur)
	}
	if ts, ok := fields["ts"]; ok {
		if e.TS, err = strconv.ParseInt(ts, 10, 64); err != nil {
			return ProgressEvent{}, fmt.Errorf("%w: ts %q", ErrMalformed, ts)
		}
	}
	return e, e.Validate()
}
