package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeView(t *testing.T) {
	e, err := DecodeView([]byte(`{"actor_id": 7, "subject_id": 42, "ts": 1700000000}`))
	require.NoError(t, err)
	assert.Equal(t, ViewEvent{ActorID: 7, SubjectID: 42, TS: 1700000000}, e)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), e.Time(time.Now()))

	bad := []string{
		`not json`,
		`{"actor_id": 0, "subject_id": 42, "ts": 1}`,
		`{"actor_id": 7, "ts": 1}`,
		`{"actor_id": 7, "subject_id": 42, "ts": -5}`,
		`{"actor_id": "seven", "subject_id": 42}`,
	}
	for _, raw := range bad {
		_, err := DecodeView([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestViewEventTimeFallback(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	assert.Equal(t, now.UTC(), ViewEvent{ActorID: 1, SubjectID: 1}.Time(now))
}

func TestEncodeViewKeepsEventID(t *testing.T) {
	b, err := EncodeView(ViewEvent{EventID: "01HZX", ActorID: 1, SubjectID: 2, TS: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_id":"01HZX","actor_id":1,"subject_id":2,"ts":3}`, string(b))

	b, err = EncodeView(ViewEvent{ActorID: 1, SubjectID: 2, TS: 3})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "event_id")
}

func TestProgressRoundTrip(t *testing.T) {
	in := ProgressEvent{ActorID: 7, SubjectID: 42, TS: 1700000000, Position: 120, Duration: 300}
	b, err := EncodeProgress(in)
	require.NoError(t, err)
	out, err := DecodeProgress(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeProgress([]byte(`{"actor_id":7,"subject_id":42,"position":-1,"duration":3}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(10, 0))
	assert.Zero(t, Percent(-1, 10))
	assert.InDelta(t, 40.0, Percent(120, 300), 1e-9)
	assert.Equal(t, 100.0, Percent(400, 300))
}

func TestProgressKey(t *testing.T) {
	key := ProgressKey("libprog:", 7, 42)
	assert.Equal(t, "libprog:7:42", key)

	a, s, err := ParseProgressKey("libprog:", key)
	require.NoError(t, err)
	assert.Equal(t, int64(7), a)
	assert.Equal(t, int64(42), s)

	for _, k := range []string{"other:7:42", "libprog:7", "libprog:x:42", "libprog:7:0", "libprog:7:42:9"} {
		_, _, err := ParseProgressKey("libprog:", k)
		assert.ErrorIs(t, err, ErrMalformed, k)
	}
}

func TestProgressFromHash(t *testing.T) {
	e, err := ProgressFromHash(7, 42, map[string]string{"position": "120", "duration": "300", "ts": "1700000000"})
	require.NoError(t, err)
	assert.Equal(t, ProgressEvent{ActorID: 7, SubjectID: 42, TS: 1700000000, Position: 120, Duration: 300}, e)

	_, err = ProgressFromHash(7, 42, map[string]string{"duration": "300"})
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = ProgressFromHash(7, 42, map[string]string{"position": "abc", "duration": "300"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" manager ")
	assert.True(t, ok)
	assert.Equal(t, RoleManager, r)

	r, ok = ParseRole("")
	assert.True(t, ok)
	assert.Equal(t, RoleAgent, r)

	_, ok = ParseRole("janitor")
	assert.False(t, ok)
}
