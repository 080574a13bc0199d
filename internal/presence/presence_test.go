package presence

import (
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, rdb := testutil.NewRedis(t)
	tr := New(rdb, time.Minute)
	now := time.Unix(1700000000, 0)
	tr.now = func() time.Time { return now }

	st, err := tr.Status(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, Status{UserID: 7, Status: StatusOffline}, st)

	require.NoError(t, tr.MarkActive(ctx, 7))
	assert.Equal(t, time.Minute, mr.TTL("user:7:online"))
	assert.Zero(t, mr.TTL("user:7:last_seen"))

	st, err = tr.Status(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, st.Status)
	assert.Empty(t, st.LastSeen)

	mr.FastForward(2 * time.Minute)
	now = now.Add(25 * time.Minute)

	st, err = tr.Status(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, Status{UserID: 7, Status: StatusOffline, LastSeen: "25 min ago"}, st)

	many, err := tr.StatusMany(ctx, []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, int64(8), many[1].UserID)
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "0 min ago", Ago(59))
	assert.Equal(t, "59 min ago", Ago(3599))
	assert.Equal(t, "1 hr ago", Ago(3600))
	assert.Equal(t, "26 hr ago", Ago(26*3600+5))
	assert.Equal(t, "0 min ago", Ago(-10))
}
