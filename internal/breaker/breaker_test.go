package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New(Config{Name: "views", FailThreshold: 2, OpenFor: 50 * time.Millisecond}, nil)

	calls := 0
	fail := func() error { calls++; return errBoom }

	assert.ErrorIs(t, Do(b, fail), errBoom)
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.ErrorIs(t, Do(b, fail), errBoom)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := Do(b, fail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, Rejected(err))
	assert.Equal(t, 2, calls)

	// after OpenFor a failed trial re-opens it
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, b.State())
	assert.ErrorIs(t, Do(b, fail), errBoom)
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, 3, calls)

	// and a successful one closes it
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, Do(b, func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerSingleTrialWhileHalfOpen(t *testing.T) {
	b := New(Config{FailThreshold: 1, OpenFor: 20 * time.Millisecond}, nil)
	assert.ErrorIs(t, Do(b, func() error { return errBoom }), errBoom)
	time.Sleep(40 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = Do(b, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := Do(b, func() error { return nil })
	assert.ErrorIs(t, err, gobreaker.ErrTooManyRequests)
	assert.True(t, Rejected(err))

	close(release)
	wg.Wait()
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := New(Config{FailThreshold: 2, OpenFor: time.Minute}, nil)
	assert.Error(t, Do(b, func() error { return errBoom }))
	require.NoError(t, Do(b, func() error { return nil }))
	assert.Error(t, Do(b, func() error { return errBoom }))
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.False(t, Rejected(errBoom))
}
