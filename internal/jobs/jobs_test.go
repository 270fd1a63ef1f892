package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsRepeatedly(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Every("count", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestFailingTaskKeepsRunning(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Every("fail", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}))

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestStopCancelsContext(t *testing.T) {
	s := New()
	started := make(chan context.Context, 1)
	require.NoError(t, s.Every("ctx", time.Hour, func(ctx context.Context) error {
		started <- ctx
		return nil
	}))
	s.Start()

	var ctx context.Context
	select {
	case ctx = <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestEveryRejectsNonPositiveInterval(t *testing.T) {
	s := New()
	assert.Error(t, s.Every("never", 0, func(context.Context) error { return nil }))
}
