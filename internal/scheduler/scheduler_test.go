package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metno-forecast/norwegianweather/internal/weather"
)

type countingUpdater struct {
	calls atomic.Int32
	err   error
}

func (u *countingUpdater) Update(ctx context.Context) error {
	u.calls.Add(1)
	return u.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRunsImmediately(t *testing.T) {
	u := &countingUpdater{}
	s := New(u, time.Hour, discard())
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool { return u.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerToleratesErrors(t *testing.T) {
	for _, err := range []error{weather.ErrUpdateInProgress, errors.New("store down")} {
		u := &countingUpdater{err: err}
		s := New(u, time.Hour, discard())
		require.NoError(t, s.Start())
		require.Eventually(t, func() bool { return u.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
		s.Stop()
	}
}

func TestSchedulerStopCancelsContext(t *testing.T) {
	var seen atomic.Pointer[context.Context]
	u := updaterFunc(func(ctx context.Context) error {
		seen.Store(&ctx)
		return nil
	})
	s := New(u, time.Hour, discard())
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return seen.Load() != nil }, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	ctx := *seen.Load()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&countingUpdater{}, 0, discard())
	assert.Equal(t, 10*time.Minute, s.interval)
}

type updaterFunc func(ctx context.Context) error

func (f updaterFunc) Update(ctx context.Context) error { return f(ctx) }
