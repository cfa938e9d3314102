package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewboost/review-api/pkg/logger"
)

func TestNewValidation(t *testing.T) {
	_, err := New(0, func(context.Context) {}, logger.Nop())
	assert.Error(t, err)

	_, err = New(time.Second, nil, logger.Nop())
	assert.Error(t, err)

	s, err := New(time.Second, func(context.Context) {}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestStartStop(t *testing.T) {
	s, err := New(time.Hour, func(context.Context) {}, logger.Nop())
	require.NoError(t, err)

	assert.True(t, s.Start())
	assert.False(t, s.Start(), "second Start must be a no-op")
	assert.True(t, s.IsRunning())

	assert.True(t, s.Stop())
	assert.False(t, s.Stop(), "second Stop must be a no-op")
	assert.False(t, s.IsRunning())
}

func TestTicksFire(t *testing.T) {
	var ticks atomic.Int32
	s, err := New(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	}, logger.Nop())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestOverlappingTicksDropped(t *testing.T) {
	var started atomic.Int32
	var skipped atomic.Int32

	block := make(chan struct{})
	s, err := New(10*time.Millisecond, func(ctx context.Context) {
		started.Add(1)
		select {
		case <-block:
		case <-ctx.Done():
		}
	}, logger.Nop())
	require.NoError(t, err)
	s.OnTickSkipped(func() { skipped.Add(1) })

	s.Start()

	// The first tick blocks; subsequent ticks must be dropped, not stacked.
	assert.Eventually(t, func() bool {
		return skipped.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), started.Load())

	close(block)
	s.Stop()
}

func TestStatus(t *testing.T) {
	s, err := New(time.Hour, func(context.Context) {}, logger.Nop())
	require.NoError(t, err)

	st := s.Status()
	assert.False(t, st.Running)
	assert.True(t, st.NextRunTime.IsZero())

	s.Start()
	defer s.Stop()

	st = s.Status()
	assert.True(t, st.Running)
	assert.False(t, st.NextRunTime.IsZero())
	assert.Contains(t, st.Trigger, "interval")
}
