package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsJobsAndCountsFailures(t *testing.T) {
	p := NewPool(2, 10, time.Second)
	p.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Job{Name: "ok", Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}
	require.NoError(t, p.Submit(Job{Name: "bad", Run: func(context.Context) error {
		return errors.New("boom")
	}}))
	require.NoError(t, p.Submit(Job{Name: "panics", Run: func(context.Context) error {
		panic("oops")
	}}))

	require.NoError(t, p.Shutdown(time.Second))

	assert.EqualValues(t, 5, ran.Load())
	s := p.Stats()
	assert.EqualValues(t, 5, s.Processed)
	assert.EqualValues(t, 2, s.Failed)
}

func TestPoolBackpressure(t *testing.T) {
	// not started, so nothing drains the queue
	p := NewPool(1, 1, time.Second)
	noop := Job{Name: "noop", Run: func(context.Context) error { return nil }}

	require.NoError(t, p.Submit(noop))
	assert.ErrorIs(t, p.Submit(noop), ErrQueueFull)
	assert.EqualValues(t, 1, p.Stats().Backpressure)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := NewPool(1, 1, time.Second)
	p.Start()
	require.NoError(t, p.Shutdown(time.Second))

	err := p.Submit(Job{Name: "late", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}
