package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartRunsImmediatelyThenOnInterval(t *testing.T) {
	var runs atomic.Int32
	p := New("test", 25*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	p.Start()
	defer p.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, runs.Load(), int32(1), "first run should be immediate")

	time.Sleep(70 * time.Millisecond)
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestStopHaltsPolling(t *testing.T) {
	var runs atomic.Int32
	p := New("test", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	p.Start()
	time.Sleep(10 * time.Millisecond)
	p.Stop()
	assert.False(t, p.Running())

	settled := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "no runs after Stop")
}

func TestStartIsIdempotent(t *testing.T) {
	p := New("test", time.Hour, func(ctx context.Context) error { return nil })
	p.Start()
	p.Start()
	assert.True(t, p.Running())
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}
