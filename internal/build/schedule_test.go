package build

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepeat_StopsWhenDone(t *testing.T) {
	var calls int
	err := Repeat(context.Background(), time.Millisecond, func(context.Context) bool {
		calls++
		return calls == 3
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRepeat_NeverOverlaps(t *testing.T) {
	var inFlight, maxInFlight, calls int32
	_ = Repeat(context.Background(), time.Millisecond, func(context.Context) bool {
		n := atomic.AddInt32(&inFlight, 1)
		if n > atomic.LoadInt32(&maxInFlight) {
			atomic.StoreInt32(&maxInFlight, n)
		}
		time.Sleep(3 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return atomic.AddInt32(&calls, 1) == 5
	})
	assert.Equal(t, int32(1), maxInFlight)
}

func TestTask_StopCancelsAndWaits(t *testing.T) {
	var calls int32
	task := Every(context.Background(), time.Millisecond, func(context.Context) bool {
		atomic.AddInt32(&calls, 1)
		return false
	})
	time.Sleep(10 * time.Millisecond)
	task.Stop()

	select {
	case <-task.Done():
	default:
		t.Fatal("task still running after Stop")
	}
	after := atomic.LoadInt32(&calls)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls))
}

func TestRepeat_ReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Repeat(ctx, time.Hour, func(context.Context) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}
