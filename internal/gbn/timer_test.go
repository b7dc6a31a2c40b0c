package gbn

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_FiresExactlyOncePerArm(t *testing.T) {
	tm := NewTimer()
	var fires int64

	tm.Start(10*time.Millisecond, func() { atomic.AddInt64(&fires, 1) })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fires))
}

func TestTimer_StopCancelsPendingFire(t *testing.T) {
	tm := NewTimer()
	var fires int64

	tm.Start(20*time.Millisecond, func() { atomic.AddInt64(&fires, 1) })
	tm.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fires))
}

func TestTimer_RestartCancelsPreviousArm(t *testing.T) {
	tm := NewTimer()
	var first, second int64

	tm.Start(20*time.Millisecond, func() { atomic.AddInt64(&first, 1) })
	tm.Start(10*time.Millisecond, func() { atomic.AddInt64(&second, 1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&first))
	assert.Equal(t, int64(1), atomic.LoadInt64(&second))
}

func TestTimer_StopThenRestart(t *testing.T) {
	tm := NewTimer()
	var fires int64

	tm.Start(10*time.Millisecond, func() { atomic.AddInt64(&fires, 1) })
	tm.Stop()
	tm.Start(10*time.Millisecond, func() { atomic.AddInt64(&fires, 1) })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fires))
}

func TestTimer_StopWithoutStart(t *testing.T) {
	tm := NewTimer()
	tm.Stop() // must not panic
}
