package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/lulusspp/lulus-api/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_PadsToBaseDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100})
	startTime := time.Now()

	// Simulate some work already done
	time.Sleep(50 * time.Millisecond)

	timing.WaitFrom(context.Background(), startTime)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AddsRandomComponent(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50, RandomDelayMs: 50})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50})
	startTime := time.Now()

	time.Sleep(100 * time.Millisecond)

	timing.WaitFrom(context.Background(), startTime)

	elapsed := time.Since(startTime)
	assert.Less(t, elapsed, 130*time.Millisecond)
}

func TestTimingDelay_WaitFrom_ReturnsOnCancel(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 5000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	startTime := time.Now()
	timing.WaitFrom(ctx, startTime)

	assert.Less(t, time.Since(startTime), 100*time.Millisecond)
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var timing *auth.TimingDelay
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime)

	assert.Less(t, time.Since(startTime), 10*time.Millisecond)
}
