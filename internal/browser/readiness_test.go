package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForContentReachesThreshold(t *testing.T) {
	var calls int32
	prober := func(ctx context.Context) (int, error) {
		// Simulates content streaming in over successive probes.
		return int(atomic.AddInt32(&calls, 1)) * 300, nil
	}

	start := time.Now()
	got, err := WaitForContent(context.Background(), prober, 800, 5*time.Second, time.Millisecond)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, got, 800)
	assert.Less(t, time.Since(start), time.Second, "should return well before the timeout")
}

func TestWaitForContentTimeoutReturnsBestObserved(t *testing.T) {
	prober := func(ctx context.Context) (int, error) {
		return 120, nil
	}

	got, err := WaitForContent(context.Background(), prober, 800, 20*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 120, got)
}

func TestWaitForContentToleratesProberErrors(t *testing.T) {
	var calls int32
	prober := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return 0, errors.New("execution context destroyed")
		}
		return 1000, nil
	}

	got, err := WaitForContent(context.Background(), prober, 800, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1000, got)
}

func TestWaitForContentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := func(ctx context.Context) (int, error) {
		return 10, nil
	}

	got, err := WaitForContent(ctx, prober, 800, time.Second, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, got)
}

func TestWaitForContentZeroMinCharsWaitsFullWindow(t *testing.T) {
	prober := func(ctx context.Context) (int, error) {
		return 5000, nil
	}

	// minChars 0 disables early exit; the whole window is used to let
	// slow-rendering pages settle.
	start := time.Now()
	got, err := WaitForContent(context.Background(), prober, 0, 30*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 5000, got)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
