package browser

import (
	"context"
	"time"
)

// TextProber reports the page's current visible text length.
type TextProber func(ctx context.Context) (int, error)

// WaitForContent polls prober until at least minChars of visible text is
// observed or timeout elapses, and returns the largest length seen. Prober
// errors are tolerated; mid-navigation probes routinely fail and the next
// tick retries. The caller decides whether a short result is thin content
// or a hard failure.
func WaitForContent(ctx context.Context, prober TextProber, minChars int, timeout, pollInterval time.Duration) (int, error) {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	best := 0

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if n, err := prober(ctx); err == nil && n > best {
			best = n
		}
		if minChars > 0 && best >= minChars {
			return best, nil
		}
		if time.Now().After(deadline) {
			return best, nil
		}

		select {
		case <-ctx.Done():
			return best, ctx.Err()
		case <-ticker.C:
		}
	}
}
