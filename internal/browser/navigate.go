// -----------------------------------------------------------------------
// Navigator
// SSO-tolerant navigation: drives the page to a target URL, detects
// login interruptions, and retries after interactive confirmation
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/interfaces"
)

var (
	// ErrInteractionRequired means a login page was reached but the run has
	// no way to ask a human to complete it.
	ErrInteractionRequired = errors.New("interactive login required")

	// ErrLoginNotCompleted means the login page persisted through every
	// allowed confirmation attempt.
	ErrLoginNotCompleted = errors.New("login page still present after retries")
)

// PageDriver is the minimal page surface the navigator needs. The real
// implementation drives chromedp; tests substitute a scripted one.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
}

// Navigator opens target URLs while tolerating SSO interruptions. Identity
// providers can hijack any navigation, not just the first, so detection
// runs after every attempt.
type Navigator struct {
	driver      PageDriver
	confirm     interfaces.ConfirmationSource // nil = non-interactive run
	detect      LoginDetector
	maxAttempts int
	settle      time.Duration
	logger      arbor.ILogger
}

// NewNavigator creates a navigator. confirm may be nil, in which case a
// login interruption fails immediately with ErrInteractionRequired.
func NewNavigator(driver PageDriver, confirm interfaces.ConfirmationSource, config common.BrowserConfig, logger arbor.ILogger) *Navigator {
	maxAttempts := config.MaxSSOAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Navigator{
		driver:      driver,
		confirm:     confirm,
		detect:      IsLoginURL,
		maxAttempts: maxAttempts,
		settle:      config.SettleTimeout,
		logger:      logger,
	}
}

// WithLoginDetector replaces the default login-URL heuristic.
func (n *Navigator) WithLoginDetector(detect LoginDetector) *Navigator {
	if detect != nil {
		n.detect = detect
	}
	return n
}

// Open navigates to targetURL and returns the URL the page actually landed
// on. Navigation timeouts are soft: heavy portals keep loading assets long
// after the article is usable, so the landed URL decides success, not the
// navigation call.
func (n *Navigator) Open(ctx context.Context, targetURL string) (string, error) {
	var lastURL string

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if err := n.driver.Navigate(ctx, targetURL); err != nil {
			if ctx.Err() != nil {
				return lastURL, ctx.Err()
			}
			if !isTolerableNavError(err) {
				return lastURL, fmt.Errorf("navigation to %s failed: %w", targetURL, err)
			}
			n.logger.Warn().
				Err(err).
				Str("url", targetURL).
				Int("attempt", attempt).
				Msg("Navigation did not complete cleanly, checking landed URL")
		}

		loc, err := n.driver.Location(ctx)
		if err != nil {
			return lastURL, fmt.Errorf("failed to read page location: %w", err)
		}
		lastURL = loc

		if !n.detect(loc) {
			return loc, nil
		}

		n.logger.Info().
			Str("landed_url", loc).
			Int("attempt", attempt).
			Int("max_attempts", n.maxAttempts).
			Msg("Login page detected")

		if n.confirm == nil {
			return loc, ErrInteractionRequired
		}

		prompt := fmt.Sprintf("Complete the SSO login in the browser window, then press ENTER to continue (attempt %d/%d)", attempt, n.maxAttempts)
		if err := n.confirm.Await(ctx, prompt); err != nil {
			return loc, fmt.Errorf("login confirmation aborted: %w", err)
		}

		// Post-login redirects need a moment before re-navigating.
		if err := sleepCtx(ctx, n.settle); err != nil {
			return loc, err
		}
	}

	return lastURL, ErrLoginNotCompleted
}

// isTolerableNavError reports whether a navigation error still leaves a
// usable page behind. Timeouts do (heavy portals load assets forever), and
// so does a load aborted by an SSO redirect taking over the navigation.
// Anything else (DNS failure, refused connection) means no page at all.
func isTolerableNavError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "net::ERR_ABORTED")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// chromeDriver is the production PageDriver over a chromedp tab context.
type chromeDriver struct {
	navTimeout time.Duration
}

// NewChromeDriver creates a PageDriver that runs chromedp actions on the
// context passed to each call.
func NewChromeDriver(navTimeout time.Duration) PageDriver {
	return &chromeDriver{navTimeout: navTimeout}
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if d.navTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, d.navTimeout)
		defer cancel()
	}
	return chromedp.Run(navCtx, chromedp.Navigate(url))
}

func (d *chromeDriver) Location(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}
