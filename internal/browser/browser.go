// -----------------------------------------------------------------------
// Browser Service
// Owns the Chrome instance driven over CDP: lifecycle, cookie
// export/import, and an HTTP client sharing the browser's session
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/models"
)

// Browser manages a single Chrome instance. Interactive SSO login needs a
// headed window, so unlike a crawl pool there is exactly one instance and
// every target shares its session.
type Browser struct {
	config common.BrowserConfig
	logger arbor.ILogger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	started       bool
}

// NewBrowser creates a browser service. Call Start before use.
func NewBrowser(config common.BrowserConfig, logger arbor.ILogger) *Browser {
	return &Browser{
		config: config,
		logger: logger,
	}
}

// Start launches Chrome and verifies it responds.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("browser already started")
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", b.config.DisableGPU),
		chromedp.Flag("no-sandbox", b.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(b.config.WindowWidth, b.config.WindowHeight),
	)
	if b.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.config.UserAgent))
	}
	if b.config.UserDataDir != "" {
		// A persistent profile keeps SSO cookies across runs.
		opts = append(opts, chromedp.UserDataDir(b.config.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.started = true

	b.logger.Info().
		Bool("headless", b.config.Headless).
		Str("user_data_dir", b.config.UserDataDir).
		Msg("Browser started")
	return nil
}

// Context returns the browser tab context for chromedp actions.
func (b *Browser) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browserCtx
}

// Stop shuts the browser down.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}
	b.browserCancel()
	b.allocCancel()
	b.started = false
	b.logger.Info().Msg("Browser stopped")
}

// ExportCookies captures the cookies the browser would send to the given
// URLs, typically right after a confirmed login.
func (b *Browser) ExportCookies(ctx context.Context, urls []string) ([]models.SessionCookie, error) {
	var captured []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().WithURLs(urls).Do(ctx)
		if err != nil {
			return err
		}
		captured = cookies
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to export cookies: %w", err)
	}

	out := make([]models.SessionCookie, 0, len(captured))
	for _, c := range captured {
		out = append(out, models.SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}

	b.logger.Debug().Int("cookie_count", len(out)).Msg("Session cookies exported")
	return out, nil
}

// ImportCookies replays stored session cookies into the browser before the
// first navigation.
func (b *Browser) ImportCookies(ctx context.Context, cookies []models.SessionCookie) error {
	if len(cookies) == 0 {
		return nil
	}

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				param := network.SetCookie(c.Name, c.Value).
					WithDomain(strings.TrimPrefix(c.Domain, ".")).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)
				if c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					param = param.WithExpires(&expires)
				}
				switch strings.ToLower(c.SameSite) {
				case "strict":
					param = param.WithSameSite(network.CookieSameSiteStrict)
				case "lax":
					param = param.WithSameSite(network.CookieSameSiteLax)
				case "none":
					param = param.WithSameSite(network.CookieSameSiteNone)
				}
				if err := param.Do(ctx); err != nil {
					// Keep going; one rejected cookie rarely breaks the session.
					b.logger.Warn().Err(err).Str("cookie_name", c.Name).Msg("Failed to inject cookie")
				}
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	b.logger.Debug().Int("cookie_count", len(cookies)).Msg("Session cookies imported")
	return nil
}

// SessionClient builds an HTTP client whose jar mirrors the browser's
// current cookies for siteURL, so image fetches ride the same session.
func (b *Browser) SessionClient(ctx context.Context, siteURL string, timeout time.Duration) (*http.Client, error) {
	cookies, err := b.ExportCookies(ctx, []string{siteURL})
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site URL %s: %w", siteURL, err)
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: strings.TrimPrefix(c.Domain, "."),
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	jar.SetCookies(site, httpCookies)

	return &http.Client{Jar: jar, Timeout: timeout}, nil
}
