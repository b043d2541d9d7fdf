// -----------------------------------------------------------------------
// Page Capture
// Produces raw page artifacts from the live tab: rendered HTML, full-page
// screenshot, print PDF, and MHTML snapshot
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/common"
)

// Capturer runs artifact captures against the active tab.
type Capturer struct {
	config common.CaptureConfig
	logger arbor.ILogger
}

// NewCapturer creates a capturer.
func NewCapturer(config common.CaptureConfig, logger arbor.ILogger) *Capturer {
	return &Capturer{
		config: config,
		logger: logger,
	}
}

// ScrollThrough scrolls the page to the bottom in steps, then back to the
// top. Portals lazy-load article images on scroll; captures taken without
// this pass come back with empty image frames.
func (c *Capturer) ScrollThrough(ctx context.Context) error {
	step := c.config.ScrollStep
	if step <= 0 {
		step = 900
	}

	// Bounded by page height; 60 steps covers any sane article.
	steps := 0
	for i := 0; i < 60; i++ {
		var atBottom bool
		err := chromedp.Run(ctx,
			chromedp.Evaluate(fmt.Sprintf(
				`(() => { window.scrollBy(0, %d); return (window.innerHeight + window.scrollY) >= document.body.scrollHeight; })()`,
				step), &atBottom),
		)
		if err != nil {
			return fmt.Errorf("scroll step failed: %w", err)
		}
		steps++
		if atBottom {
			break
		}
		if err := sleepCtx(ctx, c.config.ScrollDelay); err != nil {
			return err
		}
	}
	c.logger.Debug().Int("steps", steps).Msg("Scrolled through page")

	if err := chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil)); err != nil {
		return fmt.Errorf("scroll reset failed: %w", err)
	}
	return sleepCtx(ctx, c.config.ScrollDelay)
}

// HTML returns the full rendered document markup.
func (c *Capturer) HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture rendered HTML: %w", err)
	}
	return html, nil
}

// Screenshot returns a full-page PNG.
func (c *Capturer) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// PrintPDF returns the page printed to PDF with backgrounds.
func (c *Capturer) PrintPDF(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPreferCSSPageSize(true).
			Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to print page to PDF: %w", err)
	}
	return buf, nil
}

// MHTML returns a single-file snapshot with subresources inlined.
func (c *Capturer) MHTML(ctx context.Context) ([]byte, error) {
	var data string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		snapshot, err := page.CaptureSnapshot().
			WithFormat(page.CaptureSnapshotFormatMhtml).
			Do(ctx)
		if err != nil {
			return err
		}
		data = snapshot
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture MHTML snapshot: %w", err)
	}
	return []byte(data), nil
}

// VisibleTextLength probes the length of the page's visible body text. Used
// as the readiness signal while the portal hydrates the article.
func (c *Capturer) VisibleTextLength(ctx context.Context) (int, error) {
	var n int
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`document.body ? document.body.innerText.length : 0`, &n))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Title returns the document title.
func (c *Capturer) Title(ctx context.Context) (string, error) {
	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return strings.TrimSpace(title), nil
}

// FetchBlob dereferences a blob: object URL by asking the page to fetch and
// base64-encode it. Blob handles only resolve inside the tab that created
// them, so this cannot go through the HTTP session client.
func (c *Capturer) FetchBlob(ctx context.Context, blobURL string) ([]byte, error) {
	js := fmt.Sprintf(`(async () => {
		const resp = await fetch(%q);
		const buf = await resp.arrayBuffer();
		const bytes = new Uint8Array(buf);
		let bin = '';
		for (let i = 0; i < bytes.length; i++) bin += String.fromCharCode(bytes[i]);
		return btoa(bin);
	})()`, blobURL)

	var encoded string
	err := chromedp.Run(ctx, chromedp.Evaluate(js, &encoded,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("in-page blob fetch failed: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob payload: %w", err)
	}
	return data, nil
}
