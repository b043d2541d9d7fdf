package browser

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/interfaces"
)

// Session binds the navigator and capturer over one tab. Every method
// expects the chromedp tab context from Browser.Context.
type Session struct {
	nav *Navigator
	cap *Capturer
}

// NewSession creates a page session for the pipeline.
func NewSession(confirm interfaces.ConfirmationSource, browserCfg common.BrowserConfig, captureCfg common.CaptureConfig, logger arbor.ILogger) *Session {
	return &Session{
		nav: NewNavigator(NewChromeDriver(browserCfg.NavTimeout), confirm, browserCfg, logger),
		cap: NewCapturer(captureCfg, logger),
	}
}

func (s *Session) Open(ctx context.Context, url string) (string, error) {
	return s.nav.Open(ctx, url)
}

func (s *Session) ScrollThrough(ctx context.Context) error {
	return s.cap.ScrollThrough(ctx)
}

func (s *Session) VisibleTextLength(ctx context.Context) (int, error) {
	return s.cap.VisibleTextLength(ctx)
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	return s.cap.HTML(ctx)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.cap.Screenshot(ctx)
}

func (s *Session) PrintPDF(ctx context.Context) ([]byte, error) {
	return s.cap.PrintPDF(ctx)
}

func (s *Session) MHTML(ctx context.Context) ([]byte, error) {
	return s.cap.MHTML(ctx)
}

func (s *Session) Title(ctx context.Context) (string, error) {
	return s.cap.Title(ctx)
}

// Capturer exposes the underlying capturer, used as the BlobFetcher for
// in-page image resolution.
func (s *Session) Capturer() *Capturer {
	return s.cap
}
