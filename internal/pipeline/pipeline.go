// -----------------------------------------------------------------------
// Capture Pipeline
// Per-target orchestration: navigate, wait for content, extract the
// article, and export the requested artifact formats
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/browser"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/document"
	"github.com/ternarybob/kapture/internal/extract"
	"github.com/ternarybob/kapture/internal/models"
)

// PageSession is the live-page surface the pipeline drives. The production
// implementation combines the navigator and capturer over one chromedp tab;
// tests script it.
type PageSession interface {
	Open(ctx context.Context, url string) (string, error)
	ScrollThrough(ctx context.Context) error
	VisibleTextLength(ctx context.Context) (int, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	PrintPDF(ctx context.Context) ([]byte, error)
	MHTML(ctx context.Context) ([]byte, error)
	Title(ctx context.Context) (string, error)
}

// ResolverFactory builds an image resolver bound to the current page and
// session. Called once per target, after navigation succeeds.
type ResolverFactory func(ctx context.Context, baseURL string) document.ImageResolver

// ContentSelector isolates the article container from a rendered page.
// Heuristic by nature, so it stays swappable per portal.
type ContentSelector func(html string) (*extract.Result, error)

// Result is the outcome of one target capture.
type Result struct {
	Target   models.Target
	FinalURL string
	Title    string
	TextLen  int
	OutFiles []string
	Status   models.TargetStatus
	Err      error
}

// Pipeline captures one target at a time. Strictly sequential; a single
// browser session is shared across the whole run.
type Pipeline struct {
	session     PageSession
	resolverFor ResolverFactory
	selector    ContentSelector
	config      common.CaptureConfig
	logger      arbor.ILogger

	docx *document.DocxWriter
	pdf  *document.PdfWriter
	md   *document.MarkdownWriter
}

// NewPipeline creates a capture pipeline. resolverFor may be nil, in which
// case document images all become placeholders.
func NewPipeline(session PageSession, resolverFor ResolverFactory, config common.CaptureConfig, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		session:     session,
		resolverFor: resolverFor,
		selector:    extract.SelectMainContent,
		config:      config,
		logger:      logger,
		docx:        document.NewDocxWriter(config.MaxImageWidthIn, logger),
		pdf:         document.NewPdfWriter(config.MaxImageWidthIn, logger),
		md:          document.NewMarkdownWriter(logger),
	}
}

// WithContentSelector replaces the default main-content heuristic.
func (p *Pipeline) WithContentSelector(selector ContentSelector) *Pipeline {
	if selector != nil {
		p.selector = selector
	}
	return p
}

// Run captures a single target. A failed navigation or login interruption
// produces zero artifacts; after that point artifact failures are soft and
// the remaining formats still get written.
func (p *Pipeline) Run(ctx context.Context, target models.Target) *Result {
	started := time.Now()
	res := &Result{Target: target, Status: models.StatusOK}

	finalURL, err := p.session.Open(ctx, target.DirectURL)
	res.FinalURL = finalURL
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = err
		return res
	}

	if err := p.session.ScrollThrough(ctx); err != nil {
		if ctx.Err() != nil {
			res.Status = models.StatusFailed
			res.Err = ctx.Err()
			return res
		}
		p.logger.Warn().Err(err).Str("target", target.ID).Msg("Lazy-load scroll failed, capturing as-is")
	}

	observed, err := browser.WaitForContent(ctx, p.session.VisibleTextLength,
		p.config.MinChars, p.config.ReadinessTimeout, p.config.PollInterval)
	res.TextLen = observed
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = err
		return res
	}
	if observed < ThinContentFloor(p.config.MinChars) {
		res.Status = models.StatusThinContent
		p.logger.Warn().
			Str("target", target.ID).
			Int("observed_chars", observed).
			Int("floor", ThinContentFloor(p.config.MinChars)).
			Msg("Content readiness below threshold, capturing anyway")
	}

	// One snapshot per navigation; everything downstream works off it.
	snap := models.PageSnapshot{FinalURL: finalURL, Captured: time.Now()}
	snap.HTML, err = p.session.HTML(ctx)
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = fmt.Errorf("failed to capture page HTML: %w", err)
		return res
	}

	selected, err := p.selector(snap.HTML)
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = fmt.Errorf("failed to extract article content: %w", err)
		return res
	}

	res.Title = selected.Title
	if res.Title == "" {
		if t, err := p.session.Title(ctx); err == nil {
			res.Title = t
		}
	}
	if res.Title == "" {
		res.Title = target.ID
	}

	var resolver document.ImageResolver
	if p.resolverFor != nil {
		resolver = p.resolverFor(ctx, finalURL)
	}
	doc := document.NewBuilder(resolver, p.logger).Build(ctx, selected.Container, res.Title, finalURL)

	if err := os.MkdirAll(p.config.OutputDir, 0755); err != nil {
		res.Status = models.StatusFailed
		res.Err = fmt.Errorf("failed to create output directory: %w", err)
		return res
	}

	base := common.SafeFilename(target.ID+"_"+res.Title, target.ID)
	for _, format := range p.config.Formats {
		path, err := p.export(ctx, format, base, snap.HTML, selected.Container, doc, finalURL)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("target", target.ID).
				Str("format", format).
				Msg("Artifact export failed")
			continue
		}
		res.OutFiles = append(res.OutFiles, path)
	}

	p.logger.Info().
		Str("target", target.ID).
		Str("status", string(res.Status)).
		Int("artifacts", len(res.OutFiles)).
		Int("text_chars", res.TextLen).
		Dur("elapsed", time.Since(started)).
		Msg("Target captured")
	return res
}

func (p *Pipeline) export(ctx context.Context, format, base, html string, container *goquery.Selection, doc *models.OutputDocument, finalURL string) (string, error) {
	path := filepath.Join(p.config.OutputDir, base+"."+extensionFor(format))

	switch format {
	case "html":
		return path, os.WriteFile(path, []byte(html), 0644)

	case "screenshot":
		data, err := p.session.Screenshot(ctx)
		if err != nil {
			return "", err
		}
		return path, os.WriteFile(path, data, 0644)

	case "mhtml":
		data, err := p.session.MHTML(ctx)
		if err != nil {
			return "", err
		}
		return path, os.WriteFile(path, data, 0644)

	case "pdf":
		// Browser print preserves the portal's own layout; the structured
		// renderer is the fallback when printing fails.
		if data, err := p.session.PrintPDF(ctx); err == nil {
			if werr := os.WriteFile(path, data, 0644); werr != nil {
				return "", werr
			}
			if verr := document.ValidatePDF(path); verr == nil {
				return path, nil
			}
			p.logger.Warn().Str("path", path).Msg("Printed PDF failed validation, rendering structured fallback")
			os.Remove(path)
		} else {
			p.logger.Warn().Err(err).Msg("Browser PDF print failed, rendering structured fallback")
		}
		return path, p.pdf.Write(doc, path)

	case "docx":
		return path, p.docx.Write(doc, path)

	case "markdown":
		containerHTML, err := goquery.OuterHtml(container)
		if err != nil {
			return "", fmt.Errorf("failed to serialize article container: %w", err)
		}
		return path, p.md.Write(containerHTML, doc.Title, finalURL, path)

	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func extensionFor(format string) string {
	switch format {
	case "screenshot":
		return "png"
	case "markdown":
		return "md"
	default:
		return format
	}
}
