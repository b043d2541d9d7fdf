// -----------------------------------------------------------------------
// Image Resolver
// Resolves article image references (data: URIs, blob: handles, remote
// URLs) to raw bytes using the authenticated browsing session
// -----------------------------------------------------------------------

package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// DefaultFormat is the fallback raster format hint used when a source does
// not declare a recognizable one.
const DefaultFormat = "png"

var (
	// ErrUnsupportedScheme is returned for sources outside http/https/data/blob.
	ErrUnsupportedScheme = errors.New("unsupported image scheme")

	// ErrNoBlobFetcher is returned for blob: sources when no live page is
	// available to dereference the session-scoped handle.
	ErrNoBlobFetcher = errors.New("no live page available to resolve blob reference")

	dataImageRe = regexp.MustCompile(`(?i)^data:image/([^;]+);base64$`)
)

// ResolvedImage is a fetched image payload plus its format hint.
type ResolvedImage struct {
	Data   []byte
	Format string // normalized extension: "png", "jpg", "gif", ...
}

// BlobFetcher dereferences a blob: object URL. The handle is only valid
// inside the live browser context that minted it, so the implementation asks
// the page itself to fetch and re-encode the bytes.
type BlobFetcher interface {
	FetchBlob(ctx context.Context, blobURL string) ([]byte, error)
}

// Config holds resolver tunables.
type Config struct {
	Timeout    time.Duration
	MaxBytes   int64
	RatePerSec float64
	UserAgent  string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:    60 * time.Second,
		MaxBytes:   10 * 1024 * 1024, // 10MB
		RatePerSec: 4,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Resolver resolves image references for the document builder. Remote
// fetches ride the authenticated session's cookie jar so portal-protected
// assets resolve the same way they do inside the browser.
type Resolver struct {
	config  Config
	client  *http.Client
	blobs   BlobFetcher
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewResolver creates an image resolver. client must carry the session's
// cookie jar; blobs may be nil when no live page is available.
func NewResolver(config Config, client *http.Client, blobs BlobFetcher, logger arbor.ILogger) *Resolver {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultConfig().MaxBytes
	}
	if config.RatePerSec <= 0 {
		config.RatePerSec = DefaultConfig().RatePerSec
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Resolver{
		config:  config,
		client:  client,
		blobs:   blobs,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSec), 1),
		logger:  logger,
	}
}

// Resolve classifies src and fetches the image bytes. A nil result with a
// non-nil error means the image is absent; callers substitute a placeholder
// rather than failing the build.
func (r *Resolver) Resolve(ctx context.Context, src, baseURL string) (*ResolvedImage, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty image source")
	}

	switch {
	case strings.HasPrefix(src, "data:image/"):
		return DecodeDataURI(src)
	case strings.HasPrefix(src, "blob:"):
		return r.resolveBlob(ctx, src)
	default:
		return r.resolveRemote(ctx, src, baseURL)
	}
}

// DecodeDataURI decodes an inline base64 image. The format hint comes from
// the declared media subtype, with "jpeg" normalized to "jpg".
func DecodeDataURI(src string) (*ResolvedImage, error) {
	header, payload, found := strings.Cut(src, ",")
	if !found {
		return nil, fmt.Errorf("malformed data URI: no payload separator")
	}

	format := DefaultFormat
	if m := dataImageRe.FindStringSubmatch(header); m != nil {
		format = NormalizeFormat(m[1])
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}

	return &ResolvedImage{Data: data, Format: format}, nil
}

func (r *Resolver) resolveBlob(ctx context.Context, src string) (*ResolvedImage, error) {
	if r.blobs == nil {
		return nil, ErrNoBlobFetcher
	}

	data, err := r.blobs.FetchBlob(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob image: %w", err)
	}

	// The object URL carries no media type; a safe raster default applies.
	return &ResolvedImage{Data: data, Format: DefaultFormat}, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, src, baseURL string) (*ResolvedImage, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", baseURL, err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %s: %w", src, err)
	}

	full := base.ResolveReference(ref)
	scheme := strings.ToLower(full.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, full.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image fetch returned status %d for %s", resp.StatusCode, full.String())
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > r.config.MaxBytes {
		return nil, fmt.Errorf("image exceeds size limit (%d bytes) for %s", r.config.MaxBytes, full.String())
	}

	format := FormatFromContentType(resp.Header.Get("Content-Type"))

	if r.logger != nil {
		r.logger.Debug().
			Str("url", full.String()).
			Str("format", format).
			Int("bytes", len(data)).
			Msg("Resolved remote image")
	}

	return &ResolvedImage{Data: data, Format: format}, nil
}

// FormatFromContentType maps an HTTP Content-Type to a format hint,
// defaulting to png for unrecognized or absent types.
func FormatFromContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"):
		return "jpg"
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "gif"):
		return "gif"
	case strings.Contains(ct, "webp"):
		return "webp"
	case strings.Contains(ct, "bmp"):
		return "bmp"
	case strings.Contains(ct, "tiff"):
		return "tif"
	default:
		return DefaultFormat
	}
}

// NormalizeFormat lowercases a declared format and folds jpeg to jpg.
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "jpeg" {
		return "jpg"
	}
	if format == "" {
		return DefaultFormat
	}
	return format
}
