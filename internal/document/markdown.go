package document

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"
)

// MarkdownWriter converts extracted article HTML to a markdown file.
type MarkdownWriter struct {
	logger arbor.ILogger
}

// NewMarkdownWriter creates a markdown writer.
func NewMarkdownWriter(logger arbor.ILogger) *MarkdownWriter {
	return &MarkdownWriter{logger: logger}
}

// Write converts html to markdown, prepends a title heading plus source
// line, and writes the result to path. baseURL resolves relative links.
func (w *MarkdownWriter) Write(html, title, baseURL, path string) error {
	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(html)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using stripped fallback")
		}
		converted = stripTags(html)
	}

	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	if baseURL != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", baseURL)
	}
	b.WriteString(strings.TrimSpace(converted))
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write markdown file: %w", err)
	}
	return nil
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	stripped := tagRe.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(stripped), " ")
}
