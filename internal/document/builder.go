// -----------------------------------------------------------------------
// Document Builder
// Walks an extracted article container and emits an ordered sequence of
// content blocks with images resolved to raw bytes
// -----------------------------------------------------------------------

package document

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/extract"
	"github.com/ternarybob/kapture/internal/images"
	"github.com/ternarybob/kapture/internal/models"
)

// MaxHeadingLevel is the deepest heading level preserved in output
// documents. h5 and h6 collapse into it.
const MaxHeadingLevel = 4

// ImagePlaceholder is emitted in place of an image whose bytes could not
// be resolved.
const ImagePlaceholder = "[Image not downloaded]"

// ImageResolver fetches image bytes for a source reference found in the
// article DOM.
type ImageResolver interface {
	Resolve(ctx context.Context, src, baseURL string) (*images.ResolvedImage, error)
}

// Builder converts an article container into an OutputDocument.
type Builder struct {
	resolver ImageResolver
	logger   arbor.ILogger
}

// NewBuilder creates a document builder. resolver may be nil, in which case
// every image becomes a placeholder paragraph.
func NewBuilder(resolver ImageResolver, logger arbor.ILogger) *Builder {
	return &Builder{
		resolver: resolver,
		logger:   logger,
	}
}

// Build walks the container's children in reading order and emits blocks.
// baseURL anchors relative image references.
func (b *Builder) Build(ctx context.Context, container *goquery.Selection, title, baseURL string) *models.OutputDocument {
	doc := &models.OutputDocument{
		Title:     title,
		SourceURL: baseURL,
	}
	b.walk(ctx, container, doc, baseURL)
	return doc
}

func (b *Builder) walk(ctx context.Context, sel *goquery.Selection, doc *models.OutputDocument, baseURL string) {
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		b.emit(ctx, child, doc, baseURL)
	})
}

func (b *Builder) emit(ctx context.Context, node *goquery.Selection, doc *models.OutputDocument, baseURL string) {
	switch tag := goquery.NodeName(node); tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(tag[1] - '0')
		if level > MaxHeadingLevel {
			level = MaxHeadingLevel
		}
		doc.AddHeading(extract.CollapseWhitespace(node.Text()), level)

	case "p":
		doc.AddParagraph(extract.CollapseWhitespace(node.Text()))
		// Images inside the paragraph follow its text.
		node.Find("img").Each(func(_ int, img *goquery.Selection) {
			b.emitImage(ctx, img, doc, baseURL)
		})

	case "ul", "ol":
		ordered := tag == "ol"
		node.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			doc.AddListItem(extract.FlattenText(li, " "), ordered)
			li.Find("img").Each(func(_ int, img *goquery.Selection) {
				b.emitImage(ctx, img, doc, baseURL)
			})
		})

	case "img":
		b.emitImage(ctx, node, doc, baseURL)

	case "table":
		b.emitTable(node, doc)
		node.Find("img").Each(func(_ int, img *goquery.Selection) {
			b.emitImage(ctx, img, doc, baseURL)
		})

	default:
		b.walk(ctx, node, doc, baseURL)
	}
}

func (b *Builder) emitImage(ctx context.Context, node *goquery.Selection, doc *models.OutputDocument, baseURL string) {
	src := strings.TrimSpace(node.AttrOr("src", ""))
	if src == "" {
		src = strings.TrimSpace(node.AttrOr("data-src", ""))
	}
	caption := extract.CollapseWhitespace(node.AttrOr("alt", ""))

	if src == "" || b.resolver == nil {
		doc.AddParagraph(placeholderText(caption))
		return
	}

	img, err := b.resolver.Resolve(ctx, src, baseURL)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn().Err(err).Str("src", truncateSrc(src)).Msg("Image resolution failed, emitting placeholder")
		}
		doc.AddParagraph(placeholderText(caption))
		return
	}

	doc.AddImage(img.Data, img.Format, caption)
}

func placeholderText(caption string) string {
	if caption == "" {
		return ImagePlaceholder
	}
	return ImagePlaceholder + " " + caption
}

// emitTable flattens a table into one paragraph with every cell's text on
// its own line, no structural markup. Layout tables in portal articles
// rarely justify real table rendering in the output.
func (b *Builder) emitTable(node *goquery.Selection, doc *models.OutputDocument) {
	var cells []string
	node.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := extract.FlattenText(cell, " "); text != "" {
				cells = append(cells, text)
			}
		})
	})
	if len(cells) > 0 {
		doc.AddParagraph(strings.Join(cells, "\n"))
	}
}

// data URIs can be megabytes long; keep log lines readable.
func truncateSrc(src string) string {
	if len(src) > 120 {
		return src[:120] + "..."
	}
	return src
}
