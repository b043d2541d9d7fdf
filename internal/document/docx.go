// -----------------------------------------------------------------------
// DOCX Writer
// Serializes an OutputDocument to a minimal WordprocessingML package
// (archive/zip + hand-built OOXML parts) with inline image embedding
// -----------------------------------------------------------------------

package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/models"
)

const (
	emuPerInch   = 914400
	pixelsPerIn  = 96.0
	defaultImgPx = 480 // fallback when dimensions cannot be decoded
)

// Raster formats Word renders natively. Anything else gets a placeholder.
var docxImageContentTypes = map[string]string{
	"png": "image/png",
	"jpg": "image/jpeg",
	"gif": "image/gif",
	"bmp": "image/bmp",
	"tif": "image/tiff",
}

// DocxWriter serializes output documents to .docx files.
type DocxWriter struct {
	maxImageWidthIn float64
	logger          arbor.ILogger
}

// NewDocxWriter creates a DOCX writer. maxImageWidthIn caps embedded image
// width in inches; zero means the 6.0in default.
func NewDocxWriter(maxImageWidthIn float64, logger arbor.ILogger) *DocxWriter {
	if maxImageWidthIn <= 0 {
		maxImageWidthIn = 6.0
	}
	return &DocxWriter{
		maxImageWidthIn: maxImageWidthIn,
		logger:          logger,
	}
}

type mediaEntry struct {
	name        string // media/image1.png
	contentType string
	data        []byte
	relID       string
}

// Write serializes doc to path.
func (w *DocxWriter) Write(doc *models.OutputDocument, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create docx file: %w", err)
	}
	defer file.Close()

	zw := zip.NewWriter(file)

	body, media := w.buildBody(doc)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", buildContentTypes(media)},
		{"_rels/.rels", packageRels},
		{"word/_rels/document.xml.rels", buildDocumentRels(media)},
		{"word/styles.xml", stylesPart},
		{"word/numbering.xml", numberingPart},
		{"word/document.xml", body},
	}

	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if _, err := fw.Write([]byte(part.content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}

	for _, m := range media {
		fw, err := zw.Create("word/" + m.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", m.name, err)
		}
		if _, err := fw.Write(m.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", m.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize docx archive: %w", err)
	}

	if w.logger != nil {
		w.logger.Debug().
			Str("path", path).
			Int("blocks", len(doc.Blocks)).
			Int("images", len(media)).
			Msg("DOCX written")
	}
	return nil
}

// buildBody renders document.xml and collects media parts.
func (w *DocxWriter) buildBody(doc *models.OutputDocument) (string, []*mediaEntry) {
	var b strings.Builder
	var media []*mediaEntry

	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	b.WriteString(`<w:body>`)

	if doc.Title != "" {
		writeStyledParagraph(&b, "Title", doc.Title)
	}
	if doc.SourceURL != "" {
		writeStyledParagraph(&b, "Subtle", doc.SourceURL)
	}

	for _, blk := range doc.Blocks {
		switch blk.Type {
		case models.BlockHeading:
			writeStyledParagraph(&b, fmt.Sprintf("Heading%d", blk.Level), blk.Text)

		case models.BlockParagraph:
			// Flattened tables carry newlines; each line becomes a run
			// separated by a soft break.
			writeParagraphWithBreaks(&b, blk.Text)

		case models.BlockListItem:
			numID := 1
			if blk.Ordered {
				numID = 2
			}
			b.WriteString(`<w:p><w:pPr><w:pStyle w:val="ListParagraph"/>` +
				fmt.Sprintf(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="%d"/></w:numPr>`, numID) +
				`</w:pPr>`)
			writeRun(&b, blk.Text)
			b.WriteString(`</w:p>`)

		case models.BlockImage:
			entry, ok := w.addMedia(&media, blk)
			if !ok {
				writeParagraphWithBreaks(&b, ImagePlaceholder)
				continue
			}
			// Alt-text caption goes above its image.
			if blk.Caption != "" {
				writeStyledParagraph(&b, "Caption", blk.Caption)
			}
			cx, cy := w.imageExtentEMU(blk.Data)
			writeImageParagraph(&b, entry.relID, len(media), cx, cy)
		}
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)

	return b.String(), media
}

func (w *DocxWriter) addMedia(media *[]*mediaEntry, blk models.Block) (*mediaEntry, bool) {
	contentType, ok := docxImageContentTypes[blk.Format]
	if !ok || len(blk.Data) == 0 {
		if w.logger != nil {
			w.logger.Warn().Str("format", blk.Format).Msg("Skipping image format unsupported by DOCX")
		}
		return nil, false
	}

	n := len(*media) + 1
	entry := &mediaEntry{
		name:        fmt.Sprintf("media/image%d.%s", n, blk.Format),
		contentType: contentType,
		data:        blk.Data,
		relID:       fmt.Sprintf("rId%d", n+10), // rId1..10 reserved for fixed parts
	}
	*media = append(*media, entry)
	return entry, true
}

// imageExtentEMU computes the inline drawing extent, scaling the decoded
// pixel dimensions at 96dpi and clamping width to the configured cap.
func (w *DocxWriter) imageExtentEMU(data []byte) (int64, int64) {
	widthPx, heightPx := defaultImgPx, defaultImgPx*3/4
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		widthPx, heightPx = cfg.Width, cfg.Height
	}

	widthIn := float64(widthPx) / pixelsPerIn
	heightIn := float64(heightPx) / pixelsPerIn
	if widthIn > w.maxImageWidthIn {
		scale := w.maxImageWidthIn / widthIn
		widthIn = w.maxImageWidthIn
		heightIn *= scale
	}

	return int64(widthIn * emuPerInch), int64(heightIn * emuPerInch)
}

func writeStyledParagraph(b *strings.Builder, style, text string) {
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
	writeRun(b, text)
	b.WriteString(`</w:p>`)
}

func writeParagraphWithBreaks(b *strings.Builder, text string) {
	b.WriteString(`<w:p>`)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(`<w:r><w:br/></w:r>`)
		}
		writeRun(b, line)
	}
	b.WriteString(`</w:p>`)
}

func writeRun(b *strings.Builder, text string) {
	b.WriteString(`<w:r><w:t xml:space="preserve">`)
	b.WriteString(escapeXML(text))
	b.WriteString(`</w:t></w:r>`)
}

func writeImageParagraph(b *strings.Builder, relID string, id int, cx, cy int64) {
	fmt.Fprintf(b, `<w:p><w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="Image %d"/>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="%d" name="Image %d"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic>`+
		`</wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, id, id, id, id, relID, cx, cy)
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}

func buildContentTypes(media []*mediaEntry) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)

	seen := map[string]bool{}
	for _, m := range media {
		ext := m.name[strings.LastIndex(m.name, ".")+1:]
		if !seen[ext] {
			seen[ext] = true
			fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, ext, m.contentType)
		}
	}

	b.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	b.WriteString(`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>`)
	b.WriteString(`</Types>`)
	return b.String()
}

func buildDocumentRels(media []*mediaEntry) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	b.WriteString(`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>`)
	for _, m := range media {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, m.relID, m.name)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

const packageRels = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

// Minimal style set: title, subtle source line, headings 1-4, list
// paragraphs, and image captions.
const stylesPart = xml.Header + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/>` +
	`<w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri"/><w:sz w:val="22"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="40"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Subtle"><w:name w:val="Subtle Reference"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:i/><w:color w:val="595959"/><w:sz w:val="18"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading4"><w:name w:val="heading 4"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="3"/></w:pPr><w:rPr><w:b/><w:i/><w:sz w:val="24"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:ind w:left="720"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Caption"><w:name w:val="caption"/><w:basedOn w:val="Normal"/>` +
	`<w:rPr><w:i/><w:color w:val="595959"/><w:sz w:val="18"/></w:rPr></w:style>` +
	`</w:styles>`

// Two numbering definitions: numId 1 bullets, numId 2 decimals.
const numberingPart = xml.Header + `<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/><w:lvlText w:val="&#8226;"/>` +
	`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="1"><w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="decimal"/><w:lvlText w:val="%1."/>` +
	`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>` +
	`<w:num w:numId="2"><w:abstractNumId w:val="1"/></w:num>` +
	`</w:numbering>`
