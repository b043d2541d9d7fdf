// -----------------------------------------------------------------------
// PDF Writer
// Renders an OutputDocument to PDF with fpdf and validates the result
// with pdfcpu before reporting success
// -----------------------------------------------------------------------

package document

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/models"
)

// Formats fpdf can register directly.
var pdfImageTypes = map[string]string{
	"png": "PNG",
	"jpg": "JPG",
	"gif": "GIF",
}

// PdfWriter renders output documents to PDF files.
type PdfWriter struct {
	maxImageWidthIn float64
	logger          arbor.ILogger
}

// NewPdfWriter creates a PDF writer. maxImageWidthIn caps embedded image
// width in inches; zero means the 6.0in default.
func NewPdfWriter(maxImageWidthIn float64, logger arbor.ILogger) *PdfWriter {
	if maxImageWidthIn <= 0 {
		maxImageWidthIn = 6.0
	}
	return &PdfWriter{
		maxImageWidthIn: maxImageWidthIn,
		logger:          logger,
	}
}

// Write renders doc to path and validates the output file.
func (w *PdfWriter) Write(doc *models.OutputDocument, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.MultiCell(0, 8, doc.Title, "", "L", false)
		pdf.Ln(2)
	}
	if doc.SourceURL != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 4, doc.SourceURL, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}

	imageIndex := 0
	for _, blk := range doc.Blocks {
		switch blk.Type {
		case models.BlockHeading:
			size := 14.0 - float64(blk.Level)
			pdf.Ln(3)
			pdf.SetFont("Arial", "B", size)
			pdf.MultiCell(0, 7, blk.Text, "", "L", false)
			pdf.Ln(1)

		case models.BlockParagraph:
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, blk.Text, "", "L", false)
			pdf.Ln(2)

		case models.BlockListItem:
			pdf.SetFont("Arial", "", 10)
			pdf.SetX(20)
			pdf.MultiCell(0, 5, "- "+blk.Text, "", "L", false)

		case models.BlockImage:
			imageIndex++
			w.renderImage(pdf, blk, imageIndex)
		}

		if pdf.Err() {
			return fmt.Errorf("pdf rendering failed: %w", pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	// A truncated or structurally broken file is worse than a missing one.
	if err := ValidatePDF(path); err != nil {
		os.Remove(path)
		return err
	}

	if w.logger != nil {
		w.logger.Debug().Str("path", path).Int("blocks", len(doc.Blocks)).Msg("PDF written")
	}
	return nil
}

// ValidatePDF checks the structural integrity of a PDF file with pdfcpu.
func ValidatePDF(path string) error {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("pdf validation failed: %w", err)
	}
	return nil
}

func (w *PdfWriter) renderImage(pdf *fpdf.Fpdf, blk models.Block, index int) {
	imageType, ok := pdfImageTypes[blk.Format]
	if !ok || len(blk.Data) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, ImagePlaceholder, "", "L", false)
		pdf.Ln(2)
		return
	}

	name := fmt.Sprintf("img%d", index)
	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(blk.Data))
	if pdf.Err() {
		// Recover from undecodable bytes and keep rendering.
		if w.logger != nil {
			w.logger.Warn().Err(pdf.Error()).Str("format", blk.Format).Msg("Image registration failed, emitting placeholder")
		}
		pdf.ClearError()
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, ImagePlaceholder, "", "L", false)
		pdf.Ln(2)
		return
	}

	// Alt-text caption goes above its image.
	if blk.Caption != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 4, blk.Caption, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)
	}

	maxWidthMM := w.maxImageWidthIn * 25.4
	widthMM := info.Width()
	if widthMM > maxWidthMM {
		widthMM = maxWidthMM
	}
	pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), widthMM, 0, true, opts, 0, "")
	pdf.Ln(2)
}
