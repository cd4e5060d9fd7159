// Package document translates whole uploaded documents: extract the text,
// run the batch translation variant, and rebuild a single-page PDF.
package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jung-kurt/gofpdf"

	"linguachat/contract"
	apperrors "linguachat/errors"
)

const (
	pageTextWidth = 190.0 // A4 width minus default margins, in mm
	lineHeight    = 6.0
	fontSize      = 12.0
)

type Service struct {
	log        *slog.Logger
	extractor  contract.IDocumentExtractor
	translator contract.ITranslator
}

func NewService(log *slog.Logger, extractor contract.IDocumentExtractor,
	translator contract.ITranslator) *Service {
	return &Service{log: log, extractor: extractor, translator: translator}
}

// TranslateDocument returns a translated single-page PDF reconstruction of
// the uploaded document. Text that does not fit the page is silently
// truncated; this is a documented limitation of the reconstruction, not a
// translation failure.
func (s *Service) TranslateDocument(ctx context.Context, data []byte, targetLanguage string) ([]byte, error) {
	mtype := mimetype.Detect(data)

	text, err := s.extractor.Extract(data, mtype.String())
	if err != nil {
		return nil, fmt.Errorf("extract document text: %w", err)
	}

	translated := s.translator.TranslateDocument(ctx, text, targetLanguage)

	return s.renderSinglePage(translated)
}

// renderSinglePage lays the translated text onto one A4 page.
// Lines beyond the page capacity are dropped.
func (s *Service) renderSinglePage(text string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", fontSize)

	_, pageHeight := pdf.GetPageSize()
	_, topMargin, _, bottomMargin := pdf.GetMargins()
	maxLines := int((pageHeight - topMargin - bottomMargin) / lineHeight)

	lines := pdf.SplitLines([]byte(text), pageTextWidth)
	if dropped := len(lines) - maxLines; dropped > 0 {
		lines = lines[:maxLines]
		s.log.Debug("Translated document truncated to a single page",
			"dropped_lines", dropped)
	}

	for _, line := range lines {
		pdf.CellFormat(pageTextWidth, lineHeight, string(line), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render translated document: %w", err)
	}
	return buf.Bytes(), nil
}

// PlainTextExtractor handles text documents directly. Rich formats (PDF
// and friends) stay behind the extractor collaborator.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(data []byte, mimeType string) (string, error) {
	if !strings.HasPrefix(mimeType, "text/") {
		return "", apperrors.ErrUnsupportedDocument
	}
	return string(data), nil
}
