package extractor

import (
	"bytes"
	"context"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dangtiendungai/docquery/internal/apperrors"
)

// PDFExtractor pulls plain text from PDF files page by page. Pages that
// fail to decode are skipped rather than aborting the whole document.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &apperrors.ExtractionError{Cause: apperrors.CauseCorrupt, Err: err}
	}

	var pages []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	return finish(strings.Join(pages, "\n\n"))
}

var _ Extractor = (*PDFExtractor)(nil)
