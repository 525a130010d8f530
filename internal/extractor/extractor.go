// Package extractor converts raw file bytes into plain text, one
// implementation per supported format. The format is always the declared
// one (from the filename extension); content is never sniffed to pick a
// decoder.
package extractor

import (
	"context"
	"strings"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/models"
)

// Extractor converts raw bytes of a single declared format into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ForType returns the extractor for a declared file type. Adding a format
// means adding one implementation and one case here.
func ForType(t models.FileType) (Extractor, error) {
	switch t {
	case models.FileTypePDF:
		return &PDFExtractor{}, nil
	case models.FileTypeDocx:
		return &DocxExtractor{}, nil
	case models.FileTypeTxt:
		return &TxtExtractor{}, nil
	case models.FileTypeHTML:
		return &HTMLExtractor{}, nil
	default:
		return nil, apperrors.Validationf("unsupported file type: %s", t)
	}
}

// finish rejects extraction results that are empty after trimming. An
// empty result is a reportable failure, never silently accepted.
func finish(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &apperrors.ExtractionError{Cause: apperrors.CauseEmpty}
	}
	return text, nil
}
