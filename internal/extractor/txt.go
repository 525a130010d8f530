package extractor

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/dangtiendungai/docquery/internal/apperrors"
)

// TxtExtractor decodes plain-text files as UTF-8, verbatim.
type TxtExtractor struct{}

func (e *TxtExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &apperrors.ExtractionError{
			Cause: apperrors.CauseUnsupportedEncoding,
			Err:   errors.New("file is not valid UTF-8"),
		}
	}
	return finish(string(data))
}

var _ Extractor = (*TxtExtractor)(nil)
