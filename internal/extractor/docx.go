package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dangtiendungai/docquery/internal/apperrors"
)

// DocxExtractor reads paragraph text from .docx files, joining the run
// text of each paragraph and separating paragraphs with blank lines.
type DocxExtractor struct{}

func (e *DocxExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &apperrors.ExtractionError{Cause: apperrors.CauseCorrupt, Err: err}
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			paras = append(paras, text)
		}
	}

	return finish(strings.Join(paras, "\n\n"))
}

func paragraphText(para *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

var _ Extractor = (*DocxExtractor)(nil)
