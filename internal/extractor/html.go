package extractor

import (
	"bytes"
	"context"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dangtiendungai/docquery/internal/apperrors"
)

// HTMLExtractor strips markup from HTML files: script and style blocks
// are dropped entirely, remaining tags are removed, and whitespace runs
// collapse to single spaces.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	var sb strings.Builder
	var inScript, inStyle bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return finish(strings.TrimSpace(sb.String()))
			}
			return "", &apperrors.ExtractionError{Cause: apperrors.CauseCorrupt, Err: z.Err()}
		case html.StartTagToken, html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "script":
				inScript = tt == html.StartTagToken
			case "style":
				inStyle = tt == html.StartTagToken
			}
		case html.TextToken:
			if inScript || inStyle {
				continue
			}
			// strings.Fields collapses any whitespace run inside the
			// text node; the trailing space separates adjacent nodes.
			words := strings.Fields(string(z.Text()))
			if len(words) > 0 {
				sb.WriteString(strings.Join(words, " "))
				sb.WriteString(" ")
			}
		}
	}
}

var _ Extractor = (*HTMLExtractor)(nil)
