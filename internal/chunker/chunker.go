// Package chunker splits extracted text into ordered, offset-tracked
// chunks under an estimated token budget. Splitting is a pure function of
// its inputs: it never mutates the text and is safe to re-run.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one contiguous piece of the source text. Content is always a
// trimmed substring of the input, and StartChar/EndChar are absolute byte
// offsets into it (0 <= StartChar < EndChar <= len(text)).
type Chunk struct {
	Index         int
	Content       string
	StartChar     int
	EndChar       int
	TokenEstimate int
}

const (
	charsPerToken = 4

	// DefaultTokenBudget is used when the caller passes a non-positive budget.
	DefaultTokenBudget = 500

	// maxOverlapRatio caps the boundary overlap so a chunk can never be
	// swallowed whole by the next one's carried context.
	maxOverlapRatio = 0.5
)

// EstimateTokens approximates the token cost of text as ceil(len/4).
// It is derived, not authoritative.
func EstimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// Split breaks text into chunks of at most tokenBudget estimated tokens.
// Paragraphs (blank-line separated) are the atomic unit: a chunk boundary
// never falls inside one, so a single oversized paragraph becomes its own
// oversized chunk. When overlapRatio > 0, each chunk after the first
// starts overlapRatio of the previous chunk's length before that chunk's
// end, so consecutive chunks share boundary context while every Content
// stays a substring of the input.
func Split(text string, tokenBudget int, overlapRatio float64) []Chunk {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if overlapRatio < 0 {
		overlapRatio = 0
	}
	if overlapRatio > maxOverlapRatio {
		overlapRatio = maxOverlapRatio
	}

	paragraphs := paragraphSpans(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	bufStart, bufEnd := -1, 0

	for _, p := range paragraphs {
		if bufStart >= 0 &&
			EstimateTokens(text[bufStart:bufEnd])+EstimateTokens(text[p.start:p.end]) > tokenBudget {
			sealed := seal(text, bufStart, bufEnd, len(chunks))
			chunks = append(chunks, sealed)
			bufStart = overlapStart(text, sealed, overlapRatio)
		}
		if bufStart < 0 {
			bufStart = p.start
		}
		bufEnd = p.end
	}

	chunks = append(chunks, seal(text, bufStart, bufEnd, len(chunks)))
	return chunks
}

// span marks a half-open byte range [start, end) in the source text.
type span struct {
	start, end int
}

// paragraphSpans scans text line by line and returns the trimmed extents
// of each blank-line-separated paragraph. All-blank input yields nil.
func paragraphSpans(text string) []span {
	var spans []span
	start := -1
	pos := 0

	for pos <= len(text) {
		lineEnd := len(text)
		if i := strings.IndexByte(text[pos:], '\n'); i >= 0 {
			lineEnd = pos + i
		}

		if strings.TrimSpace(text[pos:lineEnd]) == "" {
			if start >= 0 {
				spans = append(spans, trimSpan(text, start, pos))
				start = -1
			}
		} else if start < 0 {
			start = pos
		}

		if lineEnd == len(text) {
			break
		}
		pos = lineEnd + 1
	}

	if start >= 0 {
		spans = append(spans, trimSpan(text, start, len(text)))
	}
	return spans
}

// trimSpan shrinks [start, end) to exclude leading and trailing whitespace.
func trimSpan(text string, start, end int) span {
	s := text[start:end]
	trimmedLeft := strings.TrimLeftFunc(s, unicode.IsSpace)
	start += len(s) - len(trimmedLeft)
	end -= len(trimmedLeft) - len(strings.TrimRightFunc(trimmedLeft, unicode.IsSpace))
	return span{start: start, end: end}
}

// seal turns the buffer [start, end) into a chunk, trimming it to content
// and recording absolute offsets.
func seal(text string, start, end, index int) Chunk {
	sp := trimSpan(text, start, end)
	content := text[sp.start:sp.end]
	return Chunk{
		Index:         index,
		Content:       content,
		StartChar:     sp.start,
		EndChar:       sp.end,
		TokenEstimate: EstimateTokens(content),
	}
}

// overlapStart returns where the next buffer should begin so that it
// carries the trailing overlapRatio of the sealed chunk, or -1 when no
// overlap applies. The start is pushed forward to a rune boundary so the
// carried context never begins mid-character.
func overlapStart(text string, sealed Chunk, overlapRatio float64) int {
	if overlapRatio <= 0 {
		return -1
	}
	overlapChars := int(float64(sealed.EndChar-sealed.StartChar) * overlapRatio)
	if overlapChars <= 0 {
		return -1
	}
	start := sealed.EndChar - overlapChars
	if start <= sealed.StartChar {
		return -1
	}
	for start < sealed.EndChar && !utf8.RuneStart(text[start]) {
		start++
	}
	return start
}
