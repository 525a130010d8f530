// Package answer turns retrieved chunks into a citation-bearing answer.
// An LLM composes the answer when one is configured; otherwise, or when
// the call fails, the raw chunk contents stand in for it.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dangtiendungai/docquery/internal/llm"
	"github.com/dangtiendungai/docquery/internal/models"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

const (
	// maxContextChunks bounds how many chunks enter the LLM prompt.
	maxContextChunks = 5

	// fallbackChunks bounds the raw-content fallback answer.
	fallbackChunks = 3

	contextDelimiter  = "\n\n---\n\n"
	fallbackDelimiter = "\n\n...\n\n"
)

// NoInformationMessage is the answer when the owner has no processed
// documents to draw from.
const NoInformationMessage = "No processed documents found. Upload a document before querying."

const systemPrompt = "You are a document question answering assistant. " +
	"Answer the user's question using only the provided source excerpts. " +
	"If the excerpts do not contain the answer, say so plainly. " +
	"Refer to sources by their bracketed labels."

// Answer is a synthesized response with one citation per source chunk.
type Answer struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
}

// Synthesizer composes answers from retrieved chunks.
type Synthesizer struct {
	model llm.LLM
	log   *logger.Logger
}

// NewSynthesizer wires a Synthesizer. model may be nil, which forces
// the raw-content fallback.
func NewSynthesizer(model llm.LLM, log *logger.Logger) *Synthesizer {
	return &Synthesizer{model: model, log: log}
}

// Synthesize builds an answer for query from the retrieved chunks. The
// chunks are assumed to arrive in relevance order.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, chunks []models.RetrievedChunk) *Answer {
	if len(chunks) == 0 {
		return &Answer{Text: NoInformationMessage, Citations: []string{}}
	}

	used := chunks
	if len(used) > maxContextChunks {
		used = used[:maxContextChunks]
	}

	text := s.complete(ctx, query, used)
	if text == "" {
		text = fallbackText(chunks)
	}

	// One citation per retrieved chunk, regardless of how many made it
	// into the prompt.
	citations := make([]string, len(chunks))
	for i, ch := range chunks {
		citations[i] = fmt.Sprintf("%s · Chunk %d", ch.DocumentName, ch.ChunkIndex+1)
	}

	return &Answer{Text: text, Citations: citations}
}

// complete runs the LLM over the labeled context blocks and returns ""
// when no model is configured or the call fails.
func (s *Synthesizer) complete(ctx context.Context, query string, chunks []models.RetrievedChunk) string {
	if s.model == nil {
		return ""
	}

	blocks := make([]string, len(chunks))
	for i, ch := range chunks {
		blocks[i] = fmt.Sprintf("[Source %d: %s, Chunk %d]\n%s",
			i+1, ch.DocumentName, ch.ChunkIndex+1, ch.Content)
	}

	user := fmt.Sprintf("Source excerpts:\n\n%s\n\nQuestion: %s",
		strings.Join(blocks, contextDelimiter), query)

	text, err := s.model.Complete(ctx, systemPrompt, user)
	if err != nil {
		s.log.WithError(err).Warn("answer generation failed, returning raw excerpts")
		return ""
	}
	return strings.TrimSpace(text)
}

// fallbackText concatenates the first few chunk contents verbatim.
func fallbackText(chunks []models.RetrievedChunk) string {
	if len(chunks) > fallbackChunks {
		chunks = chunks[:fallbackChunks]
	}
	contents := make([]string, len(chunks))
	for i, ch := range chunks {
		contents[i] = ch.Content
	}
	return strings.Join(contents, fallbackDelimiter)
}
