// Package retrieve finds the chunks most relevant to a query, scoped to
// one owner's processed documents. Vector search is used whenever
// embeddings exist and a provider is configured; anything else, including
// provider failures at query time, degrades to lexical search.
package retrieve

import (
	"context"
	"strings"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/models"
	"github.com/dangtiendungai/docquery/internal/store"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

// Mode names how a retrieval was answered.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeLexical Mode = "lexical"
)

// Result is the outcome of one retrieval. ScopeEmpty is set when the
// owner has no processed documents at all; Chunks may be empty even in
// a non-empty scope when nothing matches.
type Result struct {
	Mode       Mode
	Chunks     []models.RetrievedChunk
	ScopeEmpty bool
}

// ChunkSource is the subset of the document store retrieval reads from.
type ChunkSource interface {
	ListProcessed(ctx context.Context, ownerID string) ([]models.Document, error)
	CountEmbedded(ctx context.Context, docIDs []string) (int64, error)
	SearchLexical(ctx context.Context, docIDs []string, query string, limit int) ([]models.Chunk, error)
	GetChunksByIDs(ctx context.Context, chunkIDs []string) ([]models.Chunk, error)
}

// VectorSearcher answers nearest-neighbor queries over chunk vectors.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, docIDs []string) ([]store.VectorHit, error)
}

// QueryEmbedder embeds a single query text. It matches the embedding
// provider interface and may be nil when embeddings are disabled.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever answers chunk retrieval queries.
type Retriever struct {
	chunks   ChunkSource
	vectors  VectorSearcher
	embed    QueryEmbedder
	maxLimit int
	log      *logger.Logger
}

// NewRetriever wires a Retriever. embed may be nil to force lexical
// mode.
func NewRetriever(chunks ChunkSource, vectors VectorSearcher, embed QueryEmbedder, maxLimit int, log *logger.Logger) *Retriever {
	if maxLimit < 1 {
		maxLimit = 1
	}
	return &Retriever{
		chunks:   chunks,
		vectors:  vectors,
		embed:    embed,
		maxLimit: maxLimit,
		log:      log,
	}
}

// Retrieve returns up to limit chunks relevant to query among the
// owner's processed documents. The limit is clamped to [1, maxLimit].
func (r *Retriever) Retrieve(ctx context.Context, ownerID, query string, limit int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Validationf("query must not be empty")
	}
	if limit < 1 {
		limit = 1
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}

	docs, err := r.chunks.ListProcessed(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Result{Mode: ModeLexical, ScopeEmpty: true}, nil
	}

	docIDs := make([]string, len(docs))
	names := make(map[string]string, len(docs))
	for i, d := range docs {
		docIDs[i] = d.ID
		names[d.ID] = d.Name
	}

	if r.embed != nil {
		embedded, err := r.chunks.CountEmbedded(ctx, docIDs)
		if err != nil {
			return nil, err
		}
		if embedded > 0 {
			result, err := r.vectorSearch(ctx, query, limit, docIDs, names)
			if err == nil {
				return result, nil
			}
			// Query-time provider or index trouble is not the caller's
			// problem; answer lexically instead.
			r.log.WithError(err).Warn("vector retrieval failed, falling back to lexical search")
		}
	}

	return r.lexicalSearch(ctx, query, limit, docIDs, names)
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, limit int, docIDs []string, names map[string]string) (*Result, error) {
	vector, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: "embedding", Err: err}
	}

	hits, err := r.vectors.Search(ctx, vector, limit, docIDs)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Result{Mode: ModeVector}, nil
	}

	chunkIDs := make([]string, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	rows, err := r.chunks.GetChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Chunk, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	// Hit order is score order; keep it.
	result := &Result{Mode: ModeVector}
	for _, h := range hits {
		row, ok := byID[h.ChunkID]
		if !ok {
			// A vector outliving its chunk row means a torn delete;
			// skip it rather than fail the query.
			continue
		}
		result.Chunks = append(result.Chunks, models.RetrievedChunk{
			DocumentID:   row.DocumentID,
			DocumentName: names[row.DocumentID],
			ChunkID:      row.ID,
			ChunkIndex:   row.ChunkIndex,
			Content:      row.Content,
			Score:        h.Score,
		})
	}
	return result, nil
}

func (r *Retriever) lexicalSearch(ctx context.Context, query string, limit int, docIDs []string, names map[string]string) (*Result, error) {
	rows, err := r.chunks.SearchLexical(ctx, docIDs, query, limit)
	if err != nil {
		return nil, err
	}

	result := &Result{Mode: ModeLexical}
	for _, row := range rows {
		result.Chunks = append(result.Chunks, models.RetrievedChunk{
			DocumentID:   row.DocumentID,
			DocumentName: names[row.DocumentID],
			ChunkID:      row.ID,
			ChunkIndex:   row.ChunkIndex,
			Content:      row.Content,
		})
	}
	return result, nil
}
