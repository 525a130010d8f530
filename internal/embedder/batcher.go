package embedder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/config"
	"github.com/dangtiendungai/docquery/internal/models"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

// providerMaxBatch is the largest batch size any supported provider
// accepts in a single call.
const providerMaxBatch = 2048

// Batcher splits a list of texts into fixed-size batches, embeds them
// concurrently, and tolerates per-batch failures: a failed batch leaves
// absent vectors for its texts instead of failing the whole run.
type Batcher struct {
	provider       Provider
	batchSize      int
	maxConcurrency int
	retries        int
	log            *logger.Logger
}

// NewBatcher wires a Batcher from the embedding configuration. provider
// may be nil, in which case every text comes back with an absent vector.
func NewBatcher(provider Provider, cfg config.EmbeddingConfig, log *logger.Logger) *Batcher {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > providerMaxBatch {
		batchSize = providerMaxBatch
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Batcher{
		provider:       provider,
		batchSize:      batchSize,
		maxConcurrency: maxConcurrency,
		retries:        retries,
		log:            log,
	}
}

// EmbedBatches embeds texts in batches and returns one OptionalVector
// per input text, in input order. Vectors for texts in a failed batch
// are absent; the returned slice always has len(texts) entries.
func (b *Batcher) EmbedBatches(ctx context.Context, texts []string) []models.OptionalVector {
	results := make([]models.OptionalVector, len(texts))
	if len(texts) == 0 || b.provider == nil {
		return results
	}

	// A plain errgroup, not WithContext: one failed batch must not
	// cancel its siblings.
	var g errgroup.Group
	g.SetLimit(b.maxConcurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		g.Go(func() error {
			vectors, err := b.embedWithRetry(ctx, texts[start:end])
			if err != nil {
				b.log.WithError(err).
					WithField("batch_start", start).
					WithField("batch_size", end-start).
					Warn("embedding batch failed, chunks will be stored without vectors")
				return nil
			}
			for i, v := range vectors {
				results[start+i] = models.SomeVector(v)
			}
			return nil
		})
	}

	g.Wait()
	return results
}

// embedWithRetry calls the provider up to retries+1 times and verifies
// the response covers every input text.
func (b *Batcher) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors, err := b.provider.EmbedBatch(ctx, batch)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(batch))
		}
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}
	return nil, &apperrors.ProviderError{Provider: "embedding", Err: lastErr}
}
