package embedder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangtiendungai/docquery/internal/config"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

// stubProvider embeds each text as a single-element vector derived from
// its length, and fails any batch whose first text matches failOn.
type stubProvider struct {
	failOn string
	calls  int
}

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if len(texts) > 0 && texts[0] == s.failOn {
		return nil, fmt.Errorf("provider unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t))}
	}
	return vectors, nil
}

func newTestBatcher(p Provider, batchSize, retries int) *Batcher {
	return NewBatcher(p, config.EmbeddingConfig{
		BatchSize:      batchSize,
		MaxConcurrency: 1,
		Retries:        retries,
	}, logger.New("test"))
}

func TestEmbedBatchesNilProvider(t *testing.T) {
	b := newTestBatcher(nil, 2, 0)

	results := b.EmbedBatches(context.Background(), []string{"a", "bb", "ccc"})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.Valid)
	}
}

func TestEmbedBatchesOrderPreserved(t *testing.T) {
	b := newTestBatcher(&stubProvider{}, 2, 0)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	results := b.EmbedBatches(context.Background(), texts)

	require.Len(t, results, len(texts))
	for i, r := range results {
		require.True(t, r.Valid, "vector %d should be present", i)
		assert.Equal(t, []float32{float32(len(texts[i]))}, r.Values)
	}
}

func TestEmbedBatchesPartialFailure(t *testing.T) {
	// Batch size 2 puts "ccc" at the head of the second batch; only that
	// batch's texts should come back absent.
	b := newTestBatcher(&stubProvider{failOn: "ccc"}, 2, 0)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}
	results := b.EmbedBatches(context.Background(), texts)

	require.Len(t, results, len(texts))
	assert.True(t, results[0].Valid)
	assert.True(t, results[1].Valid)
	assert.False(t, results[2].Valid)
	assert.False(t, results[3].Valid)
	assert.True(t, results[4].Valid)
	assert.True(t, results[5].Valid)
}

func TestEmbedBatchesRetries(t *testing.T) {
	p := &stubProvider{failOn: "x"}
	b := newTestBatcher(p, 1, 2)

	results := b.EmbedBatches(context.Background(), []string{"x"})

	require.Len(t, results, 1)
	assert.False(t, results[0].Valid)
	assert.Equal(t, 3, p.calls)
}

func TestEmbedBatchesEmptyInput(t *testing.T) {
	p := &stubProvider{}
	b := newTestBatcher(p, 2, 0)

	results := b.EmbedBatches(context.Background(), nil)

	assert.Empty(t, results)
	assert.Zero(t, p.calls)
}

func TestEmbedWithRetryLengthMismatch(t *testing.T) {
	b := newTestBatcher(&shortProvider{}, 2, 0)

	results := b.EmbedBatches(context.Background(), []string{"a", "b"})

	require.Len(t, results, 2)
	assert.False(t, results[0].Valid)
	assert.False(t, results[1].Valid)
}

// shortProvider returns fewer vectors than texts.
type shortProvider struct{}

func (s *shortProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (s *shortProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}
