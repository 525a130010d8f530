package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/models"
	"github.com/dangtiendungai/docquery/internal/store"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

type mockChunks struct{ mock.Mock }

func (m *mockChunks) ListProcessed(ctx context.Context, ownerID string) ([]models.Document, error) {
	args := m.Called(ctx, ownerID)
	docs, _ := args.Get(0).([]models.Document)
	return docs, args.Error(1)
}

func (m *mockChunks) CountEmbedded(ctx context.Context, docIDs []string) (int64, error) {
	args := m.Called(ctx, docIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChunks) SearchLexical(ctx context.Context, docIDs []string, query string, limit int) ([]models.Chunk, error) {
	args := m.Called(ctx, docIDs, query, limit)
	chunks, _ := args.Get(0).([]models.Chunk)
	return chunks, args.Error(1)
}

func (m *mockChunks) GetChunksByIDs(ctx context.Context, chunkIDs []string) ([]models.Chunk, error) {
	args := m.Called(ctx, chunkIDs)
	chunks, _ := args.Get(0).([]models.Chunk)
	return chunks, args.Error(1)
}

type mockSearcher struct{ mock.Mock }

func (m *mockSearcher) Search(ctx context.Context, vector []float32, topK int, docIDs []string) ([]store.VectorHit, error) {
	args := m.Called(ctx, vector, topK, docIDs)
	hits, _ := args.Get(0).([]store.VectorHit)
	return hits, args.Error(1)
}

type stubQueryEmbedder struct {
	vector []float32
	err    error
}

func (s *stubQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

var testDocs = []models.Document{
	{ID: "doc-1", Name: "handbook.pdf", Status: models.StatusProcessed},
	{ID: "doc-2", Name: "notes.txt", Status: models.StatusProcessed},
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r := NewRetriever(&mockChunks{}, &mockSearcher{}, nil, 50, logger.New("test"))

	_, err := r.Retrieve(context.Background(), "owner-1", "   ", 5)

	var verr *apperrors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestRetrieveEmptyScope(t *testing.T) {
	chunks := &mockChunks{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return([]models.Document{}, nil)

	r := NewRetriever(chunks, &mockSearcher{}, nil, 50, logger.New("test"))
	result, err := r.Retrieve(context.Background(), "owner-1", "anything", 5)

	require.NoError(t, err)
	assert.True(t, result.ScopeEmpty)
	assert.Empty(t, result.Chunks)
}

func TestRetrieveVectorMode(t *testing.T) {
	chunks, searcher := &mockChunks{}, &mockSearcher{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return(testDocs, nil)
	chunks.On("CountEmbedded", mock.Anything, []string{"doc-1", "doc-2"}).Return(int64(12), nil)
	searcher.On("Search", mock.Anything, []float32{1, 2}, 5, []string{"doc-1", "doc-2"}).
		Return([]store.VectorHit{
			{ChunkID: "chunk-b", Score: 0.91},
			{ChunkID: "chunk-a", Score: 0.78},
		}, nil)
	chunks.On("GetChunksByIDs", mock.Anything, []string{"chunk-b", "chunk-a"}).
		Return([]models.Chunk{
			{ID: "chunk-a", DocumentID: "doc-1", ChunkIndex: 0, Content: "alpha"},
			{ID: "chunk-b", DocumentID: "doc-2", ChunkIndex: 3, Content: "beta"},
		}, nil)

	r := NewRetriever(chunks, searcher, &stubQueryEmbedder{vector: []float32{1, 2}}, 50, logger.New("test"))
	result, err := r.Retrieve(context.Background(), "owner-1", "beta things", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeVector, result.Mode)
	require.Len(t, result.Chunks, 2)
	// Score order from the index is preserved.
	assert.Equal(t, "chunk-b", result.Chunks[0].ChunkID)
	assert.Equal(t, "notes.txt", result.Chunks[0].DocumentName)
	assert.Equal(t, float32(0.91), result.Chunks[0].Score)
	assert.Equal(t, "chunk-a", result.Chunks[1].ChunkID)
}

func TestRetrieveLexicalWhenNoEmbeddings(t *testing.T) {
	chunks := &mockChunks{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return(testDocs, nil)
	chunks.On("CountEmbedded", mock.Anything, mock.Anything).Return(int64(0), nil)
	chunks.On("SearchLexical", mock.Anything, []string{"doc-1", "doc-2"}, "beta", 5).
		Return([]models.Chunk{
			{ID: "chunk-a", DocumentID: "doc-1", ChunkIndex: 2, Content: "beta appears here"},
		}, nil)

	r := NewRetriever(chunks, &mockSearcher{}, &stubQueryEmbedder{vector: []float32{1}}, 50, logger.New("test"))
	result, err := r.Retrieve(context.Background(), "owner-1", "beta", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, result.Mode)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "handbook.pdf", result.Chunks[0].DocumentName)
}

func TestRetrieveLexicalWhenProviderNil(t *testing.T) {
	chunks := &mockChunks{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return(testDocs, nil)
	chunks.On("SearchLexical", mock.Anything, mock.Anything, "beta", 5).
		Return([]models.Chunk{}, nil)

	r := NewRetriever(chunks, &mockSearcher{}, nil, 50, logger.New("test"))
	result, err := r.Retrieve(context.Background(), "owner-1", "beta", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, result.Mode)
	chunks.AssertNotCalled(t, "CountEmbedded", mock.Anything, mock.Anything)
}

func TestRetrieveFallsBackOnEmbedFailure(t *testing.T) {
	chunks := &mockChunks{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return(testDocs, nil)
	chunks.On("CountEmbedded", mock.Anything, mock.Anything).Return(int64(4), nil)
	chunks.On("SearchLexical", mock.Anything, mock.Anything, "beta", 5).
		Return([]models.Chunk{
			{ID: "chunk-a", DocumentID: "doc-1", ChunkIndex: 0, Content: "beta"},
		}, nil)

	r := NewRetriever(chunks, &mockSearcher{},
		&stubQueryEmbedder{err: errors.New("provider down")}, 50, logger.New("test"))
	result, err := r.Retrieve(context.Background(), "owner-1", "beta", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, result.Mode)
	require.Len(t, result.Chunks, 1)
}

func TestRetrieveFallsBackOnSearchFailure(t *testing.T) {
	chunks, searcher := &mockChunks{}, &mockSearcher{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return(testDocs, nil)
	chunks.On("CountEmbedded", mock.Anything, mock.Anything).Return(int64(4), nil)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &apperrors.StorageError{Op: "vector search", Err: errors.New("index offline")})
	chunks.On("SearchLexical", mock.Anything, mock.Anything, "beta", 5).
		Return([]models.Chunk{}, nil)

	r := NewRetriever(chunks, searcher, &stubQueryEmbedder{vector: []float32{1}}, 50, logger.New("test"))
	result, err := r.Retrieve(context.Background(), "owner-1", "beta", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, result.Mode)
}

func TestRetrieveClampsLimit(t *testing.T) {
	chunks := &mockChunks{}
	chunks.On("ListProcessed", mock.Anything, "owner-1").Return(testDocs, nil)
	chunks.On("SearchLexical", mock.Anything, mock.Anything, "beta", 1).
		Return([]models.Chunk{}, nil).Once()
	chunks.On("SearchLexical", mock.Anything, mock.Anything, "beta", 50).
		Return([]models.Chunk{}, nil).Once()

	r := NewRetriever(chunks, &mockSearcher{}, nil, 50, logger.New("test"))

	_, err := r.Retrieve(context.Background(), "owner-1", "beta", 0)
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), "owner-1", "beta", 10000)
	require.NoError(t, err)

	chunks.AssertExpectations(t)
}
