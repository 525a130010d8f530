package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/config"
	"github.com/dangtiendungai/docquery/internal/models"
	"github.com/dangtiendungai/docquery/internal/store"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

type mockDocs struct{ mock.Mock }

func (m *mockDocs) CreateDocument(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockDocs) UpdateStatus(ctx context.Context, docID string, status models.DocumentStatus, chunkCount int) error {
	return m.Called(ctx, docID, status, chunkCount).Error(0)
}

func (m *mockDocs) BulkCreateChunks(ctx context.Context, chunks []models.Chunk) error {
	return m.Called(ctx, chunks).Error(0)
}

type mockVectors struct{ mock.Mock }

func (m *mockVectors) Add(ctx context.Context, items []store.VectorItem) error {
	return m.Called(ctx, items).Error(0)
}

type mockBlobs struct{ mock.Mock }

func (m *mockBlobs) Put(ctx context.Context, objectPath string, data []byte) error {
	return m.Called(ctx, objectPath, data).Error(0)
}

func (m *mockBlobs) Delete(ctx context.Context, objectPath string) error {
	return m.Called(ctx, objectPath).Error(0)
}

func (m *mockBlobs) PresignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, objectPath, ttl)
	return args.String(0), args.Error(1)
}

// stubEmbedder returns a present vector for every text when enabled,
// and all-absent vectors otherwise.
type stubEmbedder struct{ enabled bool }

func (s *stubEmbedder) EmbedBatches(ctx context.Context, texts []string) []models.OptionalVector {
	results := make([]models.OptionalVector, len(texts))
	if !s.enabled {
		return results
	}
	for i := range texts {
		results[i] = models.SomeVector([]float32{1, 2, 3})
	}
	return results
}

func testConfig() config.IngestConfig {
	return config.IngestConfig{
		MaxFileSizeBytes: 1 << 20,
		TokenBudget:      500,
		OverlapRatio:     0.15,
	}
}

func uploadInput() UploadInput {
	paras := make([]string, 6)
	for i := range paras {
		paras[i] = strings.Repeat("word ", 100)
	}
	return UploadInput{
		OwnerID:  "owner-1",
		Filename: "report.txt",
		Data:     []byte(strings.Join(paras, "\n\n")),
	}
}

func newTestCoordinator(docs *mockDocs, vectors *mockVectors, blobs *mockBlobs, embed Embedder) *Coordinator {
	return NewCoordinator(docs, vectors, blobs, embed, testConfig(), logger.New("test"))
}

func TestIngestSuccess(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	docs.On("CreateDocument", mock.Anything, mock.Anything).Return(nil)
	vectors.On("Add", mock.Anything, mock.Anything).Return(nil)
	docs.On("BulkCreateChunks", mock.Anything, mock.Anything).Return(nil)
	docs.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusProcessed, mock.Anything).Return(nil)

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{enabled: true})
	summary, err := c.Ingest(context.Background(), uploadInput())

	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, summary.Status)
	assert.Greater(t, summary.ChunkCount, 0)
	docs.AssertExpectations(t)
	vectors.AssertExpectations(t)
	blobs.AssertExpectations(t)
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIngestDocumentRowCarriesChunkCount(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	var inserted *models.Document
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	docs.On("CreateDocument", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(*models.Document)
		}).Return(nil)
	vectors.On("Add", mock.Anything, mock.Anything).Return(nil)
	docs.On("BulkCreateChunks", mock.Anything, mock.Anything).Return(nil)
	docs.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusProcessed, mock.Anything).Return(nil)

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{enabled: true})
	summary, err := c.Ingest(context.Background(), uploadInput())

	require.NoError(t, err)
	require.NotNil(t, inserted)
	// The row never reads chunkCount=0 while in "processing".
	assert.Greater(t, inserted.ChunkCount, 0)
	assert.Equal(t, inserted.ChunkCount, summary.ChunkCount)
}

func TestIngestUnsupportedType(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{})

	_, err := c.Ingest(context.Background(), UploadInput{
		OwnerID:  "owner-1",
		Filename: "data.csv",
		Data:     []byte("a,b,c"),
	})

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	docs.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything)
}

func TestIngestOversizedFile(t *testing.T) {
	c := newTestCoordinator(&mockDocs{}, &mockVectors{}, &mockBlobs{}, &stubEmbedder{})

	_, err := c.Ingest(context.Background(), UploadInput{
		OwnerID:  "owner-1",
		Filename: "big.txt",
		Data:     make([]byte, 2<<20),
	})

	var verr *apperrors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestIngestExtractionFailure(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{})

	_, err := c.Ingest(context.Background(), UploadInput{
		OwnerID:  "owner-1",
		Filename: "broken.txt",
		Data:     []byte{0xff, 0xfe},
	})

	var xerr *apperrors.ExtractionError
	require.True(t, errors.As(err, &xerr))
	blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestBlobFailure(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).
		Return(&apperrors.StorageError{Op: "put object", Err: errors.New("bucket gone")})

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{})
	_, err := c.Ingest(context.Background(), uploadInput())

	var serr *apperrors.StorageError
	require.True(t, errors.As(err, &serr))
	docs.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything)
}

func TestIngestDocumentInsertFailureCompensatesBlob(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	blobs.On("Delete", mock.Anything, mock.Anything).Return(nil)
	docs.On("CreateDocument", mock.Anything, mock.Anything).
		Return(&apperrors.StorageError{Op: "create document", Err: errors.New("db down")})

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{})
	_, err := c.Ingest(context.Background(), uploadInput())

	var serr *apperrors.StorageError
	require.True(t, errors.As(err, &serr))
	blobs.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
	docs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestChunkInsertFailureMarksError(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	docs.On("CreateDocument", mock.Anything, mock.Anything).Return(nil)
	docs.On("BulkCreateChunks", mock.Anything, mock.Anything).
		Return(&apperrors.StorageError{Op: "create chunks", Err: errors.New("deadlock")})
	docs.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusError, 0).Return(nil)

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{})
	_, err := c.Ingest(context.Background(), uploadInput())

	var perr *apperrors.ProcessingError
	require.True(t, errors.As(err, &perr))
	docs.AssertCalled(t, "UpdateStatus", mock.Anything, mock.Anything, models.StatusError, 0)
	// The document row stays behind for inspection.
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIngestWithoutEmbeddingProvider(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	docs.On("CreateDocument", mock.Anything, mock.Anything).Return(nil)
	docs.On("BulkCreateChunks", mock.Anything, mock.MatchedBy(func(chunks []models.Chunk) bool {
		for _, ch := range chunks {
			if ch.Embedded {
				return false
			}
		}
		return len(chunks) > 0
	})).Return(nil)
	docs.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusProcessed, mock.Anything).Return(nil)

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{enabled: false})
	summary, err := c.Ingest(context.Background(), uploadInput())

	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, summary.Status)
	vectors.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestIngestVectorStorageFailureDegrades(t *testing.T) {
	docs, vectors, blobs := &mockDocs{}, &mockVectors{}, &mockBlobs{}
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	docs.On("CreateDocument", mock.Anything, mock.Anything).Return(nil)
	vectors.On("Add", mock.Anything, mock.Anything).
		Return(&apperrors.StorageError{Op: "insert vectors", Err: errors.New("milvus down")})
	docs.On("BulkCreateChunks", mock.Anything, mock.MatchedBy(func(chunks []models.Chunk) bool {
		for _, ch := range chunks {
			if ch.Embedded {
				return false
			}
		}
		return len(chunks) > 0
	})).Return(nil)
	docs.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusProcessed, mock.Anything).Return(nil)

	c := newTestCoordinator(docs, vectors, blobs, &stubEmbedder{enabled: true})
	summary, err := c.Ingest(context.Background(), uploadInput())

	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, summary.Status)
}
