package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/database/milvus"
)

// VectorItem is one chunk embedding to be stored.
type VectorItem struct {
	ChunkID    string
	DocumentID string
	OwnerID    string
	Vector     []float32
}

// VectorHit is one nearest-neighbor result.
type VectorHit struct {
	ChunkID string
	Score   float32
}

// VectorStore holds chunk embeddings and answers nearest-neighbor
// queries scoped to a document set.
type VectorStore interface {
	Add(ctx context.Context, items []VectorItem) error
	Search(ctx context.Context, vector []float32, topK int, docIDs []string) ([]VectorHit, error)
	DeleteByDocument(ctx context.Context, docID string) error
}

// MilvusStore is a VectorStore backed by a Milvus collection.
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore wraps an initialized Milvus client.
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

func (s *MilvusStore) Add(ctx context.Context, items []VectorItem) error {
	if len(items) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(items))
	docIDs := make([]string, len(items))
	ownerIDs := make([]string, len(items))
	vectors := make([][]float32, len(items))
	for i, item := range items {
		chunkIDs[i] = item.ChunkID
		docIDs[i] = item.DocumentID
		ownerIDs[i] = item.OwnerID
		vectors[i] = item.Vector
	}

	_, err := s.client.Client.Insert(ctx, s.client.Config.Collection, "",
		entity.NewColumnVarChar(milvus.FieldChunkID, chunkIDs),
		entity.NewColumnVarChar(milvus.FieldDocumentID, docIDs),
		entity.NewColumnVarChar(milvus.FieldOwnerID, ownerIDs),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, len(vectors[0]), vectors),
	)
	if err != nil {
		return &apperrors.StorageError{Op: "insert vectors", Err: err}
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, docIDs []string) ([]VectorHit, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "build search params", Err: err}
	}

	results, err := s.client.Client.Search(
		ctx,
		s.client.Config.Collection,
		nil,
		documentFilter(docIDs),
		[]string{milvus.FieldChunkID},
		[]entity.Vector{entity.FloatVector(vector)},
		milvus.FieldEmbedding,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "vector search", Err: err}
	}

	var hits []VectorHit
	for _, result := range results {
		idCol, ok := result.IDs.(*entity.ColumnVarChar)
		if !ok {
			return nil, &apperrors.StorageError{Op: "vector search",
				Err: fmt.Errorf("unexpected id column type %T", result.IDs)}
		}
		for i := 0; i < result.ResultCount; i++ {
			id, err := idCol.ValueByIdx(i)
			if err != nil {
				return nil, &apperrors.StorageError{Op: "vector search", Err: err}
			}
			hits = append(hits, VectorHit{ChunkID: id, Score: result.Scores[i]})
		}
	}
	return hits, nil
}

func (s *MilvusStore) DeleteByDocument(ctx context.Context, docID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, milvus.FieldDocumentID, escapeExpr(docID))
	if err := s.client.Client.Delete(ctx, s.client.Config.Collection, "", expr); err != nil {
		return &apperrors.StorageError{Op: "delete vectors", Err: err}
	}
	return nil
}

// documentFilter builds a boolean expression restricting a search to
// the given document IDs.
func documentFilter(docIDs []string) string {
	quoted := make([]string, len(docIDs))
	for i, id := range docIDs {
		quoted[i] = fmt.Sprintf(`"%s"`, escapeExpr(id))
	}
	return fmt.Sprintf("%s in [%s]", milvus.FieldDocumentID, strings.Join(quoted, ", "))
}

// escapeExpr escapes quote characters in values embedded into a Milvus
// boolean expression. IDs are UUIDs in practice, but the store does not
// rely on that.
func escapeExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

var _ VectorStore = (*MilvusStore)(nil)
