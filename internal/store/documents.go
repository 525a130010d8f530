package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/models"
)

// ErrNotFound is returned when a document does not exist or belongs to
// a different owner.
var ErrNotFound = errors.New("document not found")

// chunkInsertBatch bounds the row count of a single INSERT statement.
const chunkInsertBatch = 100

// DocumentStore is the MySQL access layer for documents and chunks.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore wraps an initialized GORM handle.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// AutoMigrate creates or updates the document and chunk tables.
func (s *DocumentStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Document{}, &models.Chunk{})
}

// CreateDocument inserts a new document row.
func (s *DocumentStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return &apperrors.StorageError{Op: "create document", Err: err}
	}
	return nil
}

// UpdateStatus moves a document to the given status and records its
// final chunk count.
func (s *DocumentStore) UpdateStatus(ctx context.Context, docID string, status models.DocumentStatus, chunkCount int) error {
	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", docID).
		Updates(map[string]any{"status": status, "chunk_count": chunkCount}).Error
	if err != nil {
		return &apperrors.StorageError{Op: "update document status", Err: err}
	}
	return nil
}

// GetDocument loads one document scoped to its owner.
func (s *DocumentStore) GetDocument(ctx context.Context, ownerID, docID string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, docID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &apperrors.StorageError{Op: "get document", Err: err}
	}
	return &doc, nil
}

// ListDocuments returns all documents of an owner, newest first.
func (s *DocumentStore) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, &apperrors.StorageError{Op: "list documents", Err: err}
	}
	return docs, nil
}

// ListProcessed returns the owner's documents in processed status. The
// result bounds every retrieval to content the owner can see.
func (s *DocumentStore) ListProcessed(ctx context.Context, ownerID string) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, models.StatusProcessed).
		Find(&docs).Error
	if err != nil {
		return nil, &apperrors.StorageError{Op: "list processed documents", Err: err}
	}
	return docs, nil
}

// CountEmbedded counts chunks with stored vectors across the given
// documents.
func (s *DocumentStore) CountEmbedded(ctx context.Context, docIDs []string) (int64, error) {
	if len(docIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Chunk{}).
		Where("document_id IN ? AND embedded = ?", docIDs, true).
		Count(&count).Error
	if err != nil {
		return 0, &apperrors.StorageError{Op: "count embedded chunks", Err: err}
	}
	return count, nil
}

// BulkCreateChunks inserts all chunk rows of a document in batches.
func (s *DocumentStore) BulkCreateChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(chunks, chunkInsertBatch).Error; err != nil {
		return &apperrors.StorageError{Op: "create chunks", Err: err}
	}
	return nil
}

// GetChunksByIDs loads chunks by primary key.
func (s *DocumentStore) GetChunksByIDs(ctx context.Context, chunkIDs []string) ([]models.Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	var chunks []models.Chunk
	if err := s.db.WithContext(ctx).Where("id IN ?", chunkIDs).Find(&chunks).Error; err != nil {
		return nil, &apperrors.StorageError{Op: "get chunks", Err: err}
	}
	return chunks, nil
}

// SearchLexical finds chunks of the given documents whose content
// contains the query, case-insensitively, in stable document order.
func (s *DocumentStore) SearchLexical(ctx context.Context, docIDs []string, query string, limit int) ([]models.Chunk, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	pattern := fmt.Sprintf("%%%s%%", escapeLike(query))
	var chunks []models.Chunk
	err := s.db.WithContext(ctx).
		Where("document_id IN ? AND LOWER(content) LIKE LOWER(?)", docIDs, pattern).
		Order("document_id, chunk_index").
		Limit(limit).
		Find(&chunks).Error
	if err != nil {
		return nil, &apperrors.StorageError{Op: "lexical search", Err: err}
	}
	return chunks, nil
}

// DeleteDocument removes a document and its chunks in one transaction.
// Returns ErrNotFound when the owner has no such document.
func (s *DocumentStore) DeleteDocument(ctx context.Context, ownerID, docID string) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&models.Chunk{}).Error; err != nil {
			return err
		}
		res := tx.Where("owner_id = ? AND id = ?", ownerID, docID).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &apperrors.StorageError{Op: "delete document", Err: err}
	}
	return doc, nil
}

// escapeLike neutralizes LIKE wildcards in user-supplied query text.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
