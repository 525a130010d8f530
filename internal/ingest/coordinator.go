// Package ingest coordinates the document ingestion pipeline: validate,
// extract, chunk, persist the blob and rows, and embed. Failures before
// the document row exists are fully compensated; failures after it mark
// the row with status "error" instead of deleting it.
package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/blob"
	"github.com/dangtiendungai/docquery/internal/chunker"
	"github.com/dangtiendungai/docquery/internal/config"
	"github.com/dangtiendungai/docquery/internal/extractor"
	"github.com/dangtiendungai/docquery/internal/models"
	"github.com/dangtiendungai/docquery/internal/store"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

// DocumentWriter is the subset of the document store the pipeline
// writes through.
type DocumentWriter interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpdateStatus(ctx context.Context, docID string, status models.DocumentStatus, chunkCount int) error
	BulkCreateChunks(ctx context.Context, chunks []models.Chunk) error
}

// VectorWriter stores chunk embeddings.
type VectorWriter interface {
	Add(ctx context.Context, items []store.VectorItem) error
}

// Embedder turns chunk texts into optional vectors, one per text.
type Embedder interface {
	EmbedBatches(ctx context.Context, texts []string) []models.OptionalVector
}

// UploadInput is one file handed to the pipeline.
type UploadInput struct {
	OwnerID  string
	Filename string
	Data     []byte
}

// Coordinator runs the ingestion pipeline for uploaded documents.
type Coordinator struct {
	docs    DocumentWriter
	vectors VectorWriter
	blobs   blob.Store
	embed   Embedder
	cfg     config.IngestConfig
	log     *logger.Logger
}

// NewCoordinator wires the pipeline from its collaborators.
func NewCoordinator(docs DocumentWriter, vectors VectorWriter, blobs blob.Store, embed Embedder, cfg config.IngestConfig, log *logger.Logger) *Coordinator {
	return &Coordinator{
		docs:    docs,
		vectors: vectors,
		blobs:   blobs,
		embed:   embed,
		cfg:     cfg,
		log:     log,
	}
}

// step is one stage of the pipeline. compensate, when set, undoes the
// step's side effects and only runs while the document row does not
// exist yet; once it does, failures mark the row instead of unwinding.
type step struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context)
}

// pipelineState accumulates what the steps produce for one upload.
type pipelineState struct {
	in     UploadInput
	text   string
	chunks []chunker.Chunk
	doc    *models.Document
	rows   []models.Chunk
}

// Ingest runs the full pipeline for one upload and returns the stored
// document's summary. A nil embedding provider degrades the pipeline:
// the document still reaches "processed", with no vectors stored.
func (c *Coordinator) Ingest(ctx context.Context, in UploadInput) (*models.Summary, error) {
	if in.OwnerID == "" {
		return nil, apperrors.Validationf("owner ID is required")
	}
	fileType, ok := models.FileTypeFromName(in.Filename)
	if !ok {
		return nil, apperrors.Validationf("unsupported file type: %s", in.Filename)
	}
	if int64(len(in.Data)) > c.cfg.MaxFileSizeBytes {
		return nil, apperrors.Validationf("file exceeds the %d byte limit", c.cfg.MaxFileSizeBytes)
	}

	st := &pipelineState{in: in}
	storagePath := blob.ObjectPath(in.OwnerID, in.Filename)

	steps := []step{
		{
			name: "extract",
			run: func(ctx context.Context) error {
				ext, err := extractor.ForType(fileType)
				if err != nil {
					return err
				}
				st.text, err = ext.Extract(ctx, in.Data)
				return err
			},
		},
		{
			name: "chunk",
			run: func(ctx context.Context) error {
				st.chunks = chunker.Split(st.text, c.cfg.TokenBudget, c.cfg.OverlapRatio)
				return nil
			},
		},
		{
			name: "store blob",
			run: func(ctx context.Context) error {
				return c.blobs.Put(ctx, storagePath, in.Data)
			},
			compensate: func(ctx context.Context) {
				c.compensateBlob(ctx, storagePath)
			},
		},
		{
			name: "create document",
			run: func(ctx context.Context) error {
				st.doc = &models.Document{
					ID:            uuid.New().String(),
					OwnerID:       in.OwnerID,
					Name:          in.Filename,
					FileType:      fileType,
					FileSizeBytes: int64(len(in.Data)),
					StoragePath:   storagePath,
					TextContent:   st.text,
					ChunkCount:    len(st.chunks),
					Status:        models.StatusProcessing,
				}
				if err := c.docs.CreateDocument(ctx, st.doc); err != nil {
					st.doc = nil
					return err
				}
				return nil
			},
		},
		{
			name: "embed",
			run: func(ctx context.Context) error {
				rows, err := c.buildChunkRows(ctx, st.doc, st.chunks)
				st.rows = rows
				return err
			},
		},
		{
			name: "persist chunks",
			run: func(ctx context.Context) error {
				return c.docs.BulkCreateChunks(ctx, st.rows)
			},
		},
		{
			name: "finalize",
			run: func(ctx context.Context) error {
				return c.docs.UpdateStatus(ctx, st.doc.ID, models.StatusProcessed, len(st.rows))
			},
		},
	}

	var done []step
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			if st.doc != nil {
				return nil, c.markError(ctx, st.doc.ID, s.name, err)
			}
			for i := len(done) - 1; i >= 0; i-- {
				if done[i].compensate != nil {
					done[i].compensate(ctx)
				}
			}
			return nil, err
		}
		done = append(done, s)
	}

	st.doc.Status = models.StatusProcessed
	st.doc.ChunkCount = len(st.rows)
	c.log.WithField("document_id", st.doc.ID).
		WithField("chunk_count", len(st.rows)).
		Info("document ingested")
	return st.doc.Summarize(), nil
}

// buildChunkRows embeds the chunk texts and assembles the chunk rows.
// Vector storage is best-effort: when the write fails, the rows are
// kept with Embedded=false and retrieval degrades to lexical search.
func (c *Coordinator) buildChunkRows(ctx context.Context, doc *models.Document, chunks []chunker.Chunk) ([]models.Chunk, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors := c.embed.EmbedBatches(ctx, texts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]models.Chunk, len(chunks))
	var items []store.VectorItem
	for i, ch := range chunks {
		rows[i] = models.Chunk{
			ID:            uuid.New().String(),
			DocumentID:    doc.ID,
			ChunkIndex:    ch.Index,
			Content:       ch.Content,
			StartChar:     ch.StartChar,
			EndChar:       ch.EndChar,
			TokenEstimate: ch.TokenEstimate,
			Embedded:      vectors[i].Valid,
		}
		if vectors[i].Valid {
			items = append(items, store.VectorItem{
				ChunkID:    rows[i].ID,
				DocumentID: doc.ID,
				OwnerID:    doc.OwnerID,
				Vector:     vectors[i].Values,
			})
		}
	}

	if len(items) > 0 {
		if err := c.vectors.Add(ctx, items); err != nil {
			c.log.WithError(err).
				WithField("document_id", doc.ID).
				Warn("vector storage failed, falling back to lexical-only chunks")
			for i := range rows {
				rows[i].Embedded = false
			}
		}
	}
	return rows, nil
}

// markError moves the document to status "error". The update runs on a
// cancellation-free context so a caller timeout cannot leave the row
// stuck in "processing".
func (c *Coordinator) markError(ctx context.Context, docID, stage string, cause error) error {
	base := context.WithoutCancel(ctx)
	if err := c.docs.UpdateStatus(base, docID, models.StatusError, 0); err != nil {
		c.log.WithError(err).
			WithField("document_id", docID).
			Error("failed to mark document as errored")
	}
	return &apperrors.ProcessingError{Stage: stage, Err: cause}
}

// compensateBlob deletes an orphaned upload after a later step failed.
func (c *Coordinator) compensateBlob(ctx context.Context, storagePath string) {
	base := context.WithoutCancel(ctx)
	if err := c.blobs.Delete(base, storagePath); err != nil {
		c.log.WithError(err).
			WithField("storage_path", storagePath).
			Error("failed to delete orphaned blob")
	}
}
