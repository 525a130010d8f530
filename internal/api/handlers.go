package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dangtiendungai/docquery/internal/answer"
	"github.com/dangtiendungai/docquery/internal/apperrors"
	"github.com/dangtiendungai/docquery/internal/blob"
	"github.com/dangtiendungai/docquery/internal/ingest"
	"github.com/dangtiendungai/docquery/internal/retrieve"
	"github.com/dangtiendungai/docquery/internal/store"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

// ownerHeader carries the owner identity. Authentication itself sits in
// front of this service; the header is trusted as-is.
const ownerHeader = "X-Owner-ID"

// downloadURLTTL bounds presigned download links.
const downloadURLTTL = 15 * time.Minute

// previewLength bounds the chunk excerpt echoed in query responses.
const previewLength = 160

// Handler bundles the HTTP endpoint handlers.
type Handler struct {
	coordinator  *ingest.Coordinator
	retriever    *retrieve.Retriever
	synthesizer  *answer.Synthesizer
	docs         *store.DocumentStore
	vectors      store.VectorStore
	blobs        blob.Store
	defaultLimit int
	log          *logger.Logger
}

// NewHandler creates a Handler over the service components.
func NewHandler(coordinator *ingest.Coordinator, retriever *retrieve.Retriever, synthesizer *answer.Synthesizer, docs *store.DocumentStore, vectors store.VectorStore, blobs blob.Store, defaultLimit int, log *logger.Logger) *Handler {
	return &Handler{
		coordinator:  coordinator,
		retriever:    retriever,
		synthesizer:  synthesizer,
		docs:         docs,
		vectors:      vectors,
		blobs:        blobs,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

// ownerID extracts the owner header and rejects the request when it is
// missing.
func ownerID(c *gin.Context) (string, bool) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + ownerHeader + " header"})
		return "", false
	}
	return owner, true
}

// writeError maps component errors onto HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	var xerr *apperrors.ExtractionError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
	case errors.As(err, &xerr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": xerr.Error(), "cause": string(xerr.Cause)})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	default:
		h.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// UploadDocument handles POST /api/v1/documents. The file arrives as
// multipart form field "file".
func (h *Handler) UploadDocument(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field 'file'"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.writeError(c, err)
		return
	}

	summary, err := h.coordinator.Ingest(c.Request.Context(), ingest.UploadInput{
		OwnerID:  owner,
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// ListDocuments handles GET /api/v1/documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	docs, err := h.docs.ListDocuments(c.Request.Context(), owner)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// DownloadURL handles GET /api/v1/documents/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	doc, err := h.docs.GetDocument(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	url, err := h.blobs.PresignedURL(c.Request.Context(), doc.StoragePath, downloadURLTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresInSeconds": int(downloadURLTTL.Seconds())})
}

// DeleteDocument handles DELETE /api/v1/documents/:id. Rows, vectors,
// and the blob all go; a blob or vector cleanup failure is logged, not
// surfaced, since the rows are already gone.
func (h *Handler) DeleteDocument(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	doc, err := h.docs.DeleteDocument(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.vectors.DeleteByDocument(c.Request.Context(), doc.ID); err != nil {
		h.log.WithError(err).WithField("document_id", doc.ID).Warn("vector cleanup failed")
	}
	if doc.StoragePath != "" {
		if err := h.blobs.Delete(c.Request.Context(), doc.StoragePath); err != nil {
			h.log.WithError(err).WithField("document_id", doc.ID).Warn("blob cleanup failed")
		}
	}

	c.Status(http.StatusNoContent)
}

// QueryRequest is the POST /api/v1/query body.
type QueryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// querySource is one retrieved chunk echoed in the query response.
type querySource struct {
	DocumentID     string  `json:"documentId"`
	DocumentName   string  `json:"documentName"`
	ChunkIndex     int     `json:"chunkIndex"`
	Score          float32 `json:"score"`
	ContentPreview string  `json:"contentPreview"`
}

// Query handles POST /api/v1/query.
func (h *Handler) Query(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = h.defaultLimit
	}

	result, err := h.retriever.Retrieve(c.Request.Context(), owner, req.Query, req.Limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if result.ScopeEmpty {
		c.JSON(http.StatusOK, gin.H{
			"answer":    answer.NoInformationMessage,
			"citations": []string{},
			"sources":   []querySource{},
			"mode":      string(result.Mode),
		})
		return
	}

	ans := h.synthesizer.Synthesize(c.Request.Context(), req.Query, result.Chunks)

	sources := make([]querySource, len(result.Chunks))
	for i, ch := range result.Chunks {
		sources[i] = querySource{
			DocumentID:     ch.DocumentID,
			DocumentName:   ch.DocumentName,
			ChunkIndex:     ch.ChunkIndex,
			Score:          ch.Score,
			ContentPreview: preview(ch.Content),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":    ans.Text,
		"citations": ans.Citations,
		"sources":   sources,
		"mode":      string(result.Mode),
	})
}

// preview truncates content on a rune boundary for response payloads.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
