package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dangtiendungai/docquery/internal/database/milvus"
	"github.com/dangtiendungai/docquery/internal/database/minio"
	"github.com/dangtiendungai/docquery/internal/database/mysql"
)

// SetupRouter configures and returns the Gin engine. The Milvus client
// is taken separately because its health check hangs off the client,
// unlike the package-level MySQL and MinIO checks.
func SetupRouter(h *Handler, milvusClient *milvus.Client) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		healthz(c, milvusClient)
	})

	apiV1 := r.Group("/api/v1")
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("", h.UploadDocument)
			documents.GET("", h.ListDocuments)
			documents.GET("/:id/download-url", h.DownloadURL)
			documents.DELETE("/:id", h.DeleteDocument)
		}

		apiV1.POST("/query", h.Query)
	}

	return r
}

// healthz reports liveness plus reachability of every storage
// dependency. Any failing dependency degrades the whole check.
func healthz(c *gin.Context, milvusClient *milvus.Client) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	if err := mysql.HealthCheck(ctx); err != nil {
		failures["mysql"] = err.Error()
	}
	if err := milvusClient.HealthCheck(ctx); err != nil {
		failures["milvus"] = err.Error()
	}
	if err := minio.HealthCheck(ctx); err != nil {
		failures["minio"] = err.Error()
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "errors": failures})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
