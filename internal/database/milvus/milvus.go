package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/dangtiendungai/docquery/internal/config"
)

// Field names of the chunk embedding collection.
const (
	FieldChunkID    = "chunk_id"
	FieldDocumentID = "document_id"
	FieldOwnerID    = "owner_id"
	FieldEmbedding  = "embedding"
)

var (
	instance *Client
	once     sync.Once
	initErr  error
)

// Client wraps the Milvus SDK client together with its configuration.
type Client struct {
	Client client.Client
	Config *config.MilvusConfig
}

// GetClient initializes and returns the Milvus client. The connection
// is established once per process; later calls return the existing
// client.
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("cannot connect to Milvus: %w", err)
			return
		}
		instance = &Client{Client: c, Config: cfg}
	})
	return instance, initErr
}

// EnsureCollection creates the chunk embedding collection, its index,
// and loads it into memory. Safe to call on every startup.
func (c *Client) EnsureCollection(ctx context.Context) error {
	coll := c.Config.Collection

	has, err := c.Client.HasCollection(ctx, coll)
	if err != nil {
		return fmt.Errorf("check collection '%s': %w", coll, err)
	}

	if !has {
		schema := entity.NewSchema().
			WithName(coll).
			WithDescription("embedding vectors for document chunks").
			WithField(entity.NewField().
				WithName(FieldChunkID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(FieldDocumentID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64)).
			WithField(entity.NewField().
				WithName(FieldOwnerID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64)).
			WithField(entity.NewField().
				WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(c.Config.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, 1); err != nil {
			return fmt.Errorf("create collection '%s': %w", coll, err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
		if err != nil {
			return fmt.Errorf("build index definition: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, coll, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("create index on '%s': %w", coll, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, coll, false); err != nil {
		return fmt.Errorf("load collection '%s': %w", coll, err)
	}
	return nil
}

// HealthCheck verifies the Milvus connection by listing collections.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client not initialized")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// Close closes the connection to Milvus.
func (c *Client) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
