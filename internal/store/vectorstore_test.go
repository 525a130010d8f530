package store

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentFilter(t *testing.T) {
	expr := documentFilter([]string{"doc-1", "doc-2"})

	assert.Equal(t, `document_id in ["doc-1", "doc-2"]`, expr)
}

func TestEscapeExpr(t *testing.T) {
	assert.Equal(t, `plain-id`, escapeExpr(`plain-id`))
	assert.Equal(t, `a\"b`, escapeExpr(`a"b`))
	assert.Equal(t, `a\\b`, escapeExpr(`a\b`))
}

func TestVectorItemColumns(t *testing.T) {
	// The embedding column carries the vector dimensionality taken from
	// the first item; all items of one document share it.
	vectors := [][]float32{{1, 2, 3}, {4, 5, 6}}
	col := entity.NewColumnFloatVector("embedding", len(vectors[0]), vectors)

	require.NotNil(t, col)
	assert.Equal(t, 3, col.Dim())
	assert.Equal(t, 2, col.Len())
}
