package models

import "time"

// Chunk is one contiguous, offset-tracked substring of a document's
// extracted text, the unit of retrieval. Chunks are immutable after
// creation and cascade-deleted with their document. The embedding vector
// itself lives in the vector store keyed by chunk ID; Embedded records
// whether one exists.
type Chunk struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	DocumentID    string    `gorm:"index:idx_doc_chunk,unique;not null;size:36" json:"documentId"`
	ChunkIndex    int       `gorm:"index:idx_doc_chunk,unique;not null" json:"chunkIndex"`
	Content       string    `gorm:"type:mediumtext;not null" json:"content"`
	StartChar     int       `gorm:"not null" json:"startChar"`
	EndChar       int       `gorm:"not null" json:"endChar"`
	TokenEstimate int       `gorm:"not null" json:"tokenEstimate"`
	Embedded      bool      `gorm:"not null;default:false" json:"embedded"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RetrievedChunk is a chunk annotated with the owning document's name and
// the retrieval score, carried from the retriever to the synthesizer.
type RetrievedChunk struct {
	DocumentID   string
	DocumentName string
	ChunkID      string
	ChunkIndex   int
	Content      string
	Score        float32
}
