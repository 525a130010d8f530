package models

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType is the declared format of an uploaded file. It is derived from
// the filename extension, never sniffed from content.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDocx FileType = "docx"
	FileTypeTxt  FileType = "txt"
	FileTypeHTML FileType = "html"
)

// FileTypeFromName maps a filename to its declared FileType. The second
// return value is false for unsupported extensions.
func FileTypeFromName(name string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FileTypePDF, true
	case ".docx":
		return FileTypeDocx, true
	case ".txt":
		return FileTypeTxt, true
	case ".html", ".htm":
		return FileTypeHTML, true
	default:
		return "", false
	}
}

// DocumentStatus tracks a document through ingestion. "processed" and
// "error" are terminal; there is no retry transition.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusError      DocumentStatus = "error"
)

// Document is one ingested file. A document is created exactly once per
// upload and never re-chunked in place; re-ingestion creates a new row.
type Document struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	OwnerID       string         `gorm:"index;not null;size:255" json:"ownerId"`
	Name          string         `gorm:"not null;size:512" json:"name"`
	FileType      FileType       `gorm:"not null;size:8" json:"fileType"`
	FileSizeBytes int64          `gorm:"not null" json:"fileSizeBytes"`
	StoragePath   string         `gorm:"size:1024" json:"-"`
	TextContent   string         `gorm:"type:longtext" json:"-"`
	ChunkCount    int            `gorm:"not null;default:0" json:"chunkCount"`
	Status        DocumentStatus `gorm:"not null;size:16;index" json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`

	Chunks []Chunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// Summary is the caller-facing result of an ingestion.
type Summary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ChunkCount int            `json:"chunkCount"`
	Status     DocumentStatus `json:"status"`
}

// Summarize builds the upload response for a document.
func (d *Document) Summarize() *Summary {
	return &Summary{
		ID:         d.ID,
		Name:       d.Name,
		ChunkCount: d.ChunkCount,
		Status:     d.Status,
	}
}
