package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/dangtiendungai/docquery/internal/apperrors"
)

// Store holds the raw bytes of uploaded documents.
type Store interface {
	// Put writes data under the given object path.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Delete removes the object at the given path.
	Delete(ctx context.Context, objectPath string) error

	// PresignedURL returns a time-limited download URL for the object.
	PresignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
}

// MinioStore is a Store backed by a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore wraps an initialized MinIO client and target bucket.
func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

func (s *MinioStore) Put(ctx context.Context, objectPath string, data []byte) error {
	// Content-Type is sniffed from the bytes so downloads open with the
	// right handler regardless of the upload's file extension.
	contentType := mimetype.Detect(data).String()

	_, err := s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return &apperrors.StorageError{Op: "put object", Err: err}
	}
	return nil
}

func (s *MinioStore) Delete(ctx context.Context, objectPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return &apperrors.StorageError{Op: "delete object", Err: err}
	}
	return nil
}

func (s *MinioStore) PresignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, ttl, nil)
	if err != nil {
		return "", &apperrors.StorageError{Op: "presign object", Err: err}
	}
	return u.String(), nil
}

// ObjectPath builds a collision-free, owner-scoped object path for an
// uploaded file.
func ObjectPath(ownerID, filename string) string {
	return path.Join(ownerID,
		fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.New().String(), sanitizeName(filename)))
}

// sanitizeName keeps only path-safe characters of the original name.
func sanitizeName(name string) string {
	name = path.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

var _ Store = (*MinioStore)(nil)
