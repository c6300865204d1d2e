package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectStoreMisconfigured = errors.New("object store is not configured")

type UploadInput struct {
	Key         string
	ContentType string
	Body        io.Reader
	// Size в байтах; 0 если неизвестен.
	Size int64
}

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStore хранит бинарные объекты (видео) во внешнем хранилище.
type ObjectStore interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	// Delete succeeds when the object is already absent.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetPublicURL(key string) string
}
