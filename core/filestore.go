package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrFileNotFound is returned by Filestore implementations when deleting a
// blob that is already gone. Callers running best-effort cleanup treat it as
// success.
var ErrFileNotFound = errors.New("file not found")

// Filestore is the narrow port onto object storage. Keys follow the
// "{folder}/{generated filename}" convention.
type Filestore interface {
	// Upload stores the blob under key and returns its public URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
