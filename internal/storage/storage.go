// Package storage provides the object-store client that receives uploaded
// backup files.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrAuthFailed indicates the store rejected the configured credentials.
var ErrAuthFailed = errors.New("object store rejected credentials")

// ErrBucketNotFound indicates the configured bucket could not be resolved.
var ErrBucketNotFound = errors.New("bucket not found")

// ObjectStore is the narrow upload capability the backup pipeline needs.
// Keys are POSIX-style relative paths; a repeated Put for the same key
// overwrites the previous object.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
}
