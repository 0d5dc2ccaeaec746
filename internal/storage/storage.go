// Package storage contains the object store abstraction, its S3-compatible backends
// and the Gateway used by the photo lifecycle.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned by backends when a key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrStoreUnavailable wraps every failure the Gateway reports to its callers.
	ErrStoreUnavailable = errors.New("object store unavailable")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size must be the exact number of bytes in the reader. Metadata is stored as
// object user metadata (x-amz-meta-*), so values must be ASCII.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the narrow object store contract: put, head, delete and presigned GET.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put uploads an object under the given key in a single request.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Stat returns object info, or ErrObjectNotFound when the key does not exist.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
