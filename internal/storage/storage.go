// Package storage holds headshot images in an S3-compatible object store.
// Implementations stream bytes and never touch local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 when unknown.
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

// Storage is an S3-compatible object storage client.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// RefScheme prefixes object keys stored in a contact's photo reference.
const RefScheme = "s3://"

// Ref turns an object key into a photo reference.
func Ref(key string) string {
	return RefScheme + key
}

// KeyFromRef returns the object key of a photo reference and whether the
// reference points into object storage at all.
func KeyFromRef(ref string) (string, bool) {
	if len(ref) > len(RefScheme) && ref[:len(RefScheme)] == RefScheme {
		return ref[len(RefScheme):], true
	}
	return "", false
}
