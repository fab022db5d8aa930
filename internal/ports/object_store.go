package ports

import (
	"context"
	"io"
)

// UploadOptions tune a single upload.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// ObjectStore stores uploaded files in a bucket.
type ObjectStore interface {
	// Upload writes body under name and returns the stored object path.
	Upload(ctx context.Context, bucket, name string, body io.Reader, opts UploadOptions) (string, error)

	// PublicURL returns the public URL of a stored object path.
	PublicURL(bucket, path string) string
}
