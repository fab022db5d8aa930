package fs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/bft-labs/folio/internal/ports"
)

// ObjectDir implements ports.ObjectStore on a local directory. Objects are
// laid out as {root}/{bucket}/{name} and served under {baseURL}/{bucket}/.
type ObjectDir struct {
	root    string
	baseURL string
}

// NewObjectDir creates an object store rooted at root.
func NewObjectDir(root, baseURL string) *ObjectDir {
	return &ObjectDir{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root returns the directory objects are written under.
func (d *ObjectDir) Root() string {
	return d.root
}

// Upload writes body to {root}/{bucket}/{name}. Without Upsert an existing
// object is an error.
func (d *ObjectDir) Upload(ctx context.Context, bucket, name string, body io.Reader, opts ports.UploadOptions) (string, error) {
	if err := checkSegment(bucket); err != nil {
		return "", err
	}
	if err := checkSegment(name); err != nil {
		return "", err
	}

	dir := filepath.Join(d.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if !opts.Upsert {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("object %s/%s already exists", bucket, name)
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return name, nil
}

// PublicURL returns {baseURL}/{bucket}/{path}.
func (d *ObjectDir) PublicURL(bucket, path string) string {
	return d.baseURL + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(path)
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid object path segment %q", s)
	}
	return nil
}
