package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bft-labs/folio/internal/ports"
)

// Upload implements ports.ObjectStore.
func (c *Client) Upload(ctx context.Context, bucket, name string, body io.Reader, opts ports.UploadOptions) (string, error) {
	headers := map[string]string{
		"x-upsert": strconv.FormatBool(opts.Upsert),
	}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	if opts.CacheControl != "" {
		headers["cache-control"] = "max-age=" + opts.CacheControl
	}

	data, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    storagePrefix + objectPath(bucket, name),
		body:    body,
		headers: headers,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}

	// The response Key is "{bucket}/{name}".
	var resp struct {
		Key string `json:"Key"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && resp.Key != "" {
		return strings.TrimPrefix(resp.Key, bucket+"/"), nil
	}
	return name, nil
}

// PublicURL implements ports.ObjectStore.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + storagePrefix + "public/" + objectPath(bucket, path)
}

func objectPath(bucket, name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}
