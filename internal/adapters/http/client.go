// Package http talks to the hosted backend: PostgREST for tables and the
// storage API for uploads.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

const (
	restPrefix    = "/rest/v1/"
	storagePrefix = "/storage/v1/object/"
)

// Client is the hosted backend client. It implements ports.DataStore and
// ports.ObjectStore.
type Client struct {
	baseURL string
	apiKey  string
	client  ports.HTTPClient
	logger  ports.Logger
}

// NewClient creates a client for the project at baseURL.
func NewClient(baseURL, apiKey string, client ports.HTTPClient, logger ports.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger.With(ports.Component("backend")),
	}
}

// Table implements ports.DataStore.
func (c *Client) Table(name string) ports.Table {
	return &Table{c: c, name: name}
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    io.Reader
	headers map[string]string
}

// do sends req and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("backend request",
		ports.String("method", r.method),
		ports.String("path", r.path),
		ports.Int("status", resp.StatusCode))

	if resp.StatusCode/100 != 2 {
		return nil, remoteError(resp.StatusCode, data)
	}
	return data, nil
}

// remoteError decodes PostgREST ({code, message}) and storage
// ({statusCode, error, message}) error bodies.
func remoteError(status int, body []byte) error {
	var payload struct {
		Code    any    `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	rerr := &domain.RemoteError{Status: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Code != nil {
			rerr.Code = fmt.Sprint(payload.Code)
		} else {
			rerr.Code = payload.Error
		}
		rerr.Message = payload.Message
	}
	if rerr.Message == "" {
		rerr.Message = strings.TrimSpace(string(body))
	}
	if rerr.Message == "" {
		rerr.Message = http.StatusText(status)
	}
	return rerr
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
