package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	logAdapter "github.com/bft-labs/folio/internal/adapters/log"
	"github.com/bft-labs/folio/internal/app"
	"github.com/bft-labs/folio/internal/auth"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/testkit/storefakes"
	"github.com/bft-labs/folio/internal/upload"
)

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memTokens) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type harness struct {
	srv     *httptest.Server
	store   *storefakes.Store
	objects *storefakes.ObjectStore
	token   string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	logger := logAdapter.NewNoopLogger()
	h := &harness{store: storefakes.NewStore(), objects: storefakes.NewObjectStore()}
	h.store.Seed(domain.TableSiteContent, domain.DefaultSiteContent())
	h.store.Seed(domain.TableThemeSettings, domain.ThemeSettings{ID: 1, AccentColor: "#FF0080", GlowIntensity: 0.5})

	p := app.NewPortfolio(h.store, storefakes.NewFeed(), upload.New(h.objects, logger), logger)
	require.NoError(t, p.Warm(context.Background()))
	t.Cleanup(p.Close)

	a := auth.New(auth.Config{}, &memTokens{}, logger)
	h.srv = httptest.NewServer(New(p, a, logger, opts...))
	t.Cleanup(h.srv.Close)

	token, err := a.Login(context.Background(), auth.DefaultUsername, auth.DefaultPassword)
	require.NoError(t, err)
	h.token = token
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, admin bool) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, r)
	require.NoError(t, err)
	if admin {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) upload(t *testing.T, path, filename, contentType, data string, admin bool) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte(data))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if admin {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPublicReads(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/site-content", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, domain.DefaultSiteContent(), decode[domain.SiteContent](t, resp))

	resp = h.do(t, http.MethodGet, "/api/projects", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[[]domain.Project](t, resp))

	resp = h.do(t, http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestThemeCSS(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/theme.css", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/css; charset=utf-8", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "--accent-color: #FF0080;")
	require.Contains(t, string(body), "--accent-rgb: 255, 0, 128;")
	require.Contains(t, string(body), "--glow-intensity: 0.5;")
}

func TestThemeCSS_InvalidColorFallsBack(t *testing.T) {
	css := ThemeCSS(domain.ThemeSettings{AccentColor: "green", GlowIntensity: 1})
	require.Contains(t, css, "--accent-color: "+domain.DefaultAccentColor+";")
	require.Contains(t, css, "--accent-rgb: 57, 255, 20;")
}

func TestAdmin_RequiresToken(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic YWRtaW46YWRtaW4xMjM="},
		{"wrong token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/api/admin/messages", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := h.srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.NotEmpty(t, decode[errorBody](t, resp).Error)
		})
	}
}

func TestLoginAndLogout(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "admin", Password: "wrong"}, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "admin", Password: "admin123"}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h.token = decode[loginResponse](t, resp).Token
	require.NotEmpty(t, h.token)

	resp = h.do(t, http.MethodPost, "/api/admin/logout", nil, true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/admin/messages", nil, true)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_ProjectCRUD(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/admin/projects", domain.Project{Title: "Folio"}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[domain.Project](t, resp)
	require.Positive(t, created.ID)

	resp = h.do(t, http.MethodPatch, "/api/admin/projects/"+created.ID.String(), map[string]any{"title": "Folio 2"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Folio 2", decode[domain.Project](t, resp).Title)

	resp = h.do(t, http.MethodGet, "/api/projects", nil, false)
	require.Equal(t, []domain.Project{{ID: created.ID, Title: "Folio 2"}}, decode[[]domain.Project](t, resp))

	resp = h.do(t, http.MethodDelete, "/api/admin/projects/"+created.ID.String(), nil, true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/projects", nil, false)
	require.Empty(t, decode[[]domain.Project](t, resp))
}

func TestAdmin_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		method string
		path   string
		body   any
		want   int
	}{
		{"blank skill name", nil, http.MethodPost, "/api/admin/skills", domain.Skill{Name: " "}, http.StatusBadRequest},
		{"percentage out of range", nil, http.MethodPost, "/api/admin/skills", domain.Skill{Name: "Go", Percentage: 120}, http.StatusBadRequest},
		{"bad accent color", nil, http.MethodPatch, "/api/admin/theme-settings", map[string]any{"accent_color": "red"}, http.StatusBadRequest},
		{"empty patch", nil, http.MethodPatch, "/api/admin/site-content", map[string]any{}, http.StatusBadRequest},
		{"bad id", nil, http.MethodDelete, "/api/admin/projects/abc", nil, http.StatusBadRequest},
		{"zero id", nil, http.MethodDelete, "/api/admin/projects/0", nil, http.StatusBadRequest},
		{"mistyped site content", nil, http.MethodPatch, "/api/admin/site-content", map[string]any{"hero_title": 5}, http.StatusBadRequest},
		{"mistyped project link", func(h *harness) {
			h.store.Seed(domain.TableProjects, domain.Project{ID: 1, Title: "A"})
		}, http.MethodPatch, "/api/admin/projects/1", map[string]any{"link": 5}, http.StatusBadRequest},
		{"remote failure", func(h *harness) {
			h.store.Fail(domain.TableGallery, storefakes.OpInsert, errors.New("boom"))
		}, http.MethodPost, "/api/admin/gallery", domain.GalleryItem{Title: "Shot", ImageURL: "https://x/y.png"}, http.StatusBadGateway},
		{"remote not found", func(h *harness) {
			h.store.Fail(domain.TableSkills, storefakes.OpUpdate, domain.ErrNotFound)
		}, http.MethodPatch, "/api/admin/skills/9", map[string]any{"name": "Rust"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h)
			}
			resp := h.do(t, tt.method, tt.path, tt.body, true)
			require.Equal(t, tt.want, resp.StatusCode)
			require.NotEmpty(t, decode[errorBody](t, resp).Error)
		})
	}
}

func TestMessages_SubmitAndInbox(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/messages", domain.Message{Name: "Ada", Email: "", Message: "hi"}, false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/messages", domain.Message{Name: " Ada ", Email: "ada@example.com", Message: "hi"}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[domain.Message](t, resp)
	require.Equal(t, "Ada", msg.Name)

	resp = h.do(t, http.MethodPost, "/api/admin/messages/"+msg.ID.String()+"/read", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decode[domain.Message](t, resp).Read)

	resp = h.do(t, http.MethodGet, "/api/admin/messages", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// The fake feed delivers nothing, so the inbox keeps its warmed value.
	inbox := decode[inboxResponse](t, resp)
	require.Empty(t, inbox.Messages)
	require.Zero(t, inbox.Unread)
}

func TestUploads(t *testing.T) {
	h := newHarness(t)

	resp := h.upload(t, "/api/uploads/voice", "clip.png", "image/png", "x", false)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	require.Zero(t, h.objects.Uploads)

	resp = h.upload(t, "/api/uploads/pdf", "cv.pdf", "application/pdf", "x", false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.upload(t, "/api/uploads/voice", "note.webm", "audio/webm", "abc", false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	url := decode[uploadResponse](t, resp).URL
	require.True(t, strings.HasPrefix(url, "https://cdn.test/uploads/"), url)
	require.True(t, strings.HasSuffix(url, "-note.webm"), url)

	resp = h.upload(t, "/api/admin/uploads/pdf", "cv.pdf", "application/pdf", "%PDF", true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.upload(t, "/api/admin/uploads/pdf", "cv.pdf", "application/pdf", "%PDF", false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploads_MissingFile(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/uploads/image", map[string]string{}, false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProfilePhoto(t *testing.T) {
	h := newHarness(t)

	resp := h.upload(t, "/api/admin/site-content/photo", "me.jpg", "image/jpeg", "jpg", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	site := decode[domain.SiteContent](t, resp)
	require.True(t, strings.HasSuffix(site.ProfilePhotoURL, "-me.jpg"), site.ProfilePhotoURL)

	resp = h.do(t, http.MethodGet, "/api/site-content", nil, false)
	require.Equal(t, site, decode[domain.SiteContent](t, resp))
}

func TestUploadsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads", "a.txt"), []byte("hello"), 0o644))

	h := newHarness(t, WithUploadsDir(dir, "/uploads"))
	resp := h.do(t, http.MethodGet, "/uploads/uploads/a.txt", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.ValidationError{Field: "f", Reason: "r"}, http.StatusBadRequest},
		{domain.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrWriteFailed, http.StatusBadGateway},
		{&domain.QueryError{Key: "projects", Err: errors.New("x")}, http.StatusBadGateway},
		{fmt.Errorf("photo: %w", domain.ErrUploadsDisabled), http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
