package folio_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/folio/internal/adapters/fs"
	logAdapter "github.com/bft-labs/folio/internal/adapters/log"
	"github.com/bft-labs/folio/internal/auth"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/testkit/storefakes"
	"github.com/bft-labs/folio/internal/upload"
	"github.com/bft-labs/folio/pkg/folio"
)

type recorder struct {
	mu     sync.Mutex
	states []folio.State
}

func (r *recorder) OnStateChange(e folio.StateChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, e.Current)
}

func (r *recorder) seen() []folio.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]folio.State(nil), r.states...)
}

func localConfig(t *testing.T) folio.Config {
	t.Helper()
	return folio.Config{
		Backend:         folio.BackendLocal,
		DataDir:         t.TempDir(),
		ListenAddr:      "127.0.0.1:0",
		ShutdownTimeout: 5 * time.Second,
	}
}

func startFolio(t *testing.T, cfg folio.Config, opts ...folio.Option) *folio.Folio {
	t.Helper()
	f, err := folio.New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() { _ = f.Stop() })
	return f
}

func call(t *testing.T, f *folio.Folio, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, "http://"+f.Addr()+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func login(t *testing.T, f *folio.Folio) string {
	t.Helper()
	resp, data := call(t, f, http.MethodPost, "/api/admin/login", "", map[string]string{
		"username": auth.DefaultUsername, "password": auth.DefaultPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var out struct{ Token string }
	require.NoError(t, json.Unmarshal(data, &out))
	return out.Token
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  folio.Config
	}{
		{"local without data dir", folio.Config{Backend: folio.BackendLocal}},
		{"hosted without key", folio.Config{Backend: folio.BackendHosted, SupabaseURL: "https://x.supabase.co", TokenFile: "/tmp/t"}},
		{"unknown backend", folio.Config{Backend: "ftp", DataDir: "/tmp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := folio.New(tt.cfg)
			require.ErrorIs(t, err, folio.ErrInvalidConfig)
		})
	}
}

func TestLifecycle(t *testing.T) {
	rec := &recorder{}
	f, err := folio.New(localConfig(t), folio.WithEventHandler(rec))
	require.NoError(t, err)
	require.Equal(t, folio.StateStopped, f.Status())
	require.ErrorIs(t, f.Stop(), folio.ErrNotRunning)

	require.NoError(t, f.Start(context.Background()))
	require.Equal(t, folio.StateRunning, f.Status())
	require.NotEmpty(t, f.Addr())
	require.ErrorIs(t, f.Start(context.Background()), folio.ErrAlreadyRunning)

	require.NoError(t, f.Stop())
	require.Equal(t, folio.StateStopped, f.Status())
	require.Equal(t, []folio.State{
		folio.StateStarting, folio.StateRunning, folio.StateStopping, folio.StateStopped,
	}, rec.seen())

	// Restart reopens the same data directory.
	require.NoError(t, f.Start(context.Background()))
	require.Equal(t, folio.StateRunning, f.Status())
	require.NoError(t, f.Stop())
}

func TestStart_ListenFailureCrashes(t *testing.T) {
	cfg := localConfig(t)
	cfg.ListenAddr = "256.0.0.1:99999"
	f, err := folio.New(cfg)
	require.NoError(t, err)
	require.Error(t, f.Start(context.Background()))
	require.Equal(t, folio.StateCrashed, f.Status())
}

func TestLocalBackend_EndToEnd(t *testing.T) {
	f := startFolio(t, localConfig(t))

	resp, data := call(t, f, http.MethodGet, "/api/site-content", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var site domain.SiteContent
	require.NoError(t, json.Unmarshal(data, &site))
	require.Equal(t, domain.DefaultSiteContent(), site)

	token := login(t, f)
	resp, data = call(t, f, http.MethodPost, "/api/admin/projects", token, domain.Project{Title: "Folio"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = call(t, f, http.MethodGet, "/api/projects", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var projects []domain.Project
	require.NoError(t, json.Unmarshal(data, &projects))
	require.Len(t, projects, 1)
	require.Equal(t, "Folio", projects[0].Title)

	// The inbox hears about public submissions through the feed.
	resp, _ = call(t, f, http.MethodPost, "/api/messages", "", domain.Message{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msgs, err := f.Portfolio().Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	n, err := f.Portfolio().UnreadCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLocalBackend_ServesUploads(t *testing.T) {
	f := startFolio(t, localConfig(t))

	link, err := f.Portfolio().Upload(context.Background(), upload.KindFile, upload.File{
		Name: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u.Path, "/uploads/uploads/"), u.Path)

	resp, data := call(t, f, http.MethodGet, u.Path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", string(data))
}

func TestTokenFileChangesAreNoticed(t *testing.T) {
	cfg := localConfig(t)
	f := startFolio(t, cfg)
	token := login(t, f)

	// A second process (the CLI) shares the token file.
	cli := auth.New(auth.Config{}, fs.NewTokenFile(cfg.DataDir+"/"+fs.DefaultTokenFileName), logAdapter.NewNoopLogger())
	require.NoError(t, cli.Logout(context.Background()))

	require.Eventually(t, func() bool {
		resp, _ := call(t, f, http.MethodGet, "/api/admin/messages", token, nil)
		return resp.StatusCode == http.StatusUnauthorized
	}, 3*time.Second, 20*time.Millisecond)

	fresh, err := cli.Login(context.Background(), auth.DefaultUsername, auth.DefaultPassword)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		resp, _ := call(t, f, http.MethodGet, "/api/admin/messages", fresh, nil)
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)
}

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

func TestInjectedAdapters(t *testing.T) {
	store := storefakes.NewStore()
	store.Seed(domain.TableSkills, domain.Skill{ID: 3, Name: "Go", Percentage: 90})
	feed := storefakes.NewFeed()

	cfg := folio.Config{
		Backend:     folio.BackendHosted,
		SupabaseURL: "https://example.supabase.co",
		SupabaseKey: "anon",
		TokenFile:   "unused",
		ListenAddr:  "127.0.0.1:0",
	}
	f := startFolio(t, cfg,
		folio.WithDataStore(store),
		folio.WithFeed(feed),
		folio.WithObjectStore(storefakes.NewObjectStore()),
		folio.WithTokenStore(&memTokens{}),
	)
	require.Equal(t, len(domain.Tables), feed.Opened())

	resp, data := call(t, f, http.MethodGet, "/api/skills", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[{"id":3,"name":"Go","percentage":90}]`, string(data))

	feed.Emit(domain.TableSkills, domain.ChangeDelete, nil, map[string]any{"id": 3})
	resp, data = call(t, f, http.MethodGet, "/api/skills", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(data))

	require.NoError(t, f.Stop())
	require.Zero(t, feed.Active(domain.TableSkills))
}

func TestStart_WarmFailureCrashes(t *testing.T) {
	feed := storefakes.NewFeed()
	feed.Err = errors.New("socket down")

	cfg := localConfig(t)
	f, err := folio.New(cfg, folio.WithFeed(feed))
	require.NoError(t, err)
	require.Error(t, f.Start(context.Background()))
	require.Equal(t, folio.StateCrashed, f.Status())

	// A crashed instance can be started again.
	feed.Err = nil
	require.NoError(t, f.Start(context.Background()))
	require.Equal(t, folio.StateRunning, f.Status())
	require.NoError(t, f.Stop())
}
