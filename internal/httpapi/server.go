// Package httpapi serves the portfolio over HTTP: public reads, the contact
// form, uploads and the token-gated admin routes.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/folio/internal/app"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
	"github.com/bft-labs/folio/internal/upload"
)

// DefaultMaxUploadBytes bounds multipart upload bodies.
const DefaultMaxUploadBytes = 20 << 20

// Authenticator is the admin gate used by the server.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context) error
	Verify(ctx context.Context, token string) error
}

// Server routes HTTP requests to the portfolio service.
type Server struct {
	portfolio *app.Portfolio
	auth      Authenticator
	logger    ports.Logger
	mux       *http.ServeMux

	uploadsDir     string
	uploadsPrefix  string
	maxUploadBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithUploadsDir serves files under dir at prefix (local storage only).
func WithUploadsDir(dir, prefix string) Option {
	return func(s *Server) {
		s.uploadsDir = dir
		s.uploadsPrefix = "/" + strings.Trim(prefix, "/") + "/"
	}
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// New creates the server and registers its routes.
func New(p *app.Portfolio, auth Authenticator, logger ports.Logger, opts ...Option) *Server {
	s := &Server{
		portfolio:      p,
		auth:           auth,
		logger:         logger.With(ports.Component("httpapi")),
		mux:            http.NewServeMux(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	p := s.portfolio

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("GET /theme.css", s.handleThemeCSS)

	s.mux.HandleFunc("GET /api/site-content", serveRead(s, p.SiteContent))
	s.mux.HandleFunc("GET /api/projects", serveRead(s, p.Projects))
	s.mux.HandleFunc("GET /api/skills", serveRead(s, p.Skills))
	s.mux.HandleFunc("GET /api/gallery", serveRead(s, p.Gallery))
	s.mux.HandleFunc("GET /api/theme-settings", serveRead(s, p.ThemeSettings))
	s.mux.HandleFunc("POST /api/messages", s.handleSubmitMessage)
	s.mux.HandleFunc("POST /api/uploads/{kind}", s.handleUpload(upload.KindImage, upload.KindVoice))

	if s.uploadsDir != "" {
		s.mux.Handle("GET "+s.uploadsPrefix, http.StripPrefix(s.uploadsPrefix, http.FileServer(http.Dir(s.uploadsDir))))
	}

	s.mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/admin/logout", s.admin(s.handleLogout))

	s.mux.HandleFunc("PATCH /api/admin/site-content", s.admin(servePatch(s, p.UpdateSiteContent)))
	s.mux.HandleFunc("POST /api/admin/site-content/photo", s.admin(s.handleProfilePhoto))
	s.mux.HandleFunc("PATCH /api/admin/theme-settings", s.admin(servePatch(s, p.UpdateThemeSettings)))

	registerCollection(s, "projects", p.AddProject, p.UpdateProject, p.DeleteProject)
	registerCollection(s, "skills", p.AddSkill, p.UpdateSkill, p.DeleteSkill)
	registerCollection(s, "gallery", p.AddGalleryItem, p.UpdateGalleryItem, p.DeleteGalleryItem)

	s.mux.HandleFunc("GET /api/admin/messages", s.admin(s.handleInbox))
	s.mux.HandleFunc("DELETE /api/admin/messages/{id}", s.admin(serveDelete(s, p.DeleteMessage)))
	s.mux.HandleFunc("POST /api/admin/messages/{id}/read", s.admin(s.handleMarkRead))
	s.mux.HandleFunc("POST /api/admin/uploads/{kind}", s.admin(s.handleUpload(upload.KindImage, upload.KindPDF, upload.KindFile)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debug("http request",
		ports.String("method", r.Method),
		ports.String("path", r.URL.Path),
		ports.Int("status", rec.status),
		ports.Duration("duration", time.Since(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// fail writes err with its mapped status. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			ports.String("method", r.Method),
			ports.String("path", r.URL.Path),
			ports.Err(err))
	}
	writeError(w, status, err.Error())
}

func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			s.fail(w, r, fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized))
			return
		}
		if err := s.auth.Verify(r.Context(), token); err != nil {
			s.fail(w, r, err)
			return
		}
		next(w, r)
	}
}

func serveRead[V any](s *Server, read func(context.Context) (V, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := read(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func servePatch[V any](s *Server, update func(context.Context, domain.Patch) (V, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch, err := decodePatch(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		v, err := update(r.Context(), patch)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func serveDelete(s *Server, del func(context.Context, domain.ID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func registerCollection[T any](
	s *Server,
	name string,
	create func(context.Context, T) (T, error),
	update func(context.Context, domain.ID, domain.Patch) (T, error),
	del func(context.Context, domain.ID) error,
) {
	base := "/api/admin/" + name
	s.mux.HandleFunc("POST "+base, s.admin(func(w http.ResponseWriter, r *http.Request) {
		var rec T
		if err := decodeJSON(r, &rec); err != nil {
			s.fail(w, r, err)
			return
		}
		created, err := create(r.Context(), rec)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}))
	s.mux.HandleFunc("PATCH "+base+"/{id}", s.admin(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		patch, err := decodePatch(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		updated, err := update(r.Context(), id, patch)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}))
	s.mux.HandleFunc("DELETE "+base+"/{id}", s.admin(serveDelete(s, del)))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inboxResponse struct {
	Messages []domain.Message `json:"messages"`
	Unread   int              `json:"unread"`
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.portfolio.Messages(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inboxResponse{Messages: msgs, Unread: domain.UnreadCount(msgs)})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body := struct {
		Read *bool `json:"read"`
	}{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	read := true
	if body.Read != nil {
		read = *body.Read
	}
	msg, err := s.portfolio.MarkMessageRead(r.Context(), id, read)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var m domain.Message
	if err := decodeJSON(r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	stored, err := s.portfolio.SubmitMessage(r.Context(), m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "must be valid JSON: " + err.Error()}
	}
	return nil
}

func decodePatch(r *http.Request) (domain.Patch, error) {
	var patch domain.Patch
	if err := decodeJSON(r, &patch); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, &domain.ValidationError{Field: "body", Reason: "must name at least one column"}
	}
	return patch, nil
}

func pathID(r *http.Request) (domain.ID, error) {
	n, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || n <= 0 {
		return 0, &domain.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return domain.ID(n), nil
}
