// Package upload checks and stores user files in object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// DefaultBucket is the bucket uploads go to.
const DefaultBucket = "uploads"

// CacheControl is sent with every upload, in seconds.
const CacheControl = "3600"

// Kind says which content types an upload accepts.
type Kind string

const (
	KindImage Kind = "image"
	KindVoice Kind = "voice"
	KindPDF   Kind = "pdf"
	KindFile  Kind = "file"
)

// ParseKind maps a route segment to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindImage, KindVoice, KindPDF, KindFile:
		return k, true
	}
	return "", false
}

// CheckType reports domain.ErrUnsupportedType when contentType does not
// fit kind.
func CheckType(kind Kind, contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	var ok bool
	switch kind {
	case KindImage:
		ok = strings.HasPrefix(ct, "image/")
	case KindVoice:
		ok = strings.HasPrefix(ct, "audio/")
	case KindPDF:
		ok = ct == "application/pdf"
	case KindFile:
		ok = true
	default:
		return fmt.Errorf("unknown upload kind %q: %w", kind, domain.ErrUnsupportedType)
	}
	if !ok {
		return fmt.Errorf("%s upload with content type %q: %w", kind, contentType, domain.ErrUnsupportedType)
	}
	return nil
}

// File is an upload request.
type File struct {
	// Name is the client file name; only its base name is kept.
	Name        string
	ContentType string
	Body        io.Reader
}

// Uploader stores files under generated names.
type Uploader struct {
	store  ports.ObjectStore
	bucket string
	logger ports.Logger
	now    func() time.Time
	random func() string
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithBucket overrides DefaultBucket.
func WithBucket(bucket string) Option {
	return func(u *Uploader) {
		if bucket != "" {
			u.bucket = bucket
		}
	}
}

// WithClock overrides the time source used in object names.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) { u.now = now }
}

// WithRandom overrides the random name component.
func WithRandom(fn func() string) Option {
	return func(u *Uploader) { u.random = fn }
}

// New creates an uploader over store.
func New(store ports.ObjectStore, logger ports.Logger, opts ...Option) *Uploader {
	u := &Uploader{
		store:  store,
		bucket: DefaultBucket,
		logger: logger.With(ports.Component("upload")),
		now:    time.Now,
		random: func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload checks f against kind, stores it and returns its public URL.
// A type mismatch is rejected before storage is contacted.
func (u *Uploader) Upload(ctx context.Context, kind Kind, f File) (string, error) {
	if err := CheckType(kind, f.ContentType); err != nil {
		return "", err
	}
	if f.Body == nil {
		return "", &domain.ValidationError{Field: "file", Reason: "is required"}
	}

	name := ObjectName(u.now(), u.random(), f.Name)
	stored, err := u.store.Upload(ctx, u.bucket, name, f.Body, ports.UploadOptions{
		ContentType:  f.ContentType,
		CacheControl: CacheControl,
		Upsert:       false,
	})
	if err != nil {
		u.logger.Error("upload failed",
			ports.String("kind", string(kind)),
			ports.String("name", name),
			ports.Err(err))
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	u.logger.Debug("file uploaded",
		ports.String("kind", string(kind)),
		ports.String("path", stored))
	return u.store.PublicURL(u.bucket, stored), nil
}

// UploadImage uploads an image/* file.
func (u *Uploader) UploadImage(ctx context.Context, f File) (string, error) {
	return u.Upload(ctx, KindImage, f)
}

// UploadVoice uploads an audio/* recording.
func (u *Uploader) UploadVoice(ctx context.Context, f File) (string, error) {
	return u.Upload(ctx, KindVoice, f)
}

// UploadPDF uploads an application/pdf document.
func (u *Uploader) UploadPDF(ctx context.Context, f File) (string, error) {
	return u.Upload(ctx, KindPDF, f)
}

// UploadFile uploads a file of any type.
func (u *Uploader) UploadFile(ctx context.Context, f File) (string, error) {
	return u.Upload(ctx, KindFile, f)
}

// ObjectName builds "{unix-ms}-{random}-{basename}".
func ObjectName(now time.Time, random, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	base = strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		return r
	}, base)
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), random, base)
}
