// Package app wires the portfolio queries, the optimistic admin writes and
// uploads into one service with a start/stop lifecycle.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/folio/internal/cache"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/livequery"
	"github.com/bft-labs/folio/internal/mutation"
	"github.com/bft-labs/folio/internal/ports"
	"github.com/bft-labs/folio/internal/upload"
)

type releaser interface{ Release() }

// Portfolio is the read model and admin write surface of the site.
type Portfolio struct {
	cache  *cache.Client
	reg    *livequery.Registry
	store  ports.DataStore
	logger ports.Logger
	now    func() time.Time

	siteQ     *livequery.Singleton[domain.SiteContent]
	projectsQ *livequery.Collection[domain.Project]
	skillsQ   *livequery.Collection[domain.Skill]
	galleryQ  *livequery.Collection[domain.GalleryItem]
	messagesQ *livequery.Collection[domain.Message]
	themeQ    *livequery.Singleton[domain.ThemeSettings]

	siteW     *mutation.Singleton[domain.SiteContent]
	projectsW *mutation.Collection[domain.Project]
	skillsW   *mutation.Collection[domain.Skill]
	galleryW  *mutation.Collection[domain.GalleryItem]
	messagesW *mutation.Collection[domain.Message]
	themeW    *mutation.Singleton[domain.ThemeSettings]

	uploader *upload.Uploader

	mu      sync.Mutex
	handles map[string]releaser
}

// Option configures a Portfolio.
type Option func(*Portfolio)

// WithCache injects the cache the queries and writes share.
func WithCache(c *cache.Client) Option {
	return func(p *Portfolio) { p.cache = c }
}

// WithClock overrides the time source for submitted messages.
func WithClock(now func() time.Time) Option {
	return func(p *Portfolio) { p.now = now }
}

// NewPortfolio creates the service. A nil feed disables live updates.
func NewPortfolio(store ports.DataStore, feed ports.Feed, uploader *upload.Uploader, logger ports.Logger, opts ...Option) *Portfolio {
	p := &Portfolio{
		store:    store,
		logger:   logger,
		now:      time.Now,
		uploader: uploader,
		handles:  make(map[string]releaser),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = cache.New()
	}
	p.reg = livequery.NewRegistry(p.cache, feed, logger)

	p.siteQ = livequery.NewSingleton(p.reg, store, livequery.SingletonConfig[domain.SiteContent]{
		Key: KeySiteContent, Table: domain.TableSiteContent, ID: domain.SingletonID,
		StaleTime: SingletonStaleTime, Placeholder: domain.DefaultSiteContent(),
	})
	p.themeQ = livequery.NewSingleton(p.reg, store, livequery.SingletonConfig[domain.ThemeSettings]{
		Key: KeyThemeSettings, Table: domain.TableThemeSettings, ID: domain.SingletonID,
		StaleTime: SingletonStaleTime, Placeholder: domain.DefaultThemeSettings(),
	})
	p.projectsQ = livequery.NewCollection[domain.Project](p.reg, store, livequery.CollectionConfig{
		Key: KeyProjects, Table: domain.TableProjects, Order: idDesc, StaleTime: CollectionStaleTime,
	})
	p.skillsQ = livequery.NewCollection[domain.Skill](p.reg, store, livequery.CollectionConfig{
		Key: KeySkills, Table: domain.TableSkills, Order: idDesc, StaleTime: CollectionStaleTime,
	})
	p.galleryQ = livequery.NewCollection[domain.GalleryItem](p.reg, store, livequery.CollectionConfig{
		Key: KeyGallery, Table: domain.TableGallery, Order: idDesc, StaleTime: CollectionStaleTime,
	})
	p.messagesQ = livequery.NewCollection[domain.Message](p.reg, store, livequery.CollectionConfig{
		Key: KeyMessages, Table: domain.TableMessages, Order: createdAtDesc, StaleTime: MessagesStaleTime,
	})

	p.siteW = mutation.NewSingleton[domain.SiteContent](p.cache, KeySiteContent, domain.SingletonID, p.siteQ.Table(), logger)
	p.themeW = mutation.NewSingleton[domain.ThemeSettings](p.cache, KeyThemeSettings, domain.SingletonID, p.themeQ.Table(), logger)
	p.projectsW = mutation.NewCollection[domain.Project](p.cache, KeyProjects, p.projectsQ.Table(), logger)
	p.skillsW = mutation.NewCollection[domain.Skill](p.cache, KeySkills, p.skillsQ.Table(), logger)
	p.galleryW = mutation.NewCollection[domain.GalleryItem](p.cache, KeyGallery, p.galleryQ.Table(), logger)
	p.messagesW = mutation.NewCollection[domain.Message](p.cache, KeyMessages, p.messagesQ.Table(), logger)
	return p
}

// Cache returns the shared cache.
func (p *Portfolio) Cache() *cache.Client {
	return p.cache
}

// Uploader returns the uploader, or nil when uploads are not configured.
func (p *Portfolio) Uploader() *upload.Uploader {
	return p.uploader
}

// Warm acquires all six queries concurrently and holds them until Close.
// Fetch failures are logged and left on the handles; a subscription
// failure fails Warm and releases whatever was acquired.
func (p *Portfolio) Warm(ctx context.Context) error {
	type acquirer struct {
		key     string
		acquire func(context.Context) (releaser, error)
	}
	acquirers := []acquirer{
		{KeySiteContent, func(ctx context.Context) (releaser, error) { return p.siteQ.Acquire(ctx) }},
		{KeyProjects, func(ctx context.Context) (releaser, error) { return p.projectsQ.Acquire(ctx) }},
		{KeySkills, func(ctx context.Context) (releaser, error) { return p.skillsQ.Acquire(ctx) }},
		{KeyGallery, func(ctx context.Context) (releaser, error) { return p.galleryQ.Acquire(ctx) }},
		{KeyMessages, func(ctx context.Context) (releaser, error) { return p.messagesQ.Acquire(ctx) }},
		{KeyThemeSettings, func(ctx context.Context) (releaser, error) { return p.themeQ.Acquire(ctx) }},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range acquirers {
		g.Go(func() error {
			h, err := a.acquire(gctx)
			if err != nil {
				return fmt.Errorf("acquire %s: %w", a.key, err)
			}
			p.mu.Lock()
			if old, ok := p.handles[a.key]; ok {
				old.Release()
			}
			p.handles[a.key] = h
			p.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.Close()
		return err
	}

	for _, key := range Keys {
		if e, ok := p.cache.Entry(key); ok && e.Err != nil {
			p.logger.Warn("query warm-up failed", ports.String("key", key), ports.Err(e.Err))
		}
	}
	return nil
}

// Close releases every held query.
func (p *Portfolio) Close() {
	p.mu.Lock()
	handles := p.handles
	p.handles = make(map[string]releaser)
	p.mu.Unlock()
	for _, h := range handles {
		h.Release()
	}
}

// QueryErr returns the last fetch error recorded for key.
func (p *Portfolio) QueryErr(key string) error {
	e, ok := p.cache.Entry(key)
	if !ok {
		return nil
	}
	return e.Err
}

type source[V any] interface {
	Key() string
	Fetch(ctx context.Context) (V, error)
	Current() V
}

// read serves the cached value, refetching first when it is stale. A value
// that was never fetched reports the fetch error.
func read[V any](ctx context.Context, p *Portfolio, q source[V], stale time.Duration) (V, error) {
	if p.cache.IsStale(q.Key(), stale) {
		if _, err := q.Fetch(ctx); err != nil {
			if _, ok := p.cache.Get(q.Key()); !ok {
				return q.Current(), err
			}
		}
	}
	return q.Current(), nil
}

// SiteContent returns the hero copy.
func (p *Portfolio) SiteContent(ctx context.Context) (domain.SiteContent, error) {
	return read[domain.SiteContent](ctx, p, p.siteQ, SingletonStaleTime)
}

// Projects returns the projects, newest first.
func (p *Portfolio) Projects(ctx context.Context) ([]domain.Project, error) {
	return read[[]domain.Project](ctx, p, p.projectsQ, CollectionStaleTime)
}

// Skills returns the skills, newest first.
func (p *Portfolio) Skills(ctx context.Context) ([]domain.Skill, error) {
	return read[[]domain.Skill](ctx, p, p.skillsQ, CollectionStaleTime)
}

// Gallery returns the gallery items, newest first.
func (p *Portfolio) Gallery(ctx context.Context) ([]domain.GalleryItem, error) {
	return read[[]domain.GalleryItem](ctx, p, p.galleryQ, CollectionStaleTime)
}

// Messages returns the inbox, most recent first.
func (p *Portfolio) Messages(ctx context.Context) ([]domain.Message, error) {
	return read[[]domain.Message](ctx, p, p.messagesQ, MessagesStaleTime)
}

// ThemeSettings returns the theme.
func (p *Portfolio) ThemeSettings(ctx context.Context) (domain.ThemeSettings, error) {
	return read[domain.ThemeSettings](ctx, p, p.themeQ, SingletonStaleTime)
}

// UpdateSiteContent patches the hero copy.
func (p *Portfolio) UpdateSiteContent(ctx context.Context, patch domain.Patch) (domain.SiteContent, error) {
	if err := domain.ValidatePatchFor[domain.SiteContent](domain.TableSiteContent, patch); err != nil {
		return domain.SiteContent{}, err
	}
	return p.siteW.Update(ctx, patch)
}

// UpdateProfilePhoto uploads an image and points the site at it.
func (p *Portfolio) UpdateProfilePhoto(ctx context.Context, f upload.File) (domain.SiteContent, error) {
	if p.uploader == nil {
		return domain.SiteContent{}, domain.ErrUploadsDisabled
	}
	url, err := p.uploader.UploadImage(ctx, f)
	if err != nil {
		return domain.SiteContent{}, err
	}
	return p.siteW.Update(ctx, domain.Patch{"profile_photo_url": url})
}

// AddProject creates a project.
func (p *Portfolio) AddProject(ctx context.Context, pr domain.Project) (domain.Project, error) {
	if err := domain.ValidateProject(pr); err != nil {
		return domain.Project{}, err
	}
	return p.projectsW.Create(ctx, pr)
}

// UpdateProject patches a project.
func (p *Portfolio) UpdateProject(ctx context.Context, id domain.ID, patch domain.Patch) (domain.Project, error) {
	if err := domain.ValidatePatchFor[domain.Project](domain.TableProjects, patch); err != nil {
		return domain.Project{}, err
	}
	return p.projectsW.Update(ctx, id, patch)
}

// DeleteProject removes a project.
func (p *Portfolio) DeleteProject(ctx context.Context, id domain.ID) error {
	return p.projectsW.Delete(ctx, id)
}

// AddSkill creates a skill.
func (p *Portfolio) AddSkill(ctx context.Context, s domain.Skill) (domain.Skill, error) {
	if err := domain.ValidateSkill(s); err != nil {
		return domain.Skill{}, err
	}
	return p.skillsW.Create(ctx, s)
}

// UpdateSkill patches a skill.
func (p *Portfolio) UpdateSkill(ctx context.Context, id domain.ID, patch domain.Patch) (domain.Skill, error) {
	if err := domain.ValidatePatchFor[domain.Skill](domain.TableSkills, patch); err != nil {
		return domain.Skill{}, err
	}
	return p.skillsW.Update(ctx, id, patch)
}

// DeleteSkill removes a skill.
func (p *Portfolio) DeleteSkill(ctx context.Context, id domain.ID) error {
	return p.skillsW.Delete(ctx, id)
}

// AddGalleryItem creates a gallery item. An empty type becomes
// domain.DefaultGalleryType.
func (p *Portfolio) AddGalleryItem(ctx context.Context, g domain.GalleryItem) (domain.GalleryItem, error) {
	if err := domain.ValidateGalleryItem(g); err != nil {
		return domain.GalleryItem{}, err
	}
	if g.Type == "" {
		g.Type = domain.DefaultGalleryType
	}
	return p.galleryW.Create(ctx, g)
}

// UpdateGalleryItem patches a gallery item.
func (p *Portfolio) UpdateGalleryItem(ctx context.Context, id domain.ID, patch domain.Patch) (domain.GalleryItem, error) {
	if err := domain.ValidatePatchFor[domain.GalleryItem](domain.TableGallery, patch); err != nil {
		return domain.GalleryItem{}, err
	}
	return p.galleryW.Update(ctx, id, patch)
}

// DeleteGalleryItem removes a gallery item.
func (p *Portfolio) DeleteGalleryItem(ctx context.Context, id domain.ID) error {
	return p.galleryW.Delete(ctx, id)
}

// DeleteMessage removes a message from the inbox.
func (p *Portfolio) DeleteMessage(ctx context.Context, id domain.ID) error {
	return p.messagesW.Delete(ctx, id)
}

// MarkMessageRead sets the read flag of a message.
func (p *Portfolio) MarkMessageRead(ctx context.Context, id domain.ID, read bool) (domain.Message, error) {
	return p.messagesW.Update(ctx, id, domain.Patch{"read": read})
}

// UnreadCount returns how many inbox messages are unread.
func (p *Portfolio) UnreadCount(ctx context.Context) (int, error) {
	msgs, err := p.Messages(ctx)
	if err != nil {
		return 0, err
	}
	return domain.UnreadCount(msgs), nil
}

// UpdateThemeSettings patches the theme.
func (p *Portfolio) UpdateThemeSettings(ctx context.Context, patch domain.Patch) (domain.ThemeSettings, error) {
	if err := domain.ValidatePatchFor[domain.ThemeSettings](domain.TableThemeSettings, patch); err != nil {
		return domain.ThemeSettings{}, err
	}
	return p.themeW.Update(ctx, patch)
}

// SubmitMessage stores a contact-form message. It is a plain insert: the
// inbox picks the message up through the feed.
func (p *Portfolio) SubmitMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	m = domain.Message{
		Name:      strings.TrimSpace(m.Name),
		Email:     strings.TrimSpace(m.Email),
		Message:   strings.TrimSpace(m.Message),
		VoiceURL:  m.VoiceURL,
		ImageURL:  m.ImageURL,
		CreatedAt: p.now().UTC(),
	}
	if err := domain.ValidateMessage(m); err != nil {
		return domain.Message{}, err
	}

	raw, err := p.messagesQ.Table().Insert(ctx, m)
	if err != nil {
		p.logger.Error("message submit failed", ports.Err(err))
		return domain.Message{}, fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	stored, err := livequery.DecodeRow[domain.Message](raw)
	if err != nil {
		return domain.Message{}, err
	}
	p.logger.Info("message received", ports.Int64("id", int64(stored.ID)))
	return stored, nil
}

// Upload stores a file of the given kind and returns its public URL.
func (p *Portfolio) Upload(ctx context.Context, kind upload.Kind, f upload.File) (string, error) {
	if p.uploader == nil {
		return "", domain.ErrUploadsDisabled
	}
	return p.uploader.Upload(ctx, kind, f)
}
