package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logAdapter "github.com/bft-labs/folio/internal/adapters/log"
	"github.com/bft-labs/folio/internal/adapters/sqlite"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/testkit/storefakes"
	"github.com/bft-labs/folio/internal/upload"
)

type fakes struct {
	store   *storefakes.Store
	feed    *storefakes.Feed
	objects *storefakes.ObjectStore
}

func newFakePortfolio(t *testing.T) (*Portfolio, fakes) {
	t.Helper()
	f := fakes{store: storefakes.NewStore(), feed: storefakes.NewFeed(), objects: storefakes.NewObjectStore()}
	logger := logAdapter.NewNoopLogger()
	p := NewPortfolio(f.store, f.feed, upload.New(f.objects, logger), logger)
	t.Cleanup(p.Close)
	return p, f
}

func TestWarm_AcquiresEveryQuery(t *testing.T) {
	p, f := newFakePortfolio(t)
	f.store.Seed(domain.TableProjects, domain.Project{ID: 1, Title: "A"})
	f.store.Seed(domain.TableThemeSettings, domain.ThemeSettings{ID: 1, AccentColor: "#0000FF", GlowIntensity: 0.5})

	require.NoError(t, p.Warm(context.Background()))
	require.Equal(t, 6, f.feed.Opened())

	ctx := context.Background()
	projects, err := p.Projects(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Project{{ID: 1, Title: "A"}}, projects)

	theme, err := p.ThemeSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "#0000FF", theme.AccentColor)

	site, err := p.SiteContent(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSiteContent(), site)

	// Served from cache.
	require.Equal(t, 1, f.store.Calls(domain.TableProjects, storefakes.OpList))

	p.Close()
	for _, table := range domain.Tables {
		require.Zero(t, f.feed.Active(table), table)
	}
	require.Empty(t, p.Cache().Keys())
}

func TestWarm_SubscribeFailure(t *testing.T) {
	p, f := newFakePortfolio(t)
	f.feed.Err = errors.New("socket down")

	require.Error(t, p.Warm(context.Background()))
	require.Empty(t, p.Cache().Keys())
}

func TestWarm_FetchFailureIsReported(t *testing.T) {
	p, f := newFakePortfolio(t)
	f.store.Fail(domain.TableSkills, storefakes.OpList, errors.New("timeout"))

	require.NoError(t, p.Warm(context.Background()))

	var qerr *domain.QueryError
	require.ErrorAs(t, p.QueryErr(KeySkills), &qerr)
	_, err := p.Skills(context.Background())
	require.ErrorAs(t, err, &qerr)
}

func TestAdmin_ValidationBlocksNetwork(t *testing.T) {
	p, f := newFakePortfolio(t)
	require.NoError(t, p.Warm(context.Background()))
	ctx := context.Background()

	tests := []struct {
		name  string
		table string
		call  func() error
	}{
		{"project without title", domain.TableProjects, func() error {
			_, err := p.AddProject(ctx, domain.Project{Title: "  "})
			return err
		}},
		{"skill over 100", domain.TableSkills, func() error {
			_, err := p.AddSkill(ctx, domain.Skill{Name: "Go", Percentage: 101})
			return err
		}},
		{"gallery without image", domain.TableGallery, func() error {
			_, err := p.AddGalleryItem(ctx, domain.GalleryItem{Title: "x"})
			return err
		}},
		{"bad accent color", domain.TableThemeSettings, func() error {
			_, err := p.UpdateThemeSettings(ctx, domain.Patch{"accent_color": "green"})
			return err
		}},
		{"blank skill name patch", domain.TableSkills, func() error {
			_, err := p.UpdateSkill(ctx, 1, domain.Patch{"name": ""})
			return err
		}},
		{"project link not a string", domain.TableProjects, func() error {
			_, err := p.UpdateProject(ctx, 1, domain.Patch{"link": 5})
			return err
		}},
		{"hero title not a string", domain.TableSiteContent, func() error {
			_, err := p.UpdateSiteContent(ctx, domain.Patch{"hero_title": 5})
			return err
		}},
		{"glow intensity not a number", domain.TableThemeSettings, func() error {
			_, err := p.UpdateThemeSettings(ctx, domain.Patch{"glow_intensity": "bright"})
			return err
		}},
		{"unknown gallery column", domain.TableGallery, func() error {
			_, err := p.UpdateGalleryItem(ctx, 1, domain.Patch{"colour": "red"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.ErrorIs(t, err, domain.ErrValidation)
			require.Zero(t, f.store.Calls(tt.table, storefakes.OpInsert))
			require.Zero(t, f.store.Calls(tt.table, storefakes.OpUpdate))
		})
	}
}

func TestAdmin_OptimisticDeleteRollsBack(t *testing.T) {
	p, f := newFakePortfolio(t)
	f.store.Seed(domain.TableProjects, domain.Project{ID: 1}, domain.Project{ID: 2})
	require.NoError(t, p.Warm(context.Background()))
	f.store.Fail(domain.TableProjects, storefakes.OpDelete, errors.New("denied"))

	err := p.DeleteProject(context.Background(), 2)
	require.ErrorIs(t, err, domain.ErrWriteFailed)

	projects, _ := p.Projects(context.Background())
	require.Equal(t, []domain.Project{{ID: 2}, {ID: 1}}, projects)
}

func TestAdmin_GalleryDefaultsType(t *testing.T) {
	p, _ := newFakePortfolio(t)
	require.NoError(t, p.Warm(context.Background()))

	g, err := p.AddGalleryItem(context.Background(), domain.GalleryItem{Title: "Poster", ImageURL: "https://cdn.test/p.png"})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultGalleryType, g.Type)

	items, _ := p.Gallery(context.Background())
	require.Len(t, items, 1)
	require.Equal(t, g, items[0])
}

func TestUpdateProfilePhoto(t *testing.T) {
	p, f := newFakePortfolio(t)
	f.store.Seed(domain.TableSiteContent, domain.DefaultSiteContent())
	require.NoError(t, p.Warm(context.Background()))
	ctx := context.Background()

	_, err := p.UpdateProfilePhoto(ctx, upload.File{Name: "me.mp3", ContentType: "audio/mpeg", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, domain.ErrUnsupportedType)
	site, _ := p.SiteContent(ctx)
	require.Empty(t, site.ProfilePhotoURL)
	require.Zero(t, f.objects.Uploads)

	site, err = p.UpdateProfilePhoto(ctx, upload.File{Name: "me.png", ContentType: "image/png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(site.ProfilePhotoURL, "https://cdn.test/uploads/"), site.ProfilePhotoURL)
	cached, _ := p.SiteContent(ctx)
	require.Equal(t, site, cached)
}

func TestEndToEnd_SQLiteFeed(t *testing.T) {
	ctx := context.Background()
	logger := logAdapter.NewNoopLogger()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "folio.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewPortfolio(store, store, nil, logger, WithClock(func() time.Time { return now }))
	t.Cleanup(p.Close)
	require.NoError(t, p.Warm(ctx))

	// A visitor's message reaches the inbox through the feed.
	msg, err := p.SubmitMessage(ctx, domain.Message{Name: " Ada ", Email: "ada@example.com", Message: " hi "})
	require.NoError(t, err)
	require.Equal(t, "Ada", msg.Name)
	require.Equal(t, "hi", msg.Message)
	require.Equal(t, now, msg.CreatedAt)

	inbox, err := p.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.Equal(t, msg.ID, inbox[0].ID)
	unread, _ := p.UnreadCount(ctx)
	require.Equal(t, 1, unread)

	_, err = p.MarkMessageRead(ctx, msg.ID, true)
	require.NoError(t, err)
	unread, _ = p.UnreadCount(ctx)
	require.Zero(t, unread)

	// The feed and the confirmed create agree on a single record.
	pr, err := p.AddProject(ctx, domain.Project{Title: "Folio"})
	require.NoError(t, err)
	projects, _ := p.Projects(ctx)
	require.Equal(t, []domain.Project{pr}, projects)

	theme, err := p.UpdateThemeSettings(ctx, domain.Patch{"accent_color": "#FF00FF"})
	require.NoError(t, err)
	require.Equal(t, "#FF00FF", theme.AccentColor)
	cached, _ := p.ThemeSettings(ctx)
	require.Equal(t, theme, cached)

	_, err = p.Upload(ctx, upload.KindImage, upload.File{})
	require.ErrorIs(t, err, domain.ErrUploadsDisabled)
	_, err = p.UpdateProfilePhoto(ctx, upload.File{})
	require.ErrorIs(t, err, domain.ErrUploadsDisabled)
}

func TestUpdate_MistypedPatchNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	logger := logAdapter.NewNoopLogger()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "folio.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pr, err := store.Table(domain.TableProjects).Insert(ctx, domain.Project{Title: "Folio"})
	require.NoError(t, err)
	id := mustDecodeID(t, pr)

	// No Warm: the cache has no entry, so nothing would catch the patch
	// on its way to the store.
	p := NewPortfolio(store, store, nil, logger)
	t.Cleanup(p.Close)

	_, err = p.UpdateProject(ctx, id, domain.Patch{"link": 5})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "link", verr.Field)
	require.NotErrorIs(t, err, domain.ErrWriteFailed)

	_, err = p.UpdateSiteContent(ctx, domain.Patch{"hero_title": 5})
	require.ErrorIs(t, err, domain.ErrValidation)

	projects, err := p.Projects(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Project{{ID: id, Title: "Folio"}}, projects)
	site, err := p.SiteContent(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSiteContent().HeroTitle, site.HeroTitle)
}

func mustDecodeID(t *testing.T, raw []byte) domain.ID {
	t.Helper()
	var row struct {
		ID domain.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &row))
	return row.ID
}
