package app

import (
	"time"

	"github.com/bft-labs/folio/internal/domain"
)

// Cache keys of the six portfolio queries.
const (
	KeySiteContent   = "site-content"
	KeyProjects      = "projects"
	KeySkills        = "skills"
	KeyGallery       = "gallery"
	KeyMessages      = "messages"
	KeyThemeSettings = "theme-settings"
)

// Stale times per query.
const (
	SingletonStaleTime  = 5 * time.Minute
	CollectionStaleTime = 2 * time.Minute
	MessagesStaleTime   = time.Minute
)

// Keys lists every query key in warm-up order.
var Keys = []string{
	KeySiteContent,
	KeyProjects,
	KeySkills,
	KeyGallery,
	KeyMessages,
	KeyThemeSettings,
}

var (
	idDesc        = domain.Order{Column: "id"}
	createdAtDesc = domain.Order{Column: "created_at"}
)
