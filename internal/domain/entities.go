package domain

import "time"

// Table names in the data store.
const (
	TableSiteContent   = "site_content"
	TableProjects      = "projects"
	TableSkills        = "skills"
	TableGallery       = "gallery"
	TableMessages      = "messages"
	TableThemeSettings = "theme_settings"
)

// Tables lists every table the site reads.
var Tables = []string{
	TableSiteContent,
	TableProjects,
	TableSkills,
	TableGallery,
	TableMessages,
	TableThemeSettings,
}

// SingletonID is the row id of the site_content and theme_settings singletons.
const SingletonID ID = 1

// SiteContent holds the hero copy shown on the landing page.
type SiteContent struct {
	ID              ID     `json:"id,omitempty"`
	HeroTitle       string `json:"hero_title"`
	HeroSubtitle    string `json:"hero_subtitle"`
	HeroDescription string `json:"hero_description"`
	ProfilePhotoURL string `json:"profile_photo_url"`
	Location        string `json:"location"`
}

func (s SiteContent) RecordID() ID { return s.ID }

func (s SiteContent) WithRecordID(id ID) SiteContent {
	s.ID = id
	return s
}

// DefaultSiteContent is served until the singleton row exists.
func DefaultSiteContent() SiteContent {
	return SiteContent{ID: SingletonID, HeroTitle: "My Portfolio"}
}

// Project is a portfolio project card.
type Project struct {
	ID          ID     `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Link        string `json:"link"`
}

func (p Project) RecordID() ID { return p.ID }

func (p Project) WithRecordID(id ID) Project {
	p.ID = id
	return p
}

// Skill is a named proficiency bar.
type Skill struct {
	ID         ID     `json:"id,omitempty"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

func (s Skill) RecordID() ID { return s.ID }

func (s Skill) WithRecordID(id ID) Skill {
	s.ID = id
	return s
}

// DefaultGalleryType is used when a gallery item has no type.
const DefaultGalleryType = "product"

// GalleryItem is an image with an optional downloadable file.
type GalleryItem struct {
	ID       ID     `json:"id,omitempty"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	FileURL  string `json:"file_url,omitempty"`
	Type     string `json:"type"`
}

func (g GalleryItem) RecordID() ID { return g.ID }

func (g GalleryItem) WithRecordID(id ID) GalleryItem {
	g.ID = id
	return g
}

// Message is a contact-form submission.
type Message struct {
	ID        ID        `json:"id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	VoiceURL  *string   `json:"voice_url"`
	ImageURL  *string   `json:"image_url"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (m Message) RecordID() ID { return m.ID }

func (m Message) WithRecordID(id ID) Message {
	m.ID = id
	return m
}

// UnreadCount returns how many messages have not been marked read.
func UnreadCount(messages []Message) int {
	n := 0
	for _, m := range messages {
		if !m.Read {
			n++
		}
	}
	return n
}

// DefaultAccentColor is the neon green the site ships with.
const DefaultAccentColor = "#39FF14"

// ThemeSettings controls the accent color of the site.
type ThemeSettings struct {
	ID            ID      `json:"id,omitempty"`
	AccentColor   string  `json:"accent_color"`
	GlowIntensity float64 `json:"glow_intensity"`
}

func (t ThemeSettings) RecordID() ID { return t.ID }

func (t ThemeSettings) WithRecordID(id ID) ThemeSettings {
	t.ID = id
	return t
}

// DefaultThemeSettings is served until the singleton row exists.
func DefaultThemeSettings() ThemeSettings {
	return ThemeSettings{ID: SingletonID, AccentColor: DefaultAccentColor, GlowIntensity: 1.0}
}

// AccentPresets are the swatches offered by the theme editor.
var AccentPresets = map[string]string{
	"Red":    "#FF0000",
	"Yellow": "#FFFF00",
	"Green":  "#00FF00",
	"Blue":   "#0000FF",
	"Purple": "#FF00FF",
	"Black":  "#000000",
}
