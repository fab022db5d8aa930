package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bft-labs/folio/internal/domain"
)

// handleThemeCSS renders the theme as CSS custom properties.
func (s *Server) handleThemeCSS(w http.ResponseWriter, r *http.Request) {
	theme, err := s.portfolio.ThemeSettings(r.Context())
	if err != nil {
		s.logger.Warn("theme unavailable, serving defaults")
		theme = domain.DefaultThemeSettings()
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprint(w, ThemeCSS(theme))
}

// ThemeCSS returns the :root block for theme.
func ThemeCSS(theme domain.ThemeSettings) string {
	color := theme.AccentColor
	if domain.ValidateAccentColor(color) != nil {
		color = domain.DefaultAccentColor
	}
	rv, _ := strconv.ParseUint(color[1:3], 16, 8)
	gv, _ := strconv.ParseUint(color[3:5], 16, 8)
	bv, _ := strconv.ParseUint(color[5:7], 16, 8)
	return fmt.Sprintf(":root {\n  --accent-color: %s;\n  --accent-rgb: %d, %d, %d;\n  --glow-intensity: %s;\n}\n",
		color, rv, gv, bv, strconv.FormatFloat(theme.GlowIntensity, 'f', -1, 64))
}
