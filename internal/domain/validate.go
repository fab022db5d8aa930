package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// ValidateProject checks a project before it is created.
func ValidateProject(p Project) error {
	return required("title", p.Title)
}

// ValidateSkill checks a skill before it is created.
func ValidateSkill(s Skill) error {
	if err := required("name", s.Name); err != nil {
		return err
	}
	return validatePercentage(s.Percentage)
}

func validatePercentage(v int) error {
	if v < 0 || v > 100 {
		return &ValidationError{Field: "percentage", Reason: "must be between 0 and 100"}
	}
	return nil
}

// ValidateGalleryItem checks a gallery item before it is created.
func ValidateGalleryItem(g GalleryItem) error {
	if err := required("title", g.Title); err != nil {
		return err
	}
	return required("image_url", g.ImageURL)
}

// ValidateMessage checks a contact-form submission. Callers trim first.
func ValidateMessage(m Message) error {
	for _, f := range []struct{ name, value string }{
		{"name", m.Name},
		{"email", m.Email},
		{"message", m.Message},
	} {
		if err := required(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAccentColor checks a #RRGGBB color.
func ValidateAccentColor(c string) error {
	if !hexColor.MatchString(c) {
		return &ValidationError{Field: "accent_color", Reason: "must be a #RRGGBB color"}
	}
	return nil
}

// ValidatePatch applies the per-column rules of the given table to the
// columns a patch names. Columns the patch omits are not checked.
func ValidatePatch(table string, p Patch) error {
	var requiredCols []string
	switch table {
	case TableProjects:
		requiredCols = []string{"title"}
	case TableSkills:
		requiredCols = []string{"name"}
		if v, ok := p["percentage"]; ok {
			n, ok := asInt(v)
			if !ok {
				return &ValidationError{Field: "percentage", Reason: "must be a number"}
			}
			if err := validatePercentage(n); err != nil {
				return err
			}
		}
	case TableGallery:
		requiredCols = []string{"title", "image_url"}
	case TableThemeSettings:
		if p.Has("accent_color") {
			c, _ := p.String("accent_color")
			if err := ValidateAccentColor(c); err != nil {
				return err
			}
		}
	}
	for _, col := range requiredCols {
		if !p.Has(col) {
			continue
		}
		s, _ := p.String(col)
		if err := required(col, s); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePatchFor checks that every column of p exists on T and holds a
// value of the column's type, then applies the per-table rules of
// ValidatePatch.
func ValidatePatchFor[T any](table string, p Patch) error {
	for _, col := range slices.Sorted(maps.Keys(p)) {
		if err := checkColumn[T](col, p[col]); err != nil {
			return err
		}
	}
	return ValidatePatch(table, p)
}

func checkColumn[T any](col string, v any) error {
	raw, err := json.Marshal(map[string]any{col: v})
	if err != nil {
		return &ValidationError{Field: col, Reason: "is not encodable"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var rec T
	err = dec.Decode(&rec)
	if err == nil {
		return nil
	}
	var terr *json.UnmarshalTypeError
	if errors.As(err, &terr) {
		return &ValidationError{Field: col, Reason: "has the wrong type"}
	}
	return &ValidationError{Field: col, Reason: "is not a column"}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
