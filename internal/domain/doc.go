// Package domain contains the core entities and value objects for folio.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, SQL, logging) and contains only the record
// types, partial-update merging, change-event vocabulary and validation rules.
//
// # Entities
//
//   - [SiteContent]: hero copy and profile photo (singleton row id=1)
//   - [Project], [Skill], [GalleryItem]: admin-managed collections
//   - [Message]: contact-form submissions
//   - [ThemeSettings]: accent color and glow intensity (singleton row id=1)
//
// Every entity satisfies [Record], which lets generic cache code read and
// rewrite the identifier without knowing the concrete type.
package domain
