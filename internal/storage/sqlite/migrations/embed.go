package migrations

import "embed"

// FS contains embedded SQLite migrations for storycore storage.
//
//go:embed *.sql
var FS embed.FS
