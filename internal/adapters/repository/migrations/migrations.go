// Package migrations embeds the SQLite schema applied by goose.
package migrations

import "embed"

// FS holds the ordered goose migration files.
//
//go:embed *.sql
var FS embed.FS
