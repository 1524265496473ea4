// Package migrations bundles the SQLite schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
