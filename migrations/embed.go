// Package migrations embeds the SQL schema migrations.
package migrations

import "embed"

// FS holds the golang-migrate style up and down scripts.
//
//go:embed *.sql
var FS embed.FS
