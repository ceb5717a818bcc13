// basecampy | 2026
// migrations.go

// Package migrations embeds the goose SQL migrations so the binary can
// bring its own schema up to date at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
