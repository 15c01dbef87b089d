// Package migrations embeds the goose SQL migrations so the binary can
// bring its schema up without a checkout of this directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
