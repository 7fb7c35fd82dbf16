// Package migrations contains the embedded SQL migrations for the story
// history store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
