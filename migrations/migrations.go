// Package migrations holds the SQL schema applied at startup.
package migrations

import "embed"

// FS contains the ordered *.up.sql files.
//
//go:embed *.sql
var FS embed.FS
