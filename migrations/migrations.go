// Package migrations embeds the versioned schema so cmd/migrate and the
// integration tests apply the same files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
