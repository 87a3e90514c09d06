// Package migrations embeds the goose schema migrations. Each supported
// database dialect has its own directory; the repository managers pick the
// one matching their driver.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS
