package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

// Files contains SQL migrations embedded into the binary, one directory per
// SQL dialect (postgres/, sqlite/). Each directory uses a flat naming
// convention (e.g., 001_init.sql) and is applied in lexical order.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS

// For returns the migrations of a single dialect rooted at its directory.
func For(dialect string) (fs.FS, error) {
	switch dialect {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	return fs.Sub(Files, dialect)
}
