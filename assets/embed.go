// assets/embed.go
//
// Embedded defaults shipped with the binary:
//   - snippets.json:        small starter corpus so the server runs without files.
//   - snippets.schema.json: JSON schema every corpus file is validated against.
//   - sql/*.sql:            database migrations, applied in lexical order.

package assets

import (
	"embed"
	"io/fs"
)

//go:embed snippets.json snippets.schema.json sql/*.sql
var FS embed.FS

// DefaultCorpus returns the raw embedded starter corpus.
func DefaultCorpus() ([]byte, error) {
	return FS.ReadFile("snippets.json")
}

// CorpusSchema returns the raw JSON schema for corpus files.
func CorpusSchema() ([]byte, error) {
	return FS.ReadFile("snippets.schema.json")
}

// Migrations returns the migration directory as a filesystem rooted at sql/.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
