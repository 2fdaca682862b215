// Package migrations embeds the SQLite schema of the rebuild journal.
package migrations

import (
	"embed"
	"io/fs"
)

// JournalRebuilds is the script creating the rebuilds table, relative to
// Schema. It is idempotent and applied every time the journal opens.
const JournalRebuilds = "journal/rebuilds.sql"

//go:embed schema/*/*.sql
var schemaFS embed.FS

// Schema returns the embedded scripts, one directory per store.
func Schema() fs.FS {
	sub, err := fs.Sub(schemaFS, "schema")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory
	}
	return sub
}

// JournalScript returns the SQL of JournalRebuilds.
func JournalScript() (string, error) {
	b, err := fs.ReadFile(Schema(), JournalRebuilds)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
