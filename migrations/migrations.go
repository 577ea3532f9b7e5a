// Package migrations embeds the database schema. Statements are idempotent
// (IF NOT EXISTS) so applying on startup is safe.
package migrations

import (
	"embed"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Schema returns the full schema, files concatenated in name order.
func Schema() string {
	entries, err := files.ReadDir(".")
	if err != nil {
		panic(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		raw, err := files.ReadFile(name)
		if err != nil {
			panic(err)
		}
		b.Write(raw)
		b.WriteString("\n")
	}
	return b.String()
}
