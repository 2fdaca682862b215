// Package ingest turns raw blocklist files into a deduplicated set of
// trie entries.
//
// Files are line oriented: blank lines and lines starting with '#' are
// skipped, every other line names an address or CIDR range, optionally
// followed by whitespace or ';' and free text. Lines that do not parse are
// dropped and reported; they never abort the ingestion.
package ingest

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/devilelephant/blacklist/addr"
	"github.com/devilelephant/blacklist/trie"
)

// Dropped describes a source line that could not be used.
type Dropped struct {
	Path string
	Line int
	Text string
	Err  error
}

// Result is the aggregated output of CollectEntries.
type Result struct {
	// Entries holds one entry per trie position. When several lines map to
	// the same position the last one seen wins, keeping the position of the
	// first.
	Entries []trie.Entry
	// Files lists the matched paths in processing order.
	Files []string
	// Lines counts the address lines considered, valid or not.
	Lines   int
	Dropped []Dropped
}

// CollectEntries filters files by name and parses the surviving ones.
// Paths are processed in lexical order so the result is deterministic.
func CollectEntries(files map[string]string, filter *Filter, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		if filter.Match(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	res := &Result{Files: paths}
	seen := make(map[addr.Key]int)

	for _, p := range paths {
		content := files[p]
		lineNo := 0
		for raw := range strings.Lines(content) {
			lineNo++
			line := strings.TrimSpace(raw)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			res.Lines++

			key, err := addr.Parse(addressToken(line))
			if err != nil {
				res.Dropped = append(res.Dropped, Dropped{Path: p, Line: lineNo, Text: line, Err: err})
				logger.Warn("dropped source line", "path", p, "line", lineNo, "text", line, "error", err)
				continue
			}

			entry := trie.Entry{Key: key, Label: line}
			pos := key.Masked()
			if i, ok := seen[pos]; ok {
				res.Entries[i] = entry
				continue
			}
			seen[pos] = len(res.Entries)
			res.Entries = append(res.Entries, entry)
		}
	}

	logger.Debug("collected entries",
		"files", len(res.Files),
		"lines", res.Lines,
		"entries", len(res.Entries),
		"dropped", len(res.Dropped))
	return res
}

// addressToken cuts the line at the first whitespace or ';'.
func addressToken(line string) string {
	if i := strings.IndexAny(line, " \t;"); i >= 0 {
		return line[:i]
	}
	return line
}
