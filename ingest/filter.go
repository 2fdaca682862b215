package ingest

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Filter selects source files by the final component of their path.
type Filter struct {
	patterns   []string
	res        []*regexp.Regexp
	extensions []string
}

// NewFilter compiles filter tokens into a Filter.
//
// A token containing no '*' is a substring match: it is rewritten to
// ".*token.*". Every token is otherwise a regular expression that has to
// match the whole file name. When extensions is not empty the name must
// also end with one of them.
func NewFilter(tokens []string, extensions []string) (*Filter, error) {
	f := &Filter{}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		pattern := NormalizePattern(tok)
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("ingest: invalid filter %q: %w", tok, err)
		}
		f.patterns = append(f.patterns, pattern)
		f.res = append(f.res, re)
	}
	for _, ext := range extensions {
		if ext = strings.TrimSpace(ext); ext != "" {
			f.extensions = append(f.extensions, ext)
		}
	}
	return f, nil
}

// NormalizePattern applies the substring rule to a single filter token.
func NormalizePattern(tok string) string {
	if strings.IndexByte(tok, '*') == -1 {
		return ".*" + tok + ".*"
	}
	return tok
}

// Match reports whether the final component of p is selected.
func (f *Filter) Match(p string) bool {
	name := path.Base(filepath.ToSlash(p))
	if len(f.extensions) > 0 && !hasAnySuffix(name, f.extensions) {
		return false
	}
	for _, re := range f.res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns in the order given.
func (f *Filter) Patterns() []string {
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
