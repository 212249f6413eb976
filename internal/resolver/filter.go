package resolver

import (
	"path"
	"strings"

	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
)

// ExclusionSet is an ordered list of glob patterns matched against bare file names.
type ExclusionSet struct {
	patterns []string
}

// NewExclusionSet validates patterns. Empty patterns are dropped.
func NewExclusionSet(patterns []string) (ExclusionSet, error) {
	var set ExclusionSet
	for _, p := range patterns {
		if p == "" {
			continue
		}
		glob := translateNegation(p)
		if _, err := path.Match(glob, ""); err != nil {
			return ExclusionSet{}, &errs.InvalidInputError{Msg: "invalid exclude pattern: " + p}
		}
		set.patterns = append(set.patterns, glob)
	}
	return set, nil
}

// translateNegation rewrites shell-style "[!...]" classes to the "[^...]" form path.Match reads.
func translateNegation(p string) string {
	if !strings.Contains(p, "[!") {
		return p
	}
	b := []byte(p)
	inClass := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\\' && !inClass:
			i++
		case b[i] == '[' && !inClass:
			inClass = true
			if i+1 < len(b) && b[i+1] == '!' {
				b[i+1] = '^'
				i++
			}
		case b[i] == ']' && inClass:
			inClass = false
		}
	}
	return string(b)
}

// Match reports whether name matches any pattern.
func (s ExclusionSet) Match(name string) bool {
	for _, p := range s.patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// ParseShareURL extracts the content id (the last path segment) from a share URL
// that starts with prefix.
func ParseShareURL(prefix, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, prefix) {
		return "", &errs.InvalidInputError{Msg: "invalid url: " + raw}
	}

	rest := raw[len(prefix):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimRight(rest, "/")
	id := rest[strings.LastIndexByte(rest, '/')+1:]
	if id == "" {
		return "", &errs.InvalidInputError{Msg: "invalid url: " + raw}
	}
	return id, nil
}
