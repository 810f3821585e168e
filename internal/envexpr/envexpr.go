// Package envexpr substitutes ${env.KEY} references in configuration text.
package envexpr

import (
	"os"
	"strings"
	"unicode"
)

const prefix = "${env."

// Expand replaces every well-formed ${env.KEY} in text with lookup(KEY),
// or with nothing when KEY is unknown. A reference without a closing brace
// is kept as is; one whose key has characters other than letters, digits or
// '_' keeps its prefix literally and scanning resumes after it.
func Expand(text string, lookup func(key string) (string, bool)) string {
	if !strings.Contains(text, prefix) {
		return text
	}
	var b strings.Builder
	for {
		idx := strings.Index(text, prefix)
		if idx < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:idx])
		rest := text[idx+len(prefix):]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			b.WriteString(text[idx:])
			return b.String()
		}
		key := rest[:end]
		if !validKey(key) {
			b.WriteString(prefix)
			text = rest
			continue
		}
		if value, ok := lookup(key); ok {
			b.WriteString(value)
		}
		text = rest[end+1:]
	}
}

// ExpandEnv expands references from the process environment.
func ExpandEnv(text string) string {
	return Expand(text, os.LookupEnv)
}

func validKey(key string) bool {
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
