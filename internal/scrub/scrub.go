// Package scrub provides string-scrubbing primitives for payload sanitization.
package scrub

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)

	// Statement-level keywords only. Column names like "select_count" or
	// prose containing "update" as part of a larger word are left alone.
	sqlPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|truncate|alter|create|exec|union|merge)\b`)

	traversalPattern = regexp.MustCompile(`\.\.[/\\]`)
)

// StripTags removes anything that looks like an HTML/XML tag.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// EscapeEntities escapes HTML special characters (&, <, >, quotes).
func EscapeEntities(s string) string {
	return html.EscapeString(s)
}

// BlankSQLKeywords blanks out standalone SQL statement keywords.
func BlankSQLKeywords(s string) string {
	return sqlPattern.ReplaceAllString(s, "")
}

// StripTraversal removes path-traversal sequences ("../", "..\")
// repeatedly, so "..././" style nesting cannot survive one pass.
func StripTraversal(s string) string {
	for {
		next := traversalPattern.ReplaceAllString(s, "")
		if next == s {
			return next
		}
		s = next
	}
}

// Truncate cuts s to at most max runes. max <= 0 means no limit.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Collapse trims leading/trailing whitespace left behind by scrubbing.
func Collapse(s string) string {
	return strings.TrimSpace(s)
}
