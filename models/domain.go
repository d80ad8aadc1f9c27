package models

import "strings"

// NormalizeDomain reduces a raw asset identifier to a comparable domain.
// A leading wildcard label is rewritten to the leading-dot form, so
// "*.example.com" becomes ".example.com". Empty input yields "".
func NormalizeDomain(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return ""
	}

	if _, after, ok := strings.Cut(candidate, "://"); ok {
		candidate = after
	}
	if before, _, ok := strings.Cut(candidate, "/"); ok {
		candidate = before
	}
	if _, after, ok := strings.Cut(candidate, "@"); ok {
		candidate = after
	}
	if before, _, ok := strings.Cut(candidate, ":"); ok {
		candidate = before
	}

	candidate = strings.ToLower(strings.TrimRight(candidate, "."))
	if rest, ok := strings.CutPrefix(candidate, "*."); ok {
		return "." + rest
	}
	return candidate
}
