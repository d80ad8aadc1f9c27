package models

import (
	"sort"
	"strings"
)

// SearchResult holds the unique links found for one scope and query.
type SearchResult struct {
	Scope *Scope
	Query string

	links map[string]struct{}
}

// NewSearchResult copies links into a fresh result set.
func NewSearchResult(scope *Scope, query string, links map[string]struct{}) *SearchResult {
	copied := make(map[string]struct{}, len(links))
	for link := range links {
		copied[link] = struct{}{}
	}
	return &SearchResult{
		Scope: scope,
		Query: query,
		links: copied,
	}
}

// ProgramName returns the owning scope's name.
func (r *SearchResult) ProgramName() string {
	if r.Scope == nil {
		return ""
	}
	return r.Scope.Name
}

// Platform returns the owning scope's platform.
func (r *SearchResult) Platform() string {
	if r.Scope == nil {
		return ""
	}
	return r.Scope.Platform
}

// Links returns the links sorted for deterministic output.
func (r *SearchResult) Links() []string {
	out := make([]string, 0, len(r.links))
	for link := range r.links {
		out = append(out, link)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of unique links.
func (r *SearchResult) Len() int {
	return len(r.links)
}

func (r *SearchResult) String() string {
	var b strings.Builder
	b.WriteString("# Results for Program ")
	b.WriteString(r.ProgramName())
	b.WriteString(" matching query '")
	b.WriteString(r.Query)
	b.WriteString("'\n")
	for _, link := range r.Links() {
		b.WriteString(link)
		b.WriteByte('\n')
	}
	return b.String()
}
