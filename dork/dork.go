// Package dork packs scope assets into bounded site-restricted search queries.
package dork

import (
	"strings"

	"github.com/aluiziolira/scope-dorker/models"
)

const (
	// MaxQueryLength keeps rendered queries well below the ~2k URL limit.
	MaxQueryLength = 1800
	// MaxSiteOperators caps the site: clauses in a single query.
	MaxSiteOperators = 25

	sitePrefix = "site:"
	separator  = " OR "
	conjunct   = ") AND "
)

// Build renders one dork: (site:a OR site:b ...) AND <query>.
func Build(assets []string, query string) string {
	var b strings.Builder
	b.Grow(renderedLength(assets, query))
	b.WriteByte('(')
	for i, asset := range assets {
		if i > 0 {
			b.WriteString(separator)
		}
		b.WriteString(sitePrefix)
		b.WriteString(asset)
	}
	b.WriteString(conjunct)
	b.WriteString(strings.TrimSpace(query))
	return b.String()
}

// Partition greedily groups assets, in the given order, into the fewest
// dorks that each stay within MaxQueryLength and MaxSiteOperators. Assets are
// expected de-duplicated and sorted. An empty asset list yields no dorks.
//
// A single asset whose own dork exceeds MaxQueryLength is still emitted on
// its own so that no asset is lost.
func Partition(query string, assets []string) []string {
	var (
		dorks  []string
		group  []string
		length int
	)
	// Length of "(" + ") AND " + query, shared by every group.
	fixed := renderedLength(nil, query)

	for _, asset := range assets {
		clause := len(sitePrefix) + len(asset)
		tentative := length + clause
		if len(group) > 0 {
			tentative += len(separator)
		}

		if fixed+tentative > MaxQueryLength || len(group)+1 > MaxSiteOperators {
			if len(group) > 0 {
				dorks = append(dorks, Build(group, query))
			}
			group = []string{asset}
			length = clause
			continue
		}

		group = append(group, asset)
		length = tentative
	}

	if len(group) > 0 {
		dorks = append(dorks, Build(group, query))
	}
	return dorks
}

// ForScope partitions the scope's sorted assets.
func ForScope(query string, scope *models.Scope) []string {
	if scope == nil {
		return nil
	}
	return Partition(query, scope.URLAssets())
}

func renderedLength(assets []string, query string) int {
	n := len("(") + len(conjunct) + len(strings.TrimSpace(query))
	for i, asset := range assets {
		if i > 0 {
			n += len(separator)
		}
		n += len(sitePrefix) + len(asset)
	}
	return n
}
