package dork

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/aluiziolira/scope-dorker/models"
)

func TestBuild(t *testing.T) {
	got := Build([]string{"a.com", "b.com"}, "  inurl:/api ")
	want := "(site:a.com OR site:b.com) AND inurl:/api"
	if got != want {
		t.Fatalf("Build() = %q, want %q", got, want)
	}
	if len(got) != renderedLength([]string{"a.com", "b.com"}, "  inurl:/api ") {
		t.Fatalf("renderedLength disagrees with Build")
	}
}

func TestPartitionEmpty(t *testing.T) {
	if got := Partition("anything", nil); len(got) != 0 {
		t.Fatalf("Partition(nil) = %v, want empty", got)
	}
	if got := ForScope("anything", models.NewScope("hackerone", "empty")); len(got) != 0 {
		t.Fatalf("ForScope(empty) = %v, want empty", got)
	}
}

func TestForScopeSingleGroup(t *testing.T) {
	scope := models.NewScope("hackerone", "acme", "b.com", "a.com")
	got := ForScope("inurl:/api", scope)
	want := []string{"(site:a.com OR site:b.com) AND inurl:/api"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ForScope() = %v, want %v", got, want)
	}
}

func TestPartitionProperties(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		assets []string
	}{
		{name: "clause ceiling", query: "inurl:/api", assets: genAssets(60, 8)},
		{name: "length ceiling", query: "intitle:index.of", assets: genAssets(40, 120)},
		{name: "long query", query: strings.Repeat("x", 1500), assets: genAssets(30, 20)},
		{name: "exactly one full group", query: "q", assets: genAssets(MaxSiteOperators, 5)},
		{name: "one over", query: "q", assets: genAssets(MaxSiteOperators+1, 5)},
		{name: "single asset", query: "ext:php", assets: []string{"only.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dorks := Partition(tt.query, tt.assets)

			var union []string
			groups := make([][]string, 0, len(dorks))
			for _, d := range dorks {
				if len(d) > MaxQueryLength {
					t.Fatalf("dork length %d exceeds %d", len(d), MaxQueryLength)
				}
				sites := siteClauses(t, d, tt.query)
				if len(sites) > MaxSiteOperators {
					t.Fatalf("dork has %d site clauses, max %d", len(sites), MaxSiteOperators)
				}
				groups = append(groups, sites)
				union = append(union, sites...)
			}

			want := append([]string(nil), tt.assets...)
			sort.Strings(want)
			sort.Strings(union)
			if !reflect.DeepEqual(union, want) {
				t.Fatalf("site clauses do not cover the input exactly:\n got %v\nwant %v", union, want)
			}

			for i := 0; i+1 < len(groups); i++ {
				merged := append(append([]string(nil), groups[i]...), groups[i+1][0])
				if len(merged) <= MaxSiteOperators && len(Build(merged, tt.query)) <= MaxQueryLength {
					t.Fatalf("group %d could absorb %q without breaking a ceiling", i, groups[i+1][0])
				}
			}
		})
	}
}

func TestPartitionOversizedAsset(t *testing.T) {
	huge := strings.Repeat("a", MaxQueryLength) + ".com"
	dorks := Partition("q", []string{"a.com", huge, "b.com"})
	if len(dorks) != 3 {
		t.Fatalf("expected oversized asset isolated in its own dork, got %d dorks", len(dorks))
	}
	if !strings.Contains(dorks[1], huge) {
		t.Fatalf("oversized asset missing from output")
	}
}

func TestPartitionDeterministic(t *testing.T) {
	assets := genAssets(80, 30)
	first := Partition("inurl:/admin", assets)
	second := Partition("inurl:/admin", assets)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("partition is not deterministic")
	}
}

func genAssets(n, labelLen int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		label := fmt.Sprintf("%03d", i) + strings.Repeat("s", labelLen)
		out = append(out, label+".example.com")
	}
	sort.Strings(out)
	return out
}

func siteClauses(t *testing.T, dork, query string) []string {
	t.Helper()
	suffix := ") AND " + strings.TrimSpace(query)
	if !strings.HasPrefix(dork, "(") || !strings.HasSuffix(dork, suffix) {
		t.Fatalf("malformed dork %q", dork)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(dork, "("), suffix)
	parts := strings.Split(inner, " OR ")
	sites := make([]string, 0, len(parts))
	for _, part := range parts {
		site, ok := strings.CutPrefix(part, "site:")
		if !ok {
			t.Fatalf("clause %q lacks site: prefix", part)
		}
		sites = append(sites, site)
	}
	return sites
}
