package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestScopeAddAsset(t *testing.T) {
	s := NewScope("hackerone", "acme")

	if !s.AddAsset("https://B.com/login") {
		t.Fatalf("first add should grow the set")
	}
	if s.AddAsset("b.com") {
		t.Fatalf("normalised duplicate should not grow the set")
	}
	if s.AddAsset("   ") {
		t.Fatalf("empty identifier should be dropped")
	}
	s.AddAsset("a.com")
	s.AddAsset("*.c.com")

	want := []string{".c.com", "a.com", "b.com"}
	if got := s.URLAssets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("URLAssets() = %v, want %v", got, want)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
}

func TestScopeJSON(t *testing.T) {
	s := NewScope("hackerone", "acme", "b.com", "a.com")
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"platform":"hackerone","name":"acme","url_assets":["a.com","b.com"]}`
	if string(data) != want {
		t.Fatalf("json = %s, want %s", data, want)
	}

	var restored Scope
	if err := json.Unmarshal([]byte(`{"platform":"hackerone","name":"acme","url_assets":["HTTPS://A.com/x","a.com",""]}`), &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := restored.URLAssets(); !reflect.DeepEqual(got, []string{"a.com"}) {
		t.Fatalf("restored assets = %v", got)
	}
}

func TestScopeJSONMissingIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "missing platform", input: `{"name":"acme","url_assets":[]}`, wantErr: "platform"},
		{name: "missing name", input: `{"platform":"hackerone"}`, wantErr: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Scope
			err := json.Unmarshal([]byte(tt.input), &s)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSearchResultString(t *testing.T) {
	scope := NewScope("hackerone", "acme", "a.com")
	links := map[string]struct{}{
		"https://a.com/z": {},
		"https://a.com/a": {},
	}
	r := NewSearchResult(scope, "inurl:/api", links)
	links["https://a.com/late"] = struct{}{}

	if r.Len() != 2 {
		t.Fatalf("result should not alias the caller's map, len=%d", r.Len())
	}
	want := "# Results for Program acme matching query 'inurl:/api'\nhttps://a.com/a\nhttps://a.com/z\n"
	if got := r.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestFatalWrapsOnce(t *testing.T) {
	inner := Fatal("search", errTest("boom"))
	outer := Fatal("run", inner)
	if outer != inner {
		t.Fatalf("Fatal should not re-wrap a fatal error")
	}
	if Fatal("noop", nil) != nil {
		t.Fatalf("Fatal(nil) should be nil")
	}
	if got := inner.Error(); got != "fatal: search: boom" {
		t.Fatalf("Error() = %q", got)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
