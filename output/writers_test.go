package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aluiziolira/scope-dorker/models"
	"github.com/xuri/excelize/v2"
)

func sampleResults() []*models.SearchResult {
	acme := models.NewScope("hackerone", "acme", "a.com")
	globex := models.NewScope("hackerone", "globex", "g.com")
	return []*models.SearchResult{
		models.NewSearchResult(acme, "inurl:/api", map[string]struct{}{"https://a.com/b": {}, "https://a.com/a": {}}),
		models.NewSearchResult(globex, "inurl:/api", map[string]struct{}{"https://g.com/x": {}}),
	}
}

func writeAll(t *testing.T, w ResultWriter) {
	t.Helper()
	for _, r := range sampleResults() {
		if err := w.Write(r); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestTextWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.txt")
	w, err := NewWriter("text", path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	writeAll(t, w)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "# Results for Program acme matching query 'inurl:/api'\nhttps://a.com/a\nhttps://a.com/b\n\n" +
		"# Results for Program globex matching query 'inurl:/api'\nhttps://g.com/x\n\n"
	if string(data) != want {
		t.Fatalf("text output = %q", data)
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	w, err := NewWriter("json", path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	writeAll(t, w)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var records []resultRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec resultRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Program != "acme" || !reflect.DeepEqual(records[0].Links, []string{"https://a.com/a", "https://a.com/b"}) {
		t.Fatalf("first record = %+v", records[0])
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := NewWriter("csv", path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	writeAll(t, w)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if want := []string{"hackerone", "acme", "inurl:/api", "https://a.com/a"}; !reflect.DeepEqual(rows[1], want) {
		t.Fatalf("row 1 = %v, want %v", rows[1], want)
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	w, err := NewWriter("xlsx", path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	writeAll(t, w)

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0][3] != "link" || rows[3][1] != "globex" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestNewWriterRejects(t *testing.T) {
	if _, err := NewWriter("yaml", "x"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if _, err := NewWriter("csv", ""); err == nil {
		t.Fatalf("csv to stdout should be rejected")
	}
	if _, err := NewWriter("xlsx", "-"); err == nil {
		t.Fatalf("xlsx to stdout should be rejected")
	}
}

func TestScopeDumpRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopes.json")
	scopes := []*models.Scope{
		models.NewScope("hackerone", "acme", "b.com", "*.a.com"),
		models.NewScope("hackerone", "globex"),
	}
	if err := SaveScopes(path, scopes); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadScopes(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Name != "acme" || loaded[1].Len() != 0 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if got := loaded[0].URLAssets(); !reflect.DeepEqual(got, []string{".a.com", "b.com"}) {
		t.Fatalf("assets = %v", got)
	}
}

func TestLoadScopesInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `[{"platform":"hackerone","url_assets":["a.com"]}]`},
		{name: "null entry", body: `[null]`},
		{name: "not json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scopes.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := LoadScopes(path)
			var fatal *models.FatalError
			if !errors.As(err, &fatal) {
				t.Fatalf("expected fatal validation error, got %v", err)
			}
		})
	}
}
