// Package output renders search results and scope dumps.
package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/scope-dorker/models"
)

// ResultWriter defines the interface for result output.
type ResultWriter interface {
	Write(result *models.SearchResult) error
	Close() error
}

// NewWriter returns a writer for format. An empty filename or "-" writes to
// stdout, which only the text and json formats support.
func NewWriter(format, filename string) (ResultWriter, error) {
	switch format {
	case "text", "":
		return NewTextWriter(filename)
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "xlsx":
		return NewXLSXWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// TextWriter prints each result as a header line followed by its links.
type TextWriter struct {
	out    io.Writer
	closer io.Closer
	mu     sync.Mutex
}

// NewTextWriter writes to filename, or stdout when it is empty or "-".
func NewTextWriter(filename string) (*TextWriter, error) {
	out, closer, err := openOutput(filename)
	if err != nil {
		return nil, err
	}
	return &TextWriter{out: out, closer: closer}, nil
}

// Write appends one result block.
func (tw *TextWriter) Write(result *models.SearchResult) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if _, err := fmt.Fprintln(tw.out, result.String()); err != nil {
		return fmt.Errorf("write text result: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (tw *TextWriter) Close() error {
	if tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

type resultRecord struct {
	Platform string   `json:"platform"`
	Program  string   `json:"program"`
	Query    string   `json:"query"`
	Links    []string `json:"links"`
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	closer  io.Closer
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	out, closer, err := openOutput(filename)
	if err != nil {
		return nil, err
	}

	buffer := bufio.NewWriter(out)
	return &JSONWriter{
		closer:  closer,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends one result in JSONL format.
func (jw *JSONWriter) Write(result *models.SearchResult) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	record := resultRecord{
		Platform: result.Platform(),
		Program:  result.ProgramName(),
		Query:    result.Query,
		Links:    result.Links(),
	}
	if err := jw.encoder.Encode(record); err != nil {
		return fmt.Errorf("encode json record: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	if jw.closer == nil {
		return nil
	}
	return jw.closer.Close()
}

// CSVWriter writes one row per link.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if isStdout(filename) {
		return nil, fmt.Errorf("csv output requires a file name")
	}
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	header := []string{"platform", "program", "query", "link"}
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends the result's links to the CSV output.
func (cw *CSVWriter) Write(result *models.SearchResult) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, link := range result.Links() {
		record := []string{result.Platform(), result.ProgramName(), result.Query, link}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

func isStdout(filename string) bool {
	return filename == "" || filename == "-"
}

func openOutput(filename string) (io.Writer, io.Closer, error) {
	if isStdout(filename) {
		return os.Stdout, nil, nil
	}
	if err := ensureDir(filename); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
