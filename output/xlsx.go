package output

import (
	"fmt"
	"sync"

	"github.com/aluiziolira/scope-dorker/models"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Results"

// XLSXWriter collects rows in a workbook saved on Close.
type XLSXWriter struct {
	filename string
	file     *excelize.File
	row      int
	mu       sync.Mutex
}

// NewXLSXWriter creates a workbook with a header row.
func NewXLSXWriter(filename string) (*XLSXWriter, error) {
	if isStdout(filename) {
		return nil, fmt.Errorf("xlsx output requires a file name")
	}
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name xlsx sheet: %w", err)
	}
	xw := &XLSXWriter{filename: filename, file: f}
	if err := xw.appendRow("platform", "program", "query", "link"); err != nil {
		f.Close()
		return nil, err
	}
	return xw, nil
}

// Write appends one row per link.
func (xw *XLSXWriter) Write(result *models.SearchResult) error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	for _, link := range result.Links() {
		if err := xw.appendRow(result.Platform(), result.ProgramName(), result.Query, link); err != nil {
			return err
		}
	}
	return nil
}

// Close saves the workbook.
func (xw *XLSXWriter) Close() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	if err := xw.file.SaveAs(xw.filename); err != nil {
		xw.file.Close()
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return xw.file.Close()
}

func (xw *XLSXWriter) appendRow(values ...string) error {
	xw.row++
	cell, err := excelize.CoordinatesToCellName(1, xw.row)
	if err != nil {
		return fmt.Errorf("xlsx cell name: %w", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := xw.file.SetSheetRow(xlsxSheet, cell, &row); err != nil {
		return fmt.Errorf("write xlsx row: %w", err)
	}
	return nil
}
