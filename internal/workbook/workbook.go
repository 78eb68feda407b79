// Package workbook wraps the excelize spreadsheet the tracker reads and writes.
package workbook

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the workbook lacks the configured sheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Trend classifies a price against the previous trading day.
type Trend int

const (
	TrendFlat Trend = iota
	TrendUp
	TrendDown
)

var trendFills = map[Trend]string{
	TrendFlat: "FFFFFF",
	TrendUp:   "C6EFCE",
	TrendDown: "FFC7CE",
}

// Workbook is an in-memory spreadsheet bound to one sheet. It is not safe
// for concurrent use.
type Workbook struct {
	file   *excelize.File
	sheet  string
	styles map[Trend]int
}

// New creates an empty workbook whose only sheet is named sheet.
func New(sheet string) (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}
	return wrap(f, sheet), nil
}

func wrap(f *excelize.File, sheet string) *Workbook {
	return &Workbook{file: f, sheet: sheet, styles: make(map[Trend]int)}
}

// File exposes the underlying excelize file for layout formatting.
func (w *Workbook) File() *excelize.File { return w.file }

// Sheet is the name of the bound sheet.
func (w *Workbook) Sheet() string { return w.sheet }

// Rows returns every row of the sheet as text.
func (w *Workbook) Rows() ([][]string, error) {
	return w.file.GetRows(w.sheet)
}

// Value returns the raw text of a cell, "" when blank.
func (w *Workbook) Value(col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return w.file.GetCellValue(w.sheet, cell, excelize.Options{RawCellValue: true})
}

// SetValue writes v into a cell. A nil v blanks the cell.
func (w *Workbook) SetValue(col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellValue(w.sheet, cell, v)
}

// SetTrend shades a price cell according to t.
func (w *Workbook) SetTrend(col, row int, t Trend) error {
	style, err := w.trendStyle(t)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(w.sheet, cell, cell, style)
}

func (w *Workbook) trendStyle(t Trend) (int, error) {
	if id, ok := w.styles[t]; ok {
		return id, nil
	}
	id, err := w.file.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{trendFills[t]}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		NumFmt:    4, // #,##0.00
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create trend style: %w", err)
	}
	w.styles[t] = id
	return id, nil
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}
