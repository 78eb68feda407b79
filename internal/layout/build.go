package layout

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"stocktracker/internal/market"
	"stocktracker/internal/registry"
	"stocktracker/internal/workbook"
)

const (
	symbolWidth = 14
	sectorWidth = 18
	dataWidth   = 12
)

// Build writes the sheet structure for entries over r into w and returns
// its layout. w is expected to be freshly created.
func Build(w *workbook.Workbook, entries []registry.SymbolEntry, r market.DateRange) (*Layout, error) {
	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}
	l, err := New(w.Sheet(), symbols, r)
	if err != nil {
		return nil, err
	}

	f, sheet := w.File(), w.Sheet()

	set := func(col, row int, v any) error {
		if err := w.SetValue(col, row, v); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
		return nil
	}

	if err := set(symbolColumn, dateHeaderRow, symbolHeader); err != nil {
		return nil, err
	}
	if err := set(sectorColumn, dateHeaderRow, sectorHeader); err != nil {
		return nil, err
	}

	for i, d := range l.dates {
		if err := set(columnOf(i, 0), dateHeaderRow, d.Format(DateFormat)); err != nil {
			return nil, err
		}
		first, _ := excelize.CoordinatesToCellName(columnOf(i, 0), dateHeaderRow)
		last, _ := excelize.CoordinatesToCellName(columnOf(i, len(market.Fields)-1), dateHeaderRow)
		if err := f.MergeCell(sheet, first, last); err != nil {
			return nil, fmt.Errorf("failed to merge date header %s: %w", first, err)
		}
		for _, field := range market.Fields {
			if err := set(columnOf(i, int(field)), fieldHeaderRow, field.String()); err != nil {
				return nil, err
			}
		}
	}

	for i, e := range entries {
		row := firstSymbolRow + i
		if err := set(symbolColumn, row, e.Symbol); err != nil {
			return nil, err
		}
		if err := set(sectorColumn, row, e.Sector); err != nil {
			return nil, err
		}
	}

	if err := format(f, sheet, len(l.dates)); err != nil {
		return nil, err
	}
	return l, nil
}

// format applies header styling, column widths and frozen panes.
func format(f *excelize.File, sheet string, days int) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(columnOf(days-1, len(market.Fields)-1))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"2", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.SetColWidth(sheet, "A", "A", symbolWidth); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", sectorWidth); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", lastCol, dataWidth); err != nil {
		return err
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      firstDataColumn - 1,
		YSplit:      firstSymbolRow - 1,
		TopLeftCell: "C3",
		ActivePane:  "bottomRight",
	})
}
