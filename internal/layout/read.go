package layout

import (
	"fmt"
	"strings"
	"time"

	"stocktracker/internal/market"
	"stocktracker/internal/workbook"
)

// Read recovers the layout from the header cells of an existing sheet.
func Read(w *workbook.Workbook) (*Layout, error) {
	rows, err := w.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", w.Sheet(), err)
	}
	if len(rows) < fieldHeaderRow {
		return nil, fmt.Errorf("%w: sheet %q has no header rows", ErrMalformedLayout, w.Sheet())
	}

	header, fields := rows[dateHeaderRow-1], rows[fieldHeaderRow-1]
	if cell(header, symbolColumn) != symbolHeader || cell(header, sectorColumn) != sectorHeader {
		return nil, fmt.Errorf("%w: sheet %q does not start with %s | %s",
			ErrMalformedLayout, w.Sheet(), symbolHeader, sectorHeader)
	}

	var dates []time.Time
	for i := 0; ; i++ {
		text := cell(header, columnOf(i, 0))
		if text == "" {
			break
		}
		d, err := time.Parse(DateFormat, text)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date header %q", ErrMalformedLayout, text)
		}
		for _, f := range market.Fields {
			if got := cell(fields, columnOf(i, int(f))); got != f.String() {
				return nil, fmt.Errorf("%w: expected %s under %s, found %q",
					ErrMalformedLayout, f, text, got)
			}
		}
		dates = append(dates, market.Day(d))
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no date columns", ErrMalformedLayout, w.Sheet())
	}

	var symbols []string
	for r := firstSymbolRow - 1; r < len(rows); r++ {
		s := cell(rows[r], symbolColumn)
		if s == "" {
			break
		}
		symbols = append(symbols, s)
	}

	return newLayout(w.Sheet(), symbols, dates)
}

// cell returns column col (1-based) of row, "" past the end.
func cell(row []string, col int) string {
	if col-1 >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}
