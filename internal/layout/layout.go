// Package layout maps (symbol, date, field) to fixed cells of the tracker
// sheet and builds that sheet structure.
//
// The sheet looks like:
//
//	row 1:  Symbol | Sector | 05-01-2026 (merged over 5 cols) | 06-01-2026 ...
//	row 2:         |        | Open | High | Low | Close | Volume | Open ...
//	row 3+: one row per symbol, in registry order at build time
//
// Both the builder and the populator derive addresses from this shape, so a
// sheet built from one symbol list stays addressable until the list changes.
package layout

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"stocktracker/internal/market"
)

// DateFormat is how dates appear in the header row.
const DateFormat = "02-01-2006"

const (
	symbolColumn    = 1
	sectorColumn    = 2
	firstDataColumn = 3
	dateHeaderRow   = 1
	fieldHeaderRow  = 2
	firstSymbolRow  = 3

	symbolHeader = "Symbol"
	sectorHeader = "Sector"
)

var (
	// ErrUnknownSymbol means the symbol has no row block in the sheet.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrDateOutOfRange means the date has no pre-allocated column.
	ErrDateOutOfRange = errors.New("date out of range")
	// ErrMalformedLayout means the sheet header does not follow the layout.
	ErrMalformedLayout = errors.New("malformed sheet layout")
)

// CellAddress is one cell of the workbook.
type CellAddress struct {
	Sheet  string
	Row    int
	Column int
}

// Cell returns the A1-style name of the address.
func (a CellAddress) Cell() string {
	name, err := excelize.CoordinatesToCellName(a.Column, a.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", a.Row, a.Column)
	}
	return name
}

// Layout is the address map of one sheet. It is immutable once built.
type Layout struct {
	sheet   string
	symbols []string
	dates   []time.Time
	rows    map[string]int
	cols    map[time.Time]int
}

// New derives the layout for symbols over the trading days of r.
func New(sheet string, symbols []string, r market.DateRange) (*Layout, error) {
	days := r.TradingDays()
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: range %s has no trading days", ErrMalformedLayout, r)
	}
	if last := columnOf(len(days)-1, len(market.Fields)-1); last > excelize.MaxColumns {
		return nil, fmt.Errorf("%w: range %s needs %d columns, the sheet allows %d",
			ErrMalformedLayout, r, last, excelize.MaxColumns)
	}
	return newLayout(sheet, symbols, days)
}

func newLayout(sheet string, symbols []string, dates []time.Time) (*Layout, error) {
	l := &Layout{
		sheet:   sheet,
		symbols: append([]string(nil), symbols...),
		dates:   append([]time.Time(nil), dates...),
		rows:    make(map[string]int, len(symbols)),
		cols:    make(map[time.Time]int, len(dates)),
	}
	for i, s := range symbols {
		if _, dup := l.rows[s]; dup {
			return nil, fmt.Errorf("%w: symbol %q appears twice", ErrMalformedLayout, s)
		}
		l.rows[s] = firstSymbolRow + i
	}
	for i, d := range dates {
		if i > 0 && !d.After(dates[i-1]) {
			return nil, fmt.Errorf("%w: date %s is not after %s",
				ErrMalformedLayout, d.Format(DateFormat), dates[i-1].Format(DateFormat))
		}
		l.cols[d] = columnOf(i, 0)
	}
	return l, nil
}

// columnOf is the sheet column of field j of the i-th date.
func columnOf(i, j int) int {
	return firstDataColumn + i*len(market.Fields) + j
}

// AddressOf returns the cell holding field of symbol on date.
func (l *Layout) AddressOf(symbol string, date time.Time, field market.Field) (CellAddress, error) {
	row, ok := l.rows[symbol]
	if !ok {
		return CellAddress{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	col, ok := l.cols[market.Day(date)]
	if !ok {
		return CellAddress{}, fmt.Errorf("%w: %s has no column", ErrDateOutOfRange, date.Format(market.DateLayout))
	}
	if field < market.Open || field > market.Volume {
		return CellAddress{}, fmt.Errorf("unknown field %d", field)
	}
	return CellAddress{Sheet: l.sheet, Row: row, Column: col + int(field)}, nil
}

// SectorAddress returns the cell holding the sector of symbol.
func (l *Layout) SectorAddress(symbol string) (CellAddress, error) {
	row, ok := l.rows[symbol]
	if !ok {
		return CellAddress{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return CellAddress{Sheet: l.sheet, Row: row, Column: sectorColumn}, nil
}

// HasSymbol reports whether symbol has a row block.
func (l *Layout) HasSymbol(symbol string) bool {
	_, ok := l.rows[symbol]
	return ok
}

// Sheet is the name of the sheet the layout addresses.
func (l *Layout) Sheet() string { return l.sheet }

// Symbols lists the symbols in sheet order.
func (l *Layout) Symbols() []string {
	return append([]string(nil), l.symbols...)
}

// Dates lists the date columns in sheet order.
func (l *Layout) Dates() []time.Time {
	return append([]time.Time(nil), l.dates...)
}

// Span is the range from the first to the last date column.
func (l *Layout) Span() market.DateRange {
	return market.DateRange{Start: l.dates[0], End: l.dates[len(l.dates)-1]}
}

// PreviousDate returns the date column just before date.
func (l *Layout) PreviousDate(date time.Time) (time.Time, bool) {
	col, ok := l.cols[market.Day(date)]
	if !ok {
		return time.Time{}, false
	}
	i := (col - firstDataColumn) / len(market.Fields)
	if i == 0 {
		return time.Time{}, false
	}
	return l.dates[i-1], true
}

// Check verifies that every symbol has a row block and that r fits in the
// sheet's date span. It is the precondition for populating a run.
func (l *Layout) Check(symbols []string, r market.DateRange) error {
	var missing []string
	for _, s := range symbols {
		if !l.HasSymbol(s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v not in sheet %q, rebuild the sheet", ErrUnknownSymbol, missing, l.sheet)
	}
	if !r.Within(l.Span()) {
		return fmt.Errorf("%w: %s is outside the sheet span %s", ErrDateOutOfRange, r, l.Span())
	}
	return nil
}
