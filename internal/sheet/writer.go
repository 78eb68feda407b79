// Package sheet writes fetch outcomes into the tracker workbook.
package sheet

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stocktracker/internal/fetcher"
	"stocktracker/internal/layout"
	"stocktracker/internal/market"
	"stocktracker/internal/registry"
	"stocktracker/internal/report"
	"stocktracker/internal/workbook"
)

// ReasonWriteFailure marks a symbol whose data was fetched but could not be
// placed in the sheet.
const ReasonWriteFailure = "WriteFailure"

// Cells is the cell-level view of a workbook the writer needs.
// *workbook.Workbook implements it.
type Cells interface {
	Value(col, row int) (string, error)
	SetValue(col, row int, v any) error
	SetTrend(col, row int, t workbook.Trend) error
}

// Writer places outcomes into cells using a layout. It only touches the
// in-memory workbook; saving is up to the caller.
type Writer struct {
	layout *layout.Layout
	cells  Cells
}

// NewWriter creates a writer for cells laid out by l.
func NewWriter(l *layout.Layout, cells Cells) *Writer {
	return &Writer{layout: l, cells: cells}
}

// write is one staged cell change.
type write struct {
	addr  layout.CellAddress
	value any
	trend *workbook.Trend
}

// Apply writes outcomes in the order of entries. A symbol is written
// completely or not at all: failed fetches write nothing, and a symbol whose
// cells cannot all be written is rolled back and reported as a write failure.
// The returned report has no elapsed time set.
func (w *Writer) Apply(entries []registry.SymbolEntry, outcomes []fetcher.Outcome) report.Report {
	bySymbol := make(map[string]fetcher.Outcome, len(outcomes))
	for _, o := range outcomes {
		bySymbol[o.Symbol] = o
	}

	rep := report.Report{Requested: len(entries)}
	for _, e := range entries {
		o, ok := bySymbol[e.Symbol]
		switch {
		case !ok:
			rep.Failed = append(rep.Failed, report.Failure{
				Symbol: e.Symbol, Reason: string(fetcher.ReasonProvider), Detail: "no fetch outcome",
			})
		case !o.OK():
			rep.Failed = append(rep.Failed, report.Failure{
				Symbol: e.Symbol, Reason: string(o.Reason), Detail: o.Err.Error(),
			})
		default:
			if err := w.writeSymbol(e, o.Quotes); err != nil {
				slog.Warn("failed to write symbol", "symbol", e.Symbol, "error", err)
				rep.Failed = append(rep.Failed, report.Failure{
					Symbol: e.Symbol, Reason: ReasonWriteFailure, Detail: err.Error(),
				})
				continue
			}
			rep.Succeeded = append(rep.Succeeded, e.Symbol)
		}
	}
	return rep
}

func (w *Writer) writeSymbol(e registry.SymbolEntry, quotes []market.Quote) error {
	writes, err := w.stage(e, quotes)
	if err != nil {
		return err
	}

	snapshot := make([]string, len(writes))
	for i, wr := range writes {
		v, err := w.cells.Value(wr.addr.Column, wr.addr.Row)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", wr.addr.Cell(), err)
		}
		snapshot[i] = v
	}

	for i, wr := range writes {
		if err := w.apply(wr); err != nil {
			w.restore(writes[:i+1], snapshot[:i+1])
			return fmt.Errorf("failed to write %s: %w", wr.addr.Cell(), err)
		}
	}
	slog.Debug("wrote symbol", "symbol", e.Symbol, "quotes", len(quotes), "cells", len(writes))
	return nil
}

// stage resolves every cell the symbol will touch before anything is written.
func (w *Writer) stage(e registry.SymbolEntry, quotes []market.Quote) ([]write, error) {
	sector, err := w.layout.SectorAddress(e.Symbol)
	if err != nil {
		return nil, err
	}
	writes := []write{{addr: sector, value: e.Sector}}

	var prevClose decimal.NullDecimal
	for i, q := range quotes {
		if i == 0 {
			prevClose = w.sheetClose(e.Symbol, q.Date)
		}
		for _, f := range market.Fields {
			v := q.Value(f)
			if !v.Valid {
				continue
			}
			addr, err := w.layout.AddressOf(e.Symbol, q.Date, f)
			if err != nil {
				return nil, err
			}
			wr := write{addr: addr, value: cellValue(f, v.Decimal)}
			if f == market.Close && prevClose.Valid {
				t := trendOf(v.Decimal, prevClose.Decimal)
				wr.trend = &t
			}
			writes = append(writes, wr)
		}
		prevClose = q.Close
	}
	return writes, nil
}

// sheetClose reads the close already in the sheet for the trading day
// before date, if any.
func (w *Writer) sheetClose(symbol string, date time.Time) decimal.NullDecimal {
	prev, ok := w.layout.PreviousDate(date)
	if !ok {
		return decimal.NullDecimal{}
	}
	addr, err := w.layout.AddressOf(symbol, prev, market.Close)
	if err != nil {
		return decimal.NullDecimal{}
	}
	raw, err := w.cells.Value(addr.Column, addr.Row)
	if err != nil || raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return market.Price(d)
}

func (w *Writer) apply(wr write) error {
	if err := w.cells.SetValue(wr.addr.Column, wr.addr.Row, wr.value); err != nil {
		return err
	}
	if wr.trend != nil {
		return w.cells.SetTrend(wr.addr.Column, wr.addr.Row, *wr.trend)
	}
	return nil
}

// restore puts back the snapshot values in reverse order. Only content is
// restored; a trend fill already applied stays.
func (w *Writer) restore(writes []write, snapshot []string) {
	for i := len(writes) - 1; i >= 0; i-- {
		addr := writes[i].addr
		if err := w.cells.SetValue(addr.Column, addr.Row, previous(snapshot[i])); err != nil {
			slog.Error("failed to restore cell", "cell", addr.Cell(), "error", err)
		}
	}
}

func previous(raw string) any {
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func cellValue(f market.Field, d decimal.Decimal) any {
	if f == market.Volume {
		return d.IntPart()
	}
	return d.InexactFloat64()
}

func trendOf(close, prev decimal.Decimal) workbook.Trend {
	switch close.Cmp(prev) {
	case 1:
		return workbook.TrendUp
	case -1:
		return workbook.TrendDown
	}
	return workbook.TrendFlat
}
