package sheet

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktracker/internal/fetcher"
	"stocktracker/internal/layout"
	"stocktracker/internal/market"
	"stocktracker/internal/registry"
	"stocktracker/internal/testutil"
	"stocktracker/internal/workbook"
)

type cell [2]int

// fakeCells is an in-memory Cells that can be told to fail on one cell.
type fakeCells struct {
	values map[cell]string
	trends map[cell]workbook.Trend
	failOn map[cell]bool
	writes int
}

func newFakeCells() *fakeCells {
	return &fakeCells{
		values: make(map[cell]string),
		trends: make(map[cell]workbook.Trend),
		failOn: make(map[cell]bool),
	}
}

func (f *fakeCells) Value(col, row int) (string, error) {
	return f.values[cell{col, row}], nil
}

func (f *fakeCells) SetValue(col, row int, v any) error {
	c := cell{col, row}
	if f.failOn[c] {
		return errors.New("cell is locked")
	}
	f.writes++
	if v == nil {
		delete(f.values, c)
		return nil
	}
	f.values[c] = fmt.Sprint(v)
	return nil
}

func (f *fakeCells) SetTrend(col, row int, t workbook.Trend) error {
	f.trends[cell{col, row}] = t
	return nil
}

var (
	jan5 = testutil.Date(2026, time.January, 5)
	jan6 = testutil.Date(2026, time.January, 6)
	jan7 = testutil.Date(2026, time.January, 7)
	jan8 = testutil.Date(2026, time.January, 8)
	jan9 = testutil.Date(2026, time.January, 9)
)

var entries = []registry.SymbolEntry{
	{Symbol: "AAA.NS", Sector: "Banking"},
	{Symbol: "BBB.NS", Sector: "IT"},
	{Symbol: "CCC.NS", Sector: "Energy"},
}

func newLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l, err := layout.New("Stock Data", []string{"AAA.NS", "BBB.NS", "CCC.NS"}, testutil.Range(jan5, jan9))
	require.NoError(t, err)
	return l
}

func quote(symbol string, d time.Time, close float64) market.Quote {
	c := decimal.NewFromFloat(close)
	return market.Quote{
		Symbol: symbol,
		Date:   d,
		Open:   market.Price(c.Sub(decimal.NewFromInt(1))),
		High:   market.Price(c.Add(decimal.NewFromInt(2))),
		Low:    market.Price(c.Sub(decimal.NewFromInt(2))),
		Close:  market.Price(c),
		Volume: market.Price(decimal.NewFromInt(1000)),
	}
}

func TestApply_IsolatesFailedFetches(t *testing.T) {
	l := newLayout(t)
	cells := newFakeCells()
	w := NewWriter(l, cells)

	outcomes := []fetcher.Outcome{
		fetcher.Failure("BBB.NS", fetcher.ReasonNotFound, fetcher.NewNotFoundError("BBB.NS")),
		fetcher.Success("CCC.NS", testutil.SyntheticSeries("CCC.NS", []time.Time{jan5, jan6})),
		fetcher.Success("AAA.NS", testutil.SyntheticSeries("AAA.NS", []time.Time{jan5, jan6})),
	}

	rep := w.Apply(entries, outcomes)

	assert.Equal(t, 3, rep.Requested)
	assert.Equal(t, []string{"AAA.NS", "CCC.NS"}, rep.Succeeded)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "BBB.NS", rep.Failed[0].Symbol)
	assert.Equal(t, "NotFound", rep.Failed[0].Reason)

	// Nothing is written on the failed symbol's row.
	for c := range cells.values {
		assert.NotEqual(t, 4, c[1], "unexpected write to BBB.NS row at column %d", c[0])
	}

	addr, err := l.AddressOf("AAA.NS", jan6, market.Close)
	require.NoError(t, err)
	want := testutil.SyntheticSeries("AAA.NS", []time.Time{jan5, jan6})[1].Close.Decimal.InexactFloat64()
	assert.Equal(t, fmt.Sprint(want), cells.values[cell{addr.Column, addr.Row}])
	assert.Equal(t, "Banking", cells.values[cell{2, 3}])
	assert.Equal(t, "Energy", cells.values[cell{2, 5}])
}

func TestApply_FollowsRegistryOrder(t *testing.T) {
	w := NewWriter(newLayout(t), newFakeCells())

	ordered := []registry.SymbolEntry{entries[2], entries[0]}
	outcomes := []fetcher.Outcome{
		fetcher.Success("AAA.NS", nil),
		fetcher.Success("CCC.NS", nil),
	}

	rep := w.Apply(ordered, outcomes)
	assert.Equal(t, []string{"CCC.NS", "AAA.NS"}, rep.Succeeded)
}

func TestApply_MissingOutcome(t *testing.T) {
	w := NewWriter(newLayout(t), newFakeCells())

	rep := w.Apply(entries[:1], nil)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "ProviderError", rep.Failed[0].Reason)
	assert.True(t, rep.AllFailed())
}

func TestApply_RollsBackOnWriteError(t *testing.T) {
	l := newLayout(t)
	cells := newFakeCells()
	cells.values[cell{2, 3}] = "Old sector"
	cells.values[cell{3, 3}] = "12.5"

	closeJan7, err := l.AddressOf("AAA.NS", jan7, market.Close)
	require.NoError(t, err)
	cells.failOn[cell{closeJan7.Column, closeJan7.Row}] = true

	w := NewWriter(l, cells)
	rep := w.Apply(entries, []fetcher.Outcome{
		fetcher.Success("AAA.NS", []market.Quote{
			quote("AAA.NS", jan5, 100),
			quote("AAA.NS", jan6, 101),
			quote("AAA.NS", jan7, 102),
		}),
		fetcher.Success("BBB.NS", []market.Quote{quote("BBB.NS", jan5, 50)}),
		fetcher.Success("CCC.NS", nil),
	})

	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "AAA.NS", rep.Failed[0].Symbol)
	assert.Equal(t, ReasonWriteFailure, rep.Failed[0].Reason)
	assert.Equal(t, []string{"BBB.NS", "CCC.NS"}, rep.Succeeded)

	// The failed symbol's row is back to what it was before the run.
	row := map[int]string{}
	for c, v := range cells.values {
		if c[1] == 3 {
			row[c[0]] = v
		}
	}
	assert.Equal(t, map[int]string{2: "Old sector", 3: "12.5"}, row)

	// Later symbols are still written.
	assert.Equal(t, "IT", cells.values[cell{2, 4}])
	assert.Equal(t, "50", cells.values[cell{6, 4}])
}

func TestApply_DateWithoutColumnIsWriteFailure(t *testing.T) {
	cells := newFakeCells()
	w := NewWriter(newLayout(t), cells)

	saturday := testutil.Date(2026, time.January, 10)
	rep := w.Apply(entries[:1], []fetcher.Outcome{
		fetcher.Success("AAA.NS", []market.Quote{quote("AAA.NS", jan9, 100), quote("AAA.NS", saturday, 101)}),
	})

	require.Len(t, rep.Failed, 1)
	assert.Equal(t, ReasonWriteFailure, rep.Failed[0].Reason)
	assert.Contains(t, rep.Failed[0].Detail, "date out of range")
	assert.Zero(t, cells.writes)
}

func TestApply_SkipsMissingFields(t *testing.T) {
	l := newLayout(t)
	cells := newFakeCells()
	volume, err := l.AddressOf("AAA.NS", jan5, market.Volume)
	require.NoError(t, err)
	cells.values[cell{volume.Column, volume.Row}] = "777"

	q := quote("AAA.NS", jan5, 100)
	q.Volume = decimal.NullDecimal{}
	q.High = decimal.NullDecimal{}

	rep := NewWriter(l, cells).Apply(entries[:1], []fetcher.Outcome{fetcher.Success("AAA.NS", []market.Quote{q})})
	require.Empty(t, rep.Failed)

	high, err := l.AddressOf("AAA.NS", jan5, market.High)
	require.NoError(t, err)
	assert.NotContains(t, cells.values, cell{high.Column, high.Row})
	assert.Equal(t, "777", cells.values[cell{volume.Column, volume.Row}])
	assert.Equal(t, "100", cells.values[cell{6, 3}])
}

func TestApply_ShadesCloseAgainstPreviousDay(t *testing.T) {
	l := newLayout(t)
	cells := newFakeCells()

	closeAt := func(d time.Time) cell {
		addr, err := l.AddressOf("AAA.NS", d, market.Close)
		require.NoError(t, err)
		return cell{addr.Column, addr.Row}
	}

	rep := NewWriter(l, cells).Apply(entries[:1], []fetcher.Outcome{
		fetcher.Success("AAA.NS", []market.Quote{
			quote("AAA.NS", jan5, 10),
			quote("AAA.NS", jan6, 11),
			quote("AAA.NS", jan7, 9),
		}),
	})
	require.Empty(t, rep.Failed)

	assert.NotContains(t, cells.trends, closeAt(jan5))
	assert.Equal(t, workbook.TrendUp, cells.trends[closeAt(jan6)])
	assert.Equal(t, workbook.TrendDown, cells.trends[closeAt(jan7)])

	// A later run compares its first day with the close already in the sheet.
	rep = NewWriter(l, cells).Apply(entries[:1], []fetcher.Outcome{
		fetcher.Success("AAA.NS", []market.Quote{quote("AAA.NS", jan8, 9)}),
	})
	require.Empty(t, rep.Failed)
	assert.Equal(t, workbook.TrendFlat, cells.trends[closeAt(jan8)])
}

func TestApply_IsIdempotent(t *testing.T) {
	l := newLayout(t)
	outcomes := []fetcher.Outcome{
		fetcher.Success("AAA.NS", testutil.SyntheticSeries("AAA.NS", testutil.Range(jan5, jan9).TradingDays())),
	}

	first := newFakeCells()
	NewWriter(l, first).Apply(entries[:1], outcomes)
	snapshot := make(map[cell]string, len(first.values))
	for c, v := range first.values {
		snapshot[c] = v
	}

	NewWriter(l, first).Apply(entries[:1], outcomes)
	assert.Equal(t, snapshot, first.values)
}
