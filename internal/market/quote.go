package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field identifies one numeric column of a daily quote.
type Field int

const (
	Open Field = iota
	High
	Low
	Close
	Volume
)

// Fields lists every quote field in sheet sub-column order.
var Fields = []Field{Open, High, Low, Close, Volume}

func (f Field) String() string {
	switch f {
	case Open:
		return "Open"
	case High:
		return "High"
	case Low:
		return "Low"
	case Close:
		return "Close"
	case Volume:
		return "Volume"
	}
	return "Unknown"
}

// Quote is one trading day of prices for a symbol. Any numeric field may be
// invalid when the provider has a gap for it.
type Quote struct {
	Symbol string
	Date   time.Time
	Open   decimal.NullDecimal
	High   decimal.NullDecimal
	Low    decimal.NullDecimal
	Close  decimal.NullDecimal
	Volume decimal.NullDecimal
}

// Value returns the given field of the quote.
func (q Quote) Value(f Field) decimal.NullDecimal {
	switch f {
	case Open:
		return q.Open
	case High:
		return q.High
	case Low:
		return q.Low
	case Close:
		return q.Close
	case Volume:
		return q.Volume
	}
	return decimal.NullDecimal{}
}

// Price wraps d as a present value.
func Price(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
