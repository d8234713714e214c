package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is an exact decimal amount of the traded item. The zero value
// is a valid zero quantity.
type Quantity struct {
	d decimal.Decimal
}

// NewQuantity parses a decimal string such as "10", "0.25" or "1e-3".
// Binary floating point is never involved, so "0.1" is exactly one tenth.
func NewQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{d: d}, nil
}

// MustQuantity is like NewQuantity but panics on malformed input.
// Intended for literals.
func MustQuantity(s string) Quantity {
	q, err := NewQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityFromInt returns the integral quantity n.
func QuantityFromInt(n int64) Quantity {
	return Quantity{d: decimal.NewFromInt(n)}
}

// Add returns q + o.
func (q Quantity) Add(o Quantity) Quantity { return Quantity{d: q.d.Add(o.d)} }

// Sub returns q - o. The result may be negative.
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{d: q.d.Sub(o.d)} }

// Cmp returns -1, 0 or +1 depending on whether q is less than, equal to,
// or greater than o.
func (q Quantity) Cmp(o Quantity) int { return q.d.Cmp(o.d) }

// Equal compares numerically, so "1.0" equals "1".
func (q Quantity) Equal(o Quantity) bool { return q.d.Equal(o.d) }

// IsZero reports whether q == 0.
func (q Quantity) IsZero() bool { return q.d.IsZero() }

// IsPositive reports whether q > 0.
func (q Quantity) IsPositive() bool { return q.d.IsPositive() }

// IsNegative reports whether q < 0.
func (q Quantity) IsNegative() bool { return q.d.IsNegative() }

// Min returns the smaller of q and o.
func (q Quantity) Min(o Quantity) Quantity {
	if o.d.LessThan(q.d) {
		return o
	}
	return q
}

// Decimal exposes the underlying value for aggregation and metrics.
func (q Quantity) Decimal() decimal.Decimal { return q.d }

// String formats q in plain decimal notation.
func (q Quantity) String() string { return q.d.String() }

// MarshalJSON encodes the quantity as a JSON string to keep full precision.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.d.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	return q.d.UnmarshalJSON(b)
}

// Price is an exact decimal price in units of the counter currency.
type Price struct {
	d decimal.Decimal
}

// ZeroPrice is the execution price used when matching unpriced market orders.
var ZeroPrice = Price{}

// NewPrice parses a decimal string.
func NewPrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return Price{d: d}, nil
}

// MustPrice is like NewPrice but panics on malformed input.
func MustPrice(s string) Price {
	p, err := NewPrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Add returns p + o.
func (p Price) Add(o Price) Price { return Price{d: p.d.Add(o.d)} }

// Sub returns p - o.
func (p Price) Sub(o Price) Price { return Price{d: p.d.Sub(o.d)} }

// Cmp compares p and o like Quantity.Cmp.
func (p Price) Cmp(o Price) int { return p.d.Cmp(o.d) }

// Equal compares numerically.
func (p Price) Equal(o Price) bool { return p.d.Equal(o.d) }

// IsZero reports whether p == 0.
func (p Price) IsZero() bool { return p.d.IsZero() }

// IsNegative reports whether p < 0.
func (p Price) IsNegative() bool { return p.d.IsNegative() }

// Decimal exposes the underlying value.
func (p Price) Decimal() decimal.Decimal { return p.d }

func (p Price) String() string { return p.d.String() }

// MarshalJSON encodes the price as a JSON string.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.d.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (p *Price) UnmarshalJSON(b []byte) error {
	return p.d.UnmarshalJSON(b)
}
