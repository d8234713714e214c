package domain

import "time"

// OrderType distinguishes market orders from limit orders. Only market
// orders are matched today; limit is carried so a limit price can be
// recorded, but the book does not act on it yet.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Side indicates whether an order buys or sells the base currency.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order is a request to trade a quantity of one currency pair. Everything
// except Remaining is fixed at creation; Remaining is reduced only by the
// order book as fills occur.
type Order struct {
	ID        OrderID
	Side      Side
	Type      OrderType
	Symbol    string
	Quantity  Quantity // original quantity
	Remaining Quantity
	Price     Price // zero for market orders
	CreatedAt time.Time
}

// NewMarketOrder creates an unfilled market order.
func NewMarketOrder(id OrderID, side Side, pair CurrencyPair, qty Quantity, createdAt time.Time) *Order {
	return &Order{
		ID:        id,
		Side:      side,
		Type:      OrderTypeMarket,
		Symbol:    pair.Symbol,
		Quantity:  qty,
		Remaining: qty,
		CreatedAt: createdAt,
	}
}

// NewBuyOrder creates an unfilled market buy order.
func NewBuyOrder(id OrderID, pair CurrencyPair, qty Quantity, createdAt time.Time) *Order {
	return NewMarketOrder(id, SideBuy, pair, qty, createdAt)
}

// NewSellOrder creates an unfilled market sell order.
func NewSellOrder(id OrderID, pair CurrencyPair, qty Quantity, createdAt time.Time) *Order {
	return NewMarketOrder(id, SideSell, pair, qty, createdAt)
}

// Filled returns the quantity executed so far.
func (o *Order) Filled() Quantity {
	return o.Quantity.Sub(o.Remaining)
}

// IsFilled reports whether nothing remains to be matched.
func (o *Order) IsFilled() bool {
	return o.Remaining.IsZero()
}

// Clone returns a copy that does not alias o.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
