package domain

import (
	"testing"
	"time"
)

var testPair = NewCurrencyPair("ABC", "XYZ")

func TestNewBuyOrder_StartsUnfilled(t *testing.T) {
	now := time.Date(2000, 1, 2, 1, 0, 0, 0, time.UTC)
	o := NewBuyOrder("b1", testPair, MustQuantity("10"), now)

	if o.Side != SideBuy {
		t.Errorf("Side = %s, want buy", o.Side)
	}
	if o.Type != OrderTypeMarket {
		t.Errorf("Type = %s, want market", o.Type)
	}
	if o.Symbol != "ABC/XYZ" {
		t.Errorf("Symbol = %q, want ABC/XYZ", o.Symbol)
	}
	if !o.Remaining.Equal(MustQuantity("10")) {
		t.Errorf("Remaining = %s, want 10", o.Remaining)
	}
	if !o.Filled().IsZero() {
		t.Errorf("Filled() = %s, want 0", o.Filled())
	}
	if !o.Price.IsZero() {
		t.Errorf("market order should carry no price, got %s", o.Price)
	}
}

func TestOrder_FilledTracksRemaining(t *testing.T) {
	o := NewSellOrder("s1", testPair, MustQuantity("5"), time.Now())
	o.Remaining = MustQuantity("1.25")

	if got := o.Filled(); !got.Equal(MustQuantity("3.75")) {
		t.Errorf("Filled() = %s, want 3.75", got)
	}
	if o.IsFilled() {
		t.Error("IsFilled() = true with quantity remaining")
	}
	o.Remaining = Quantity{}
	if !o.IsFilled() {
		t.Error("IsFilled() = false with nothing remaining")
	}
}

func TestOrder_CloneDoesNotAlias(t *testing.T) {
	o := NewBuyOrder("b1", testPair, MustQuantity("10"), time.Now())
	c := o.Clone()
	c.Remaining = MustQuantity("2")
	if !o.Remaining.Equal(MustQuantity("10")) {
		t.Errorf("mutating clone changed original: %s", o.Remaining)
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite() should swap buy and sell")
	}
	if Side("hold").Valid() {
		t.Error("unknown side reported as valid")
	}
}

func TestTrade_Equal(t *testing.T) {
	buy := NewBuyOrder("b1", testPair, MustQuantity("10"), time.Now())
	sell := NewSellOrder("s1", testPair, MustQuantity("10"), time.Now())
	a := NewTrade(buy, sell, MustQuantity("10"), ZeroPrice)

	tests := []struct {
		name string
		b    Trade
		want bool
	}{
		{"same fields", NewTrade(buy, sell, MustQuantity("10.0"), MustPrice("0")), true},
		{"different quantity", NewTrade(buy, sell, MustQuantity("9"), ZeroPrice), false},
		{"different price", NewTrade(buy, sell, MustQuantity("10"), MustPrice("1")), false},
		{"different buyer", Trade{BuyOrderID: "b2", SellOrderID: "s1", Quantity: MustQuantity("10")}, false},
		{"different seller", Trade{BuyOrderID: "b1", SellOrderID: "s2", Quantity: MustQuantity("10")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal(%v) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}
