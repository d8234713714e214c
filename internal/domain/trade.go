package domain

import "fmt"

// Trade is one match between a buy order and a sell order. It references
// both orders by id and never changes once created.
type Trade struct {
	BuyOrderID  OrderID  `json:"buy_order_id"`
	SellOrderID OrderID  `json:"sell_order_id"`
	Quantity    Quantity `json:"quantity"`
	Price       Price    `json:"price"`
}

// NewTrade records a match of qty at price between buy and sell.
func NewTrade(buy, sell *Order, qty Quantity, price Price) Trade {
	return Trade{
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		Quantity:    qty,
		Price:       price,
	}
}

// Equal reports whether all four fields match.
func (t Trade) Equal(o Trade) bool {
	return t.BuyOrderID == o.BuyOrderID &&
		t.SellOrderID == o.SellOrderID &&
		t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price)
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade{buy:%s sell:%s qty:%s price:%s}", t.BuyOrderID, t.SellOrderID, t.Quantity, t.Price)
}
