package store

import (
	"sync"

	"github.com/efreitasn/exchangecore/internal/domain"
)

// OrderRecord is a point-in-time copy of an order placed on an exchange.
type OrderRecord struct {
	ExchangeID domain.ExchangeID `json:"exchange_id"`
	Order      domain.Order      `json:"order"`
}

type orderKey struct {
	exchange domain.ExchangeID
	id       domain.OrderID
}

type symbolKey struct {
	exchange domain.ExchangeID
	symbol   string
}

// OrderStore is a thread-safe in-memory store for orders, with a primary
// index by (exchange, order_id) and a secondary index by symbol. It holds
// copies, never the orders resting in a book.
type OrderStore struct {
	mu           sync.RWMutex
	orders       map[orderKey]*OrderRecord
	symbolOrders map[symbolKey][]*OrderRecord // append-only
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:       make(map[orderKey]*OrderRecord),
		symbolOrders: make(map[symbolKey][]*OrderRecord),
	}
}

// Create stores a copy of o and appends it to the symbol's secondary
// index. Order ids are unique per exchange across all symbols; a second
// order with the same id fails with a DuplicateOrderError.
func (s *OrderStore) Create(exchangeID domain.ExchangeID, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := orderKey{exchangeID, o.ID}
	if _, exists := s.orders[k]; exists {
		return &domain.DuplicateOrderError{OrderID: o.ID}
	}
	rec := &OrderRecord{ExchangeID: exchangeID, Order: *o}
	s.orders[k] = rec
	sk := symbolKey{exchangeID, o.Symbol}
	s.symbolOrders[sk] = append(s.symbolOrders[sk], rec)
	return nil
}

// Delete removes an order from both indexes. Used to roll back an order
// the book refused.
func (s *OrderStore) Delete(exchangeID domain.ExchangeID, id domain.OrderID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := orderKey{exchangeID, id}
	rec, ok := s.orders[k]
	if !ok {
		return
	}
	delete(s.orders, k)
	sk := symbolKey{exchangeID, rec.Order.Symbol}
	list := s.symbolOrders[sk]
	for i, r := range list {
		if r == rec {
			s.symbolOrders[sk] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
}

// Exists reports whether an order with id was placed on the exchange.
func (s *OrderStore) Exists(exchangeID domain.ExchangeID, id domain.OrderID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.orders[orderKey{exchangeID, id}]
	return ok
}

// Fill reduces the stored remaining quantity of an order by qty.
func (s *OrderStore) Fill(exchangeID domain.ExchangeID, id domain.OrderID, qty domain.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[orderKey{exchangeID, id}]
	if !ok {
		return domain.ErrOrderNotFound
	}
	rec.Order.Remaining = rec.Order.Remaining.Sub(qty)
	return nil
}

// Get retrieves an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(exchangeID domain.ExchangeID, id domain.OrderID) (OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[orderKey{exchangeID, id}]
	if !ok {
		return OrderRecord{}, domain.ErrOrderNotFound
	}
	return *rec, nil
}

// ListBySymbol returns orders for a symbol in reverse chronological order
// (newest first). If side is non-nil, only orders on that side are
// included. Pagination is 1-based. Returns the matching orders for the
// requested page and the total count of matching orders (before
// pagination).
func (s *OrderStore) ListBySymbol(exchangeID domain.ExchangeID, symbol string, side *domain.Side, page, limit int) ([]OrderRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.symbolOrders[symbolKey{exchangeID, symbol}]

	// Filter by side if provided, collecting in reverse order.
	filtered := make([]OrderRecord, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if side != nil && all[i].Order.Side != *side {
			continue
		}
		filtered = append(filtered, *all[i])
	}

	total := len(filtered)

	start := (page - 1) * limit
	if start >= total {
		return []OrderRecord{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], total
}
