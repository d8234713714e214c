package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/exchangecore/internal/domain"
)

// OrderBookEntry represents a single order resting on the book. Price,
// CreatedAt and Seq are the ordering key and never change while the entry
// rests; only Order.Remaining is reduced by fills.
type OrderBookEntry struct {
	Price     domain.Price
	CreatedAt time.Time
	Seq       uint64
	Order     *domain.Order
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         domain.Price    `json:"price"`
	TotalQuantity domain.Quantity `json:"total_quantity"`
	OrderCount    int             `json:"order_count"`
}

// Depth is an aggregated view of both sides, best levels first.
type Depth struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// bidLess defines ordering for the bid side: price descending, then
// created_at ascending, then insertion sequence ascending. Min() returns
// the best bid (highest price, earliest time).
func bidLess(a, b OrderBookEntry) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// askLess defines ordering for the ask side: price ascending, then
// created_at ascending, then insertion sequence ascending. Min() returns
// the best ask (lowest price, earliest time).
func askLess(a, b OrderBookEntry) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// PricingPolicy decides the execution price of a match.
type PricingPolicy interface {
	ExecutionPrice(buy, sell *domain.Order) domain.Price
}

// PricingFunc adapts a function to PricingPolicy.
type PricingFunc func(buy, sell *domain.Order) domain.Price

func (f PricingFunc) ExecutionPrice(buy, sell *domain.Order) domain.Price { return f(buy, sell) }

// UnpricedMarketMatching settles every market/market match at zero,
// whoever the participants are.
var UnpricedMarketMatching PricingPolicy = PricingFunc(func(_, _ *domain.Order) domain.Price {
	return domain.ZeroPrice
})

// BookOption configures an OrderBook.
type BookOption func(*OrderBook)

// WithPricing replaces the default UnpricedMarketMatching policy.
func WithPricing(p PricingPolicy) BookOption {
	return func(ob *OrderBook) { ob.pricing = p }
}

// OrderBook maintains the bid and ask sides for a single symbol using
// B-trees with a secondary index for O(log n) removal by order ID.
//
// An OrderBook holds no lock. All calls for one book must come from a
// single goroutine at a time; internal/dispatch provides that.
type OrderBook struct {
	symbol  string
	bids    *btree.BTreeG[OrderBookEntry]
	asks    *btree.BTreeG[OrderBookEntry]
	index   map[domain.OrderID]OrderBookEntry // resting orders only
	seen    map[domain.OrderID]struct{}       // every id ever accepted
	seq     uint64
	pricing PricingPolicy
}

// NewOrderBook creates an order book for the given symbol.
func NewOrderBook(symbol string, opts ...BookOption) *OrderBook {
	const degree = 32
	ob := &OrderBook{
		symbol:  symbol,
		bids:    btree.NewG[OrderBookEntry](degree, bidLess),
		asks:    btree.NewG[OrderBookEntry](degree, askLess),
		index:   make(map[domain.OrderID]OrderBookEntry),
		seen:    make(map[domain.OrderID]struct{}),
		pricing: UnpricedMarketMatching,
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

// Symbol returns the symbol this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// Submit applies an incoming order to the book and returns the trade it
// produced, or nil when there was nothing to match against.
//
// The order is matched against the single best opposing order only. Any
// quantity left on the incoming order rests at its own CreatedAt and is
// picked up by later submissions; the book never sweeps a second level in
// the same call. On error the book is left unchanged.
//
// The book keeps the pointer it is given and reduces order.Remaining in
// place as fills occur.
func (ob *OrderBook) Submit(order *domain.Order) (*domain.Trade, error) {
	if order.Symbol != ob.symbol {
		return nil, fmt.Errorf("%w: order for %s submitted to %s book",
			domain.ErrInstrumentMismatch, order.Symbol, ob.symbol)
	}
	if !order.Side.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid side %q", order.Side)}
	}
	if !order.Remaining.IsPositive() {
		return nil, &domain.ValidationError{Message: "remaining quantity must be > 0"}
	}
	if _, dup := ob.seen[order.ID]; dup {
		return nil, &domain.DuplicateOrderError{OrderID: order.ID}
	}
	ob.seen[order.ID] = struct{}{}

	opposing := ob.side(order.Side.Opposite())
	best, found := opposing.Min()
	if !found {
		ob.rest(order)
		return nil, nil
	}

	resting := best.Order
	matchQty := order.Remaining.Min(resting.Remaining)
	order.Remaining = order.Remaining.Sub(matchQty)
	resting.Remaining = resting.Remaining.Sub(matchQty)

	buy, sell := order, resting
	if order.Side == domain.SideSell {
		buy, sell = resting, order
	}
	trade := domain.NewTrade(buy, sell, matchQty, ob.pricing.ExecutionPrice(buy, sell))

	if resting.IsFilled() {
		opposing.Delete(best)
		delete(ob.index, resting.ID)
	}
	if !order.IsFilled() {
		ob.rest(order)
	}
	return &trade, nil
}

// rest inserts order into its own side keyed by its original CreatedAt.
func (ob *OrderBook) rest(order *domain.Order) {
	ob.seq++
	entry := OrderBookEntry{
		Price:     order.Price,
		CreatedAt: order.CreatedAt,
		Seq:       ob.seq,
		Order:     order,
	}
	ob.side(order.Side).ReplaceOrInsert(entry)
	ob.index[order.ID] = entry
}

func (ob *OrderBook) side(s domain.Side) *btree.BTreeG[OrderBookEntry] {
	if s == domain.SideBuy {
		return ob.bids
	}
	return ob.asks
}

// BestBid returns a copy of the highest-priority bid (highest price,
// earliest time), or ErrEmptyBook when there are no bids.
func (ob *OrderBook) BestBid() (*domain.Order, error) {
	entry, ok := ob.bids.Min()
	if !ok {
		return nil, fmt.Errorf("%w: no bids for %s", domain.ErrEmptyBook, ob.symbol)
	}
	return entry.Order.Clone(), nil
}

// BestAsk returns a copy of the highest-priority ask (lowest price,
// earliest time), or ErrEmptyBook when there are no asks.
func (ob *OrderBook) BestAsk() (*domain.Order, error) {
	entry, ok := ob.asks.Min()
	if !ok {
		return nil, fmt.Errorf("%w: no asks for %s", domain.ErrEmptyBook, ob.symbol)
	}
	return entry.Order.Clone(), nil
}

// Resting returns a copy of the resting order with the given id.
func (ob *OrderBook) Resting(id domain.OrderID) (*domain.Order, bool) {
	entry, ok := ob.index[id]
	if !ok {
		return nil, false
	}
	return entry.Order.Clone(), true
}

// Contains reports whether the book has ever accepted an order with id,
// resting or fully filled.
func (ob *OrderBook) Contains(id domain.OrderID) bool {
	_, ok := ob.seen[id]
	return ok
}

// Bids returns copies of all resting bids in priority order.
func (ob *OrderBook) Bids() []*domain.Order {
	return snapshot(ob.bids)
}

// Asks returns copies of all resting asks in priority order.
func (ob *OrderBook) Asks() []*domain.Order {
	return snapshot(ob.asks)
}

func snapshot(tree *btree.BTreeG[OrderBookEntry]) []*domain.Order {
	out := make([]*domain.Order, 0, tree.Len())
	tree.Ascend(func(entry OrderBookEntry) bool {
		out = append(out, entry.Order.Clone())
		return true
	})
	return out
}

// TopBids returns up to n aggregated price levels from the bid side,
// ordered by price descending.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated price levels from the ask side,
// ordered by price ascending.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	return topLevels(ob.asks, n)
}

// Depth returns up to n aggregated levels per side.
func (ob *OrderBook) Depth(n int) Depth {
	return Depth{Bids: ob.TopBids(n), Asks: ob.TopAsks(n)}
}

// topLevels iterates the B-tree in order and aggregates entries into
// at most n price levels.
func topLevels(tree *btree.BTreeG[OrderBookEntry], n int) []PriceLevel {
	if n <= 0 {
		return []PriceLevel{}
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry OrderBookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(entry.Price) {
			last := &levels[len(levels)-1]
			last.TotalQuantity = last.TotalQuantity.Add(entry.Order.Remaining)
			last.OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: entry.Order.Remaining,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// BidCount returns the number of individual bid orders on the book.
func (ob *OrderBook) BidCount() int {
	return ob.bids.Len()
}

// AskCount returns the number of individual ask orders on the book.
func (ob *OrderBook) AskCount() int {
	return ob.asks.Len()
}

type bookKey struct {
	exchange domain.ExchangeID
	symbol   string
}

// BookManager is a thread-safe map of (exchange, symbol) → OrderBook. The
// map is shared between dispatch workers; the books themselves are not.
type BookManager struct {
	mu    sync.RWMutex
	books map[bookKey]*OrderBook
	opts  []BookOption
}

// NewBookManager creates a new BookManager. opts are applied to every book
// it creates.
func NewBookManager(opts ...BookOption) *BookManager {
	return &BookManager{
		books: make(map[bookKey]*OrderBook),
		opts:  opts,
	}
}

// GetOrCreate returns the order book for symbol on the given exchange,
// creating one if it doesn't already exist.
func (bm *BookManager) GetOrCreate(exchangeID domain.ExchangeID, symbol string) *OrderBook {
	key := bookKey{exchange: exchangeID, symbol: symbol}
	bm.mu.RLock()
	book, ok := bm.books[key]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[key]; ok {
		return book
	}
	book = NewOrderBook(symbol, bm.opts...)
	bm.books[key] = book
	return book
}

// Get returns the order book for symbol on the given exchange, if any.
func (bm *BookManager) Get(exchangeID domain.ExchangeID, symbol string) (*OrderBook, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	book, ok := bm.books[bookKey{exchange: exchangeID, symbol: symbol}]
	return book, ok
}
