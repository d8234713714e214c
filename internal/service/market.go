package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/efreitasn/exchangecore/internal/dispatch"
	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/engine"
	"github.com/efreitasn/exchangecore/internal/readmodel"
	"github.com/efreitasn/exchangecore/internal/store"
)

// BookResponse represents an aggregated snapshot of one order book.
type BookResponse struct {
	ExchangeID  domain.ExchangeID
	Symbol      string
	Bids        []engine.PriceLevel
	Asks        []engine.PriceLevel
	RestingBids int
	RestingAsks int
	SnapshotAt  time.Time
}

// StatsResponse summarizes the trading activity of one symbol.
type StatsResponse struct {
	ExchangeID     domain.ExchangeID
	Symbol         string
	Window         string // e.g. "5m"
	TradesInWindow int
	VolumeInWindow domain.Quantity
	TotalTrades    int
	TotalVolume    domain.Quantity
	LastTradeAt    *time.Time // nil when no trades ever
}

// OrderListResponse is one page of orders.
type OrderListResponse struct {
	Orders []store.OrderRecord
	Total  int
	Page   int
	Limit  int
}

// MarketService answers read-only queries about exchanges, books, orders
// and trades.
type MarketService struct {
	market      *readmodel.MarketReadModel
	books       *engine.BookManager
	orders      *store.OrderStore
	trades      *store.TradeStore
	dispatcher  *dispatch.Dispatcher
	statsWindow time.Duration
	now         func() time.Time
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(
	market *readmodel.MarketReadModel,
	books *engine.BookManager,
	orders *store.OrderStore,
	trades *store.TradeStore,
	dispatcher *dispatch.Dispatcher,
	statsWindow time.Duration,
) *MarketService {
	return &MarketService{
		market:      market,
		books:       books,
		orders:      orders,
		trades:      trades,
		dispatcher:  dispatcher,
		statsWindow: statsWindow,
		now:         time.Now,
	}
}

// Exchanges returns the ids of all created exchanges.
func (s *MarketService) Exchanges() []domain.ExchangeID {
	return s.market.Exchanges()
}

// Tickers returns the pairs currently tradeable on an exchange.
func (s *MarketService) Tickers(id domain.ExchangeID) ([]domain.CurrencyPair, error) {
	pairs, err := s.market.Tickers(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, id)
	}
	return pairs, nil
}

// GetBook returns the top depth price levels of both sides of a book.
// A registered symbol that never received an order has an empty book. The
// book of a removed ticker stays readable.
func (s *MarketService) GetBook(ctx context.Context, id domain.ExchangeID, symbol string, depth int) (*BookResponse, error) {
	if depth < 1 || depth > 50 {
		return nil, &domain.ValidationError{
			Message: "depth must be between 1 and 50",
		}
	}
	if _, err := lookupPair(s.market, id, symbol); err != nil {
		if _, ok := s.books.Get(id, symbol); !ok || !errors.Is(err, domain.ErrNoSuchTicker) {
			return nil, err
		}
	}

	resp := &BookResponse{
		ExchangeID: id,
		Symbol:     symbol,
		Bids:       []engine.PriceLevel{},
		Asks:       []engine.PriceLevel{},
	}
	err := s.dispatcher.Do(ctx, bookKey(id, symbol), func() error {
		resp.SnapshotAt = s.now()
		book, ok := s.books.Get(id, symbol)
		if !ok {
			return nil
		}
		resp.Bids = book.TopBids(depth)
		resp.Asks = book.TopAsks(depth)
		resp.RestingBids = book.BidCount()
		resp.RestingAsks = book.AskCount()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetStats returns trade count and traded volume for symbol over the
// configured window, plus all-time totals.
func (s *MarketService) GetStats(id domain.ExchangeID, symbol string) (*StatsResponse, error) {
	if _, err := lookupPair(s.market, id, symbol); err != nil {
		return nil, err
	}

	trades := s.trades.GetBySymbol(id, symbol)
	windowStart := s.now().Add(-s.statsWindow)

	resp := &StatsResponse{
		ExchangeID:  id,
		Symbol:      symbol,
		Window:      formatDuration(s.statsWindow),
		TotalTrades: len(trades),
	}
	if len(trades) == 0 {
		return resp, nil
	}

	last := trades[len(trades)-1].ExecutedAt
	resp.LastTradeAt = &last

	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		resp.TotalVolume = resp.TotalVolume.Add(t.Trade.Quantity)
		if !t.ExecutedAt.Before(windowStart) {
			resp.TradesInWindow++
			resp.VolumeInWindow = resp.VolumeInWindow.Add(t.Trade.Quantity)
		}
	}
	return resp, nil
}

// GetOrder retrieves an order placed on an exchange.
func (s *MarketService) GetOrder(id domain.ExchangeID, orderID domain.OrderID) (store.OrderRecord, error) {
	if !s.market.Exists(id) {
		return store.OrderRecord{}, fmt.Errorf("%w: %s", domain.ErrExchangeNotFound, id)
	}
	return s.orders.Get(id, orderID)
}

// ListOrders returns a page of the orders placed for symbol, newest first,
// optionally restricted to one side. Orders stay listable after their
// ticker is removed.
func (s *MarketService) ListOrders(id domain.ExchangeID, symbol string, side *domain.Side, page, limit int) (*OrderListResponse, error) {
	if !s.market.Exists(id) {
		return nil, fmt.Errorf("%w: %s", domain.ErrExchangeNotFound, id)
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, &domain.ValidationError{Message: "symbol is required"}
	}
	if side != nil && !side.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Invalid side filter: '%s'. Must be one of: buy, sell", *side),
		}
	}
	if page < 1 {
		return nil, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	orders, total := s.orders.ListBySymbol(id, symbol, side, page, limit)
	return &OrderListResponse{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// formatDuration converts a time.Duration to a human-readable string
// like "5m" for the window field.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
