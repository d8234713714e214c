package store

import (
	"sync"
	"time"

	"github.com/efreitasn/exchangecore/internal/domain"
)

// TradeRecord is a trade as executed on an exchange.
type TradeRecord struct {
	ID         domain.TradeID    `json:"trade_id"`
	ExchangeID domain.ExchangeID `json:"exchange_id"`
	Symbol     string            `json:"symbol"`
	Trade      domain.Trade      `json:"trade"`
	ExecutedAt time.Time         `json:"executed_at"`
}

// TradeStore is a thread-safe in-memory store for trades,
// keyed by exchange and symbol. Trades are append-only and chronological.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[symbolKey][]TradeRecord
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[symbolKey][]TradeRecord),
	}
}

// Append adds a trade to the symbol's chronological list.
func (s *TradeStore) Append(rec TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := symbolKey{rec.ExchangeID, rec.Symbol}
	s.trades[k] = append(s.trades[k], rec)
}

// GetBySymbol returns all trades for a symbol in chronological order.
// Returns an empty slice if no trades exist for the symbol.
func (s *TradeStore) GetBySymbol(exchangeID domain.ExchangeID, symbol string) []TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbolKey{exchangeID, symbol}]

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]TradeRecord, len(trades))
	copy(result, trades)
	return result
}

// Since returns the trades for a symbol executed at or after t.
func (s *TradeStore) Since(exchangeID domain.ExchangeID, symbol string, t time.Time) []TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbolKey{exchangeID, symbol}]
	result := make([]TradeRecord, 0)
	for i := len(trades) - 1; i >= 0 && !trades[i].ExecutedAt.Before(t); i-- {
		result = append(result, trades[i])
	}
	// Restore chronological order.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}
