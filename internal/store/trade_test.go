package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/exchangecore/internal/domain"
)

func newTestTrade(id string, symbol string, executedAt time.Time) TradeRecord {
	return TradeRecord{
		ID:         domain.TradeID(id),
		ExchangeID: "ex-1",
		Symbol:     symbol,
		Trade: domain.Trade{
			BuyOrderID:  "b1",
			SellOrderID: "s1",
			Quantity:    domain.MustQuantity("10"),
		},
		ExecutedAt: executedAt,
	}
}

func TestTradeStore_Append_and_GetBySymbol(t *testing.T) {
	s := NewTradeStore()
	now := time.Now()

	s.Append(newTestTrade("trade-1", "ABC/XYZ", now))
	s.Append(newTestTrade("trade-2", "ABC/XYZ", now.Add(time.Second)))

	trades := s.GetBySymbol("ex-1", "ABC/XYZ")
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID != "trade-1" || trades[1].ID != "trade-2" {
		t.Fatalf("expected chronological order, got %s, %s", trades[0].ID, trades[1].ID)
	}
}

func TestTradeStore_GetBySymbol_Empty(t *testing.T) {
	s := NewTradeStore()

	trades := s.GetBySymbol("ex-1", "DEF/XYZ")
	if trades == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(trades) != 0 {
		t.Fatalf("expected 0 trades, got %d", len(trades))
	}
}

func TestTradeStore_GetBySymbol_ReturnsCopy(t *testing.T) {
	s := NewTradeStore()
	s.Append(newTestTrade("trade-1", "ABC/XYZ", time.Now()))

	trades := s.GetBySymbol("ex-1", "ABC/XYZ")
	trades[0].ID = "mutated"

	// Internal state should be unaffected.
	if s.GetBySymbol("ex-1", "ABC/XYZ")[0].ID != "trade-1" {
		t.Fatal("GetBySymbol should return a copy; internal state was mutated")
	}
}

func TestTradeStore_ScopedByExchangeAndSymbol(t *testing.T) {
	s := NewTradeStore()
	now := time.Now()

	s.Append(newTestTrade("t1", "ABC/XYZ", now))
	s.Append(newTestTrade("t2", "DEF/XYZ", now))
	other := newTestTrade("t3", "ABC/XYZ", now)
	other.ExchangeID = "ex-2"
	s.Append(other)

	if got := len(s.GetBySymbol("ex-1", "ABC/XYZ")); got != 1 {
		t.Errorf("expected 1 ABC/XYZ trade on ex-1, got %d", got)
	}
	if got := len(s.GetBySymbol("ex-2", "ABC/XYZ")); got != 1 {
		t.Errorf("expected 1 ABC/XYZ trade on ex-2, got %d", got)
	}
}

func TestTradeStore_Since(t *testing.T) {
	s := NewTradeStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Append(newTestTrade(fmt.Sprintf("t%d", i), "ABC/XYZ", base.Add(time.Duration(i)*time.Minute)))
	}

	got := s.Since("ex-1", "ABC/XYZ", base.Add(2*time.Minute))
	if len(got) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(got))
	}
	if got[0].ID != "t2" || got[2].ID != "t4" {
		t.Fatalf("expected t2..t4 in order, got %s..%s", got[0].ID, got[2].ID)
	}
	if len(s.Since("ex-1", "ABC/XYZ", base.Add(time.Hour))) != 0 {
		t.Fatal("expected no trades after the last one")
	}
}

func TestTradeStore_ConcurrentAppend(t *testing.T) {
	s := NewTradeStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(newTestTrade(fmt.Sprintf("t%d", i), "ABC/XYZ", time.Now()))
		}(i)
	}
	wg.Wait()

	if got := len(s.GetBySymbol("ex-1", "ABC/XYZ")); got != 100 {
		t.Fatalf("expected 100 trades, got %d", got)
	}
}
