package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/exchangecore/internal/domain"
)

var testPair = domain.NewCurrencyPair("ABC", "XYZ")

func newTestOrder(id string, side domain.Side, createdAt time.Time) *domain.Order {
	return domain.NewMarketOrder(domain.OrderID(id), side, testPair, domain.MustQuantity("10"), createdAt)
}

func TestOrderStore_Create_and_Get(t *testing.T) {
	s := NewOrderStore()
	o := newTestOrder("order-1", domain.SideBuy, time.Now())

	if err := s.Create("ex-1", o); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get("ex-1", "order-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Order.ID != "order-1" || got.ExchangeID != "ex-1" {
		t.Fatalf("unexpected record %+v", got)
	}
	if !s.Exists("ex-1", "order-1") {
		t.Fatal("Exists should report the stored order")
	}
}

func TestOrderStore_StoresCopy(t *testing.T) {
	s := NewOrderStore()
	o := newTestOrder("order-1", domain.SideBuy, time.Now())
	s.Create("ex-1", o)

	o.Remaining = domain.MustQuantity("1")

	got, _ := s.Get("ex-1", "order-1")
	if !got.Order.Remaining.Equal(domain.MustQuantity("10")) {
		t.Fatalf("store aliased the caller's order: remaining %s", got.Order.Remaining)
	}
}

func TestOrderStore_Create_DuplicateID(t *testing.T) {
	s := NewOrderStore()
	if err := s.Create("ex-1", newTestOrder("order-1", domain.SideBuy, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	other := domain.NewBuyOrder("order-1", domain.NewCurrencyPair("DEF", "XYZ"), domain.MustQuantity("1"), time.Now())
	if err := s.Create("ex-1", other); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder across symbols, got %v", err)
	}
	if err := s.Create("ex-2", other); err != nil {
		t.Fatalf("same id on another exchange should be accepted, got %v", err)
	}
}

func TestOrderStore_Delete(t *testing.T) {
	s := NewOrderStore()
	now := time.Now()
	s.Create("ex-1", newTestOrder("order-1", domain.SideBuy, now))
	s.Create("ex-1", newTestOrder("order-2", domain.SideBuy, now))

	s.Delete("ex-1", "order-1")
	s.Delete("ex-1", "missing")

	if s.Exists("ex-1", "order-1") {
		t.Fatal("deleted order still exists")
	}
	orders, total := s.ListBySymbol("ex-1", testPair.Symbol, nil, 1, 10)
	if total != 1 || orders[0].Order.ID != "order-2" {
		t.Fatalf("unexpected listing after delete: %v", orders)
	}
	if err := s.Create("ex-1", newTestOrder("order-1", domain.SideSell, now)); err != nil {
		t.Fatalf("id should be reusable after delete: %v", err)
	}
}

func TestOrderStore_Get_NotFound(t *testing.T) {
	s := NewOrderStore()
	s.Create("ex-1", newTestOrder("order-1", domain.SideBuy, time.Now()))

	if _, err := s.Get("ex-1", "no-such-order"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := s.Get("ex-2", "order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("orders must be scoped by exchange, got %v", err)
	}
}

func TestOrderStore_Fill(t *testing.T) {
	s := NewOrderStore()
	s.Create("ex-1", newTestOrder("order-1", domain.SideSell, time.Now()))

	if err := s.Fill("ex-1", "order-1", domain.MustQuantity("2.5")); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, _ := s.Get("ex-1", "order-1")
	if !got.Order.Remaining.Equal(domain.MustQuantity("7.5")) {
		t.Fatalf("remaining = %s, want 7.5", got.Order.Remaining)
	}

	// The symbol index shares the record.
	list, _ := s.ListBySymbol("ex-1", testPair.Symbol, nil, 1, 10)
	if !list[0].Order.Remaining.Equal(domain.MustQuantity("7.5")) {
		t.Fatalf("listed remaining = %s, want 7.5", list[0].Order.Remaining)
	}

	if err := s.Fill("ex-1", "missing", domain.MustQuantity("1")); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderStore_ListBySymbol_ReverseChronological(t *testing.T) {
	s := NewOrderStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Create("ex-1", newTestOrder(fmt.Sprintf("order-%d", i), domain.SideBuy, base.Add(time.Duration(i)*time.Minute)))
	}

	orders, total := s.ListBySymbol("ex-1", testPair.Symbol, nil, 1, 10)
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(orders) != 5 {
		t.Fatalf("expected 5 orders, got %d", len(orders))
	}

	// Should be newest first.
	for i := 0; i < len(orders)-1; i++ {
		if !orders[i].Order.CreatedAt.After(orders[i+1].Order.CreatedAt) {
			t.Fatalf("orders not in reverse chronological order at index %d", i)
		}
	}
}

func TestOrderStore_ListBySymbol_SideFilter(t *testing.T) {
	s := NewOrderStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	sides := []domain.Side{domain.SideBuy, domain.SideSell, domain.SideBuy, domain.SideSell, domain.SideBuy}
	for i, side := range sides {
		s.Create("ex-1", newTestOrder(fmt.Sprintf("order-%d", i), side, base.Add(time.Duration(i)*time.Minute)))
	}

	buy := domain.SideBuy
	orders, total := s.ListBySymbol("ex-1", testPair.Symbol, &buy, 1, 10)
	if total != 3 {
		t.Fatalf("expected total 3 buys, got %d", total)
	}
	for _, o := range orders {
		if o.Order.Side != domain.SideBuy {
			t.Fatalf("expected buy side, got %s", o.Order.Side)
		}
	}
}

func TestOrderStore_ListBySymbol_Pagination(t *testing.T) {
	s := NewOrderStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		s.Create("ex-1", newTestOrder(fmt.Sprintf("order-%d", i), domain.SideBuy, base.Add(time.Duration(i)*time.Minute)))
	}

	// Page 1, limit 3.
	orders, total := s.ListBySymbol("ex-1", testPair.Symbol, nil, 1, 3)
	if total != 10 || len(orders) != 3 {
		t.Fatalf("page 1: total=%d len=%d, want 10 3", total, len(orders))
	}

	// Page 4, limit 3 → only 1 remaining.
	orders, _ = s.ListBySymbol("ex-1", testPair.Symbol, nil, 4, 3)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order on page 4, got %d", len(orders))
	}

	// Page beyond range.
	orders, total = s.ListBySymbol("ex-1", testPair.Symbol, nil, 5, 3)
	if total != 10 || len(orders) != 0 {
		t.Fatalf("beyond last page: total=%d len=%d, want 10 0", total, len(orders))
	}
}

func TestOrderStore_ListBySymbol_Empty(t *testing.T) {
	s := NewOrderStore()

	orders, total := s.ListBySymbol("ex-1", "NO/PE", nil, 1, 10)
	if total != 0 || len(orders) != 0 {
		t.Fatalf("expected nothing, got total=%d len=%d", total, len(orders))
	}
}

func TestOrderStore_ConcurrentAccess(t *testing.T) {
	s := NewOrderStore()
	now := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.OrderID(fmt.Sprintf("order-%d", i))
			s.Create("ex-1", newTestOrder(string(id), domain.SideBuy, now))
			_ = s.Fill("ex-1", id, domain.MustQuantity("1"))
			_, _ = s.Get("ex-1", id)
			s.ListBySymbol("ex-1", testPair.Symbol, nil, 1, 10)
		}(i)
	}
	wg.Wait()

	_, total := s.ListBySymbol("ex-1", testPair.Symbol, nil, 1, 100)
	if total != 50 {
		t.Fatalf("expected 50 orders, got %d", total)
	}
}
