package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/exchange"
)

func eventStores(t *testing.T) map[string]EventStore {
	t.Helper()
	sqlStore, err := OpenSQLEventStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })
	return map[string]EventStore{
		"memory": NewMemoryEventStore(),
		"sqlite": sqlStore,
	}
}

func history(id domain.ExchangeID) []exchange.Event {
	return []exchange.Event{
		exchange.ExchangeCreated{ExchangeID: id},
		exchange.CurrencyPairRegistered{ExchangeID: id, Symbol: "ABC/XYZ", BaseCurrency: "ABC", CounterCurrency: "XYZ"},
		exchange.TickerRemoved{ExchangeID: id, Pair: domain.NewCurrencyPair("ABC", "XYZ")},
	}
}

func TestEventStore_AppendAndLoad(t *testing.T) {
	for name, s := range eventStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			events := history("ex-1")

			records, err := s.Append(ctx, "ex-1", 0, events[:1])
			if err != nil {
				t.Fatalf("first append: %v", err)
			}
			if len(records) != 1 || records[0].Version != 1 {
				t.Fatalf("unexpected records %+v", records)
			}
			records, err = s.Append(ctx, "ex-1", 1, events[1:])
			if err != nil {
				t.Fatalf("second append: %v", err)
			}
			if len(records) != 2 || records[0].Version != 2 || records[1].Version != 3 {
				t.Fatalf("unexpected records %+v", records)
			}

			loaded, err := s.Load(ctx, "ex-1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(loaded, events) {
				t.Fatalf("loaded %v, want %v", loaded, events)
			}
		})
	}
}

func TestEventStore_LoadUnknown(t *testing.T) {
	for name, s := range eventStores(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := s.Load(context.Background(), "nope")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(loaded) != 0 {
				t.Fatalf("expected empty history, got %v", loaded)
			}
		})
	}
}

func TestEventStore_VersionConflict(t *testing.T) {
	for name, s := range eventStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			events := history("ex-1")
			if _, err := s.Append(ctx, "ex-1", 0, events[:1]); err != nil {
				t.Fatalf("append: %v", err)
			}

			for _, expected := range []int{0, 2} {
				_, err := s.Append(ctx, "ex-1", expected, events[1:2])
				if !errors.Is(err, domain.ErrConcurrencyConflict) {
					t.Fatalf("expected version %d: got %v, want ErrConcurrencyConflict", expected, err)
				}
			}

			loaded, _ := s.Load(ctx, "ex-1")
			if len(loaded) != 1 {
				t.Fatalf("conflicting append changed the history: %v", loaded)
			}
		})
	}
}

func TestEventStore_ExchangeIDs(t *testing.T) {
	for name, s := range eventStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []domain.ExchangeID{"ex-b", "ex-a"} {
				if _, err := s.Append(ctx, id, 0, history(id)); err != nil {
					t.Fatalf("append %s: %v", id, err)
				}
			}
			ids, err := s.ExchangeIDs(ctx)
			if err != nil {
				t.Fatalf("ExchangeIDs: %v", err)
			}
			want := []domain.ExchangeID{"ex-a", "ex-b"}
			if !reflect.DeepEqual(ids, want) {
				t.Fatalf("ids = %v, want %v", ids, want)
			}
		})
	}
}

func TestSQLEventStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	s, err := OpenSQLEventStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Append(ctx, "ex-1", 0, history("ex-1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLEventStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "ex-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ex, err := exchange.Load("ex-1", loaded)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if ex.Version() != 3 || !ex.Created() || len(ex.Pairs()) != 0 {
		t.Fatalf("unexpected replayed state %+v", ex.Snapshot())
	}
}
