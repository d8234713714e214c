// Package readmodel keeps a query-side view of every exchange, built only
// from the events the exchanges emit.
package readmodel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/exchange"
	"github.com/efreitasn/exchangecore/internal/store"
)

type exchangeView struct {
	created bool
	pairs   map[string]domain.CurrencyPair
	version int
}

// MarketReadModel is the projection of all exchanges and their tickers.
// Handle is its only writer.
type MarketReadModel struct {
	mu        sync.RWMutex
	exchanges map[domain.ExchangeID]*exchangeView
}

// NewMarketReadModel creates an empty projection.
func NewMarketReadModel() *MarketReadModel {
	return &MarketReadModel{
		exchanges: make(map[domain.ExchangeID]*exchangeView),
	}
}

// Handle applies one stored event. Records at or below the version already
// applied for their exchange are ignored, so redelivery is harmless.
func (m *MarketReadModel) Handle(_ context.Context, rec store.Record) error {
	id := rec.Event.AggregateID()

	m.mu.Lock()
	defer m.mu.Unlock()

	view, ok := m.exchanges[id]
	if !ok {
		view = &exchangeView{pairs: make(map[string]domain.CurrencyPair)}
		m.exchanges[id] = view
	}
	if rec.Version <= view.version {
		return nil
	}
	if rec.Version != view.version+1 {
		return fmt.Errorf("read model for %s at version %d received version %d", id, view.version, rec.Version)
	}

	switch e := rec.Event.(type) {
	case exchange.ExchangeCreated:
		view.created = true
	case exchange.CurrencyPairRegistered:
		view.pairs[e.Symbol] = e.Pair()
	case exchange.TickerRemoved:
		delete(view.pairs, e.Pair.Symbol)
	default:
		return fmt.Errorf("read model: unknown event %T", rec.Event)
	}
	view.version = rec.Version
	return nil
}

// Rebuild replays every stored history into the projection.
func (m *MarketReadModel) Rebuild(ctx context.Context, es store.EventStore) error {
	ids, err := es.ExchangeIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		events, err := es.Load(ctx, id)
		if err != nil {
			return err
		}
		for i, e := range events {
			if err := m.Handle(ctx, store.Record{Event: e, Version: i + 1}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Exists reports whether the exchange has been created.
func (m *MarketReadModel) Exists(id domain.ExchangeID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.exchanges[id]
	return ok && view.created
}

// Exchanges returns the ids of all created exchanges, sorted.
func (m *MarketReadModel) Exchanges() []domain.ExchangeID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]domain.ExchangeID, 0, len(m.exchanges))
	for id, view := range m.exchanges {
		if view.created {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Tickers returns the pairs registered on an exchange ordered by symbol.
func (m *MarketReadModel) Tickers(id domain.ExchangeID) ([]domain.CurrencyPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.exchanges[id]
	if !ok || !view.created {
		return nil, domain.ErrExchangeNotFound
	}
	pairs := make([]domain.CurrencyPair, 0, len(view.pairs))
	for _, p := range view.pairs {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Symbol < pairs[j].Symbol })
	return pairs, nil
}

// Pair looks up one registered pair.
func (m *MarketReadModel) Pair(id domain.ExchangeID, symbol string) (domain.CurrencyPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.exchanges[id]
	if !ok {
		return domain.CurrencyPair{}, false
	}
	p, ok := view.pairs[symbol]
	return p, ok
}
