// Package exchange implements the event-sourced exchange aggregate: the
// set of currency pairs one exchange trades, changed only through
// validated commands and rebuilt by replaying the events those commands
// emitted.
package exchange

import (
	"fmt"
	"sort"

	"github.com/efreitasn/exchangecore/internal/domain"
)

// Exchange is the aggregate state for one exchange id. It is not safe for
// concurrent use; callers serialize commands per exchange id.
type Exchange struct {
	id      domain.ExchangeID
	created bool
	pairs   map[string]domain.CurrencyPair
	version int
}

// New returns an empty, not yet created aggregate for id.
func New(id domain.ExchangeID) *Exchange {
	return &Exchange{
		id:    id,
		pairs: make(map[string]domain.CurrencyPair),
	}
}

// Load rebuilds the aggregate for id by applying history in order.
func Load(id domain.ExchangeID, history []Event) (*Exchange, error) {
	ex := New(id)
	for i, e := range history {
		if err := ex.Apply(e); err != nil {
			return nil, fmt.Errorf("replaying event %d of %s: %w", i+1, id, err)
		}
	}
	return ex, nil
}

// ID returns the exchange id the aggregate was loaded for.
func (ex *Exchange) ID() domain.ExchangeID { return ex.id }

// Created reports whether ExchangeCreated has been applied.
func (ex *Exchange) Created() bool { return ex.created }

// Version is the number of events applied so far.
func (ex *Exchange) Version() int { return ex.version }

// Pair returns the registered pair with the given symbol.
func (ex *Exchange) Pair(symbol string) (domain.CurrencyPair, bool) {
	p, ok := ex.pairs[symbol]
	return p, ok
}

// Pairs returns the registered pairs ordered by symbol.
func (ex *Exchange) Pairs() []domain.CurrencyPair {
	out := make([]domain.CurrencyPair, 0, len(ex.pairs))
	for _, p := range ex.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Handle validates cmd against the current state and, when accepted,
// applies and returns the resulting events. A rejected command leaves the
// aggregate unchanged.
func (ex *Exchange) Handle(cmd Command) ([]Event, error) {
	if cmd.Target() != ex.id {
		return nil, &domain.InvalidStateError{
			ExchangeID: ex.id,
			Reason:     fmt.Sprintf("command addressed to exchange %s", cmd.Target()),
		}
	}
	switch c := cmd.(type) {
	case CreateExchange:
		return ex.Create()
	case RegisterCurrencyPair:
		return ex.RegisterCurrencyPair(c.Symbol, c.BaseCurrency, c.CounterCurrency)
	case RemoveTicker:
		return ex.RemoveTicker(c.Symbol)
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}

// Create marks the exchange as created.
func (ex *Exchange) Create() ([]Event, error) {
	if ex.created {
		return nil, &domain.InvalidStateError{ExchangeID: ex.id, Reason: "already created"}
	}
	return ex.emit(ExchangeCreated{ExchangeID: ex.id})
}

// RegisterCurrencyPair makes base/counter tradeable under symbol.
func (ex *Exchange) RegisterCurrencyPair(symbol string, base, counter domain.Currency) ([]Event, error) {
	if err := ex.requireCreated(); err != nil {
		return nil, err
	}
	pair, err := domain.NewCurrencyPairWithSymbol(symbol, base, counter)
	if err != nil {
		return nil, err
	}
	if _, exists := ex.pairs[pair.Symbol]; exists {
		return nil, &domain.DuplicateSymbolError{Symbol: pair.Symbol}
	}
	return ex.emit(CurrencyPairRegistered{
		ExchangeID:      ex.id,
		Symbol:          pair.Symbol,
		BaseCurrency:    pair.Base,
		CounterCurrency: pair.Counter,
	})
}

// RemoveTicker takes symbol off the exchange.
func (ex *Exchange) RemoveTicker(symbol string) ([]Event, error) {
	if err := ex.requireCreated(); err != nil {
		return nil, err
	}
	pair, ok := ex.pairs[symbol]
	if !ok {
		return nil, &domain.NoSuchTickerError{Symbol: symbol}
	}
	return ex.emit(TickerRemoved{ExchangeID: ex.id, Pair: pair})
}

func (ex *Exchange) requireCreated() error {
	if !ex.created {
		return &domain.InvalidStateError{ExchangeID: ex.id, Reason: "not created"}
	}
	return nil
}

// emit applies e through the replay path so command handling and replay
// cannot drift apart.
func (ex *Exchange) emit(e Event) ([]Event, error) {
	if err := ex.Apply(e); err != nil {
		return nil, err
	}
	return []Event{e}, nil
}

// Apply folds one event into the state. It is the only place state
// changes, for both new and replayed events. ExchangeCreated must come
// first and only once; anything else fails with ErrInvalidState.
func (ex *Exchange) Apply(e Event) error {
	if e.AggregateID() != ex.id {
		return fmt.Errorf("%w: event for %s applied to %s", domain.ErrInvalidState, e.AggregateID(), ex.id)
	}
	if _, isCreate := e.(ExchangeCreated); isCreate == ex.created {
		return fmt.Errorf("%w: %s at version %d of %s", domain.ErrInvalidState, e.EventType(), ex.version, ex.id)
	}
	switch ev := e.(type) {
	case ExchangeCreated:
		ex.created = true
	case CurrencyPairRegistered:
		ex.pairs[ev.Symbol] = ev.Pair()
	case TickerRemoved:
		delete(ex.pairs, ev.Pair.Symbol)
	default:
		return fmt.Errorf("unknown event %T", e)
	}
	ex.version++
	return nil
}

// State is a plain copy of the aggregate, suitable for comparison.
type State struct {
	ID      domain.ExchangeID
	Created bool
	Pairs   []domain.CurrencyPair
	Version int
}

// Snapshot returns the current state.
func (ex *Exchange) Snapshot() State {
	return State{
		ID:      ex.id,
		Created: ex.created,
		Pairs:   ex.Pairs(),
		Version: ex.version,
	}
}
