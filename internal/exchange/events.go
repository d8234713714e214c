package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/efreitasn/exchangecore/internal/domain"
)

// Event type names, as stored and published.
const (
	EventTypeExchangeCreated        = "ExchangeCreated"
	EventTypeCurrencyPairRegistered = "CurrencyPairRegistered"
	EventTypeTickerRemoved          = "TickerRemoved"
)

// Event is an accepted state change of one exchange. Events are plain
// values and compare with ==.
type Event interface {
	EventType() string
	AggregateID() domain.ExchangeID
}

// ExchangeCreated marks an exchange as created.
type ExchangeCreated struct {
	ExchangeID domain.ExchangeID `json:"exchange_id"`
}

// CurrencyPairRegistered adds a tradeable pair to an exchange.
type CurrencyPairRegistered struct {
	ExchangeID      domain.ExchangeID `json:"exchange_id"`
	Symbol          string            `json:"symbol"`
	BaseCurrency    domain.Currency   `json:"base_currency"`
	CounterCurrency domain.Currency   `json:"counter_currency"`
}

// TickerRemoved takes a pair off an exchange. It carries the full pair as
// it was registered.
type TickerRemoved struct {
	ExchangeID domain.ExchangeID   `json:"exchange_id"`
	Pair       domain.CurrencyPair `json:"pair"`
}

func (e ExchangeCreated) EventType() string                     { return EventTypeExchangeCreated }
func (e ExchangeCreated) AggregateID() domain.ExchangeID        { return e.ExchangeID }
func (e CurrencyPairRegistered) EventType() string              { return EventTypeCurrencyPairRegistered }
func (e CurrencyPairRegistered) AggregateID() domain.ExchangeID { return e.ExchangeID }
func (e TickerRemoved) EventType() string                       { return EventTypeTickerRemoved }
func (e TickerRemoved) AggregateID() domain.ExchangeID          { return e.ExchangeID }

// Pair returns the pair the event registers.
func (e CurrencyPairRegistered) Pair() domain.CurrencyPair {
	return domain.CurrencyPair{Symbol: e.Symbol, Base: e.BaseCurrency, Counter: e.CounterCurrency}
}

// Envelope wraps an event with metadata for serialization.
type Envelope struct {
	Type       string            `json:"type"`
	ExchangeID domain.ExchangeID `json:"exchange_id"`
	Version    int               `json:"version"`
	RecordedAt time.Time         `json:"recorded_at"`
	Data       json.RawMessage   `json:"data"`
}

// Encode returns the JSON payload of e without an envelope.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", e.EventType(), err)
	}
	return data, nil
}

// Marshal encodes an event at the given aggregate version.
func Marshal(e Event, version int, recordedAt time.Time) ([]byte, error) {
	data, err := Encode(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:       e.EventType(),
		ExchangeID: e.AggregateID(),
		Version:    version,
		RecordedAt: recordedAt.UTC(),
		Data:       data,
	})
}

// Unmarshal decodes an envelope produced by Marshal.
func Unmarshal(b []byte) (Event, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	e, err := Decode(env.Type, env.Data)
	if err != nil {
		return nil, Envelope{}, err
	}
	return e, env, nil
}

// Decode rebuilds an event from its type name and JSON payload.
func Decode(eventType string, data []byte) (Event, error) {
	var (
		e   Event
		err error
	)
	switch eventType {
	case EventTypeExchangeCreated:
		var v ExchangeCreated
		err = json.Unmarshal(data, &v)
		e = v
	case EventTypeCurrencyPairRegistered:
		var v CurrencyPairRegistered
		err = json.Unmarshal(data, &v)
		e = v
	case EventTypeTickerRemoved:
		var v TickerRemoved
		err = json.Unmarshal(data, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", eventType, err)
	}
	return e, nil
}
