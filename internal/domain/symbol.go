package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var currencyRegex = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// ExchangeID identifies one exchange aggregate.
type ExchangeID string

// NewExchangeID returns a random exchange identity.
func NewExchangeID() ExchangeID {
	return ExchangeID(uuid.New().String())
}

func (id ExchangeID) String() string { return string(id) }

// OrderID identifies an order. Callers may supply their own ids; NewOrderID
// generates one when they don't.
type OrderID string

// NewOrderID returns a random order identity.
func NewOrderID() OrderID {
	return OrderID(uuid.New().String())
}

func (id OrderID) String() string { return string(id) }

// TradeID identifies a recorded trade.
type TradeID string

// NewTradeID returns a random trade identity.
func NewTradeID() TradeID {
	return TradeID(uuid.New().String())
}

// Currency is an upper-case currency code such as "BTC" or "USD".
type Currency string

// NewCurrency validates a currency code.
func NewCurrency(code string) (Currency, error) {
	if !currencyRegex.MatchString(code) {
		return "", &ValidationError{
			Message: fmt.Sprintf("currency code must match %s, got %q", currencyRegex.String(), code),
		}
	}
	return Currency(code), nil
}

// Ticker is the symbol under which a currency pair trades.
type Ticker struct {
	Symbol string
}

// CurrencyPair is a tradeable pair: the base currency is bought or sold,
// priced in the counter currency. Pairs are identified by their symbol.
type CurrencyPair struct {
	Symbol  string   `json:"symbol"`
	Base    Currency `json:"base_currency"`
	Counter Currency `json:"counter_currency"`
}

// NewCurrencyPair builds a pair whose symbol is "BASE/COUNTER".
func NewCurrencyPair(base, counter Currency) CurrencyPair {
	return CurrencyPair{
		Symbol:  PairSymbol(base, counter),
		Base:    base,
		Counter: counter,
	}
}

// NewCurrencyPairWithSymbol builds a pair traded under an explicit symbol.
func NewCurrencyPairWithSymbol(symbol string, base, counter Currency) (CurrencyPair, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return CurrencyPair{}, &ValidationError{Message: "symbol must not be empty"}
	}
	if base == counter {
		return CurrencyPair{}, &ValidationError{
			Message: fmt.Sprintf("base and counter currency must differ, got %s for both", base),
		}
	}
	return CurrencyPair{Symbol: symbol, Base: base, Counter: counter}, nil
}

// PairSymbol returns the conventional symbol for a base/counter combination.
func PairSymbol(base, counter Currency) string {
	return string(base) + "/" + string(counter)
}

// Ticker returns the ticker the pair is traded under.
func (p CurrencyPair) Ticker() Ticker {
	return Ticker{Symbol: p.Symbol}
}

// Equal reports whether both pairs trade under the same symbol.
func (p CurrencyPair) Equal(o CurrencyPair) bool {
	return p.Symbol == o.Symbol
}

func (p CurrencyPair) String() string {
	return fmt.Sprintf("%s (%s/%s)", p.Symbol, p.Base, p.Counter)
}
