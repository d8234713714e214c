package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrDuplicateOrder              = errors.New("duplicate_order")
	ErrDuplicateCurrencyPairSymbol = errors.New("duplicate_currency_pair_symbol")
	ErrNoSuchTicker                = errors.New("no_such_ticker")
	ErrInvalidState                = errors.New("invalid_state")
	ErrEmptyBook                   = errors.New("empty_book")
	ErrInstrumentMismatch          = errors.New("instrument_mismatch")
	ErrExchangeNotFound            = errors.New("exchange_not_found")
	ErrOrderNotFound               = errors.New("order_not_found")
	ErrConcurrencyConflict         = errors.New("concurrency_conflict")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateOrderError is returned when an order id has already been
// accepted by a book.
type DuplicateOrderError struct {
	OrderID OrderID
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("duplicate order. id:%s", e.OrderID)
}

func (e *DuplicateOrderError) Unwrap() error { return ErrDuplicateOrder }

// DuplicateSymbolError is returned when registering a symbol an exchange
// already trades.
type DuplicateSymbolError struct {
	Symbol string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate currency pair symbol: %s", e.Symbol)
}

func (e *DuplicateSymbolError) Unwrap() error { return ErrDuplicateCurrencyPairSymbol }

// NoSuchTickerError is returned when a symbol is not registered.
type NoSuchTickerError struct {
	Symbol string
}

func (e *NoSuchTickerError) Error() string {
	return fmt.Sprintf("no such ticker: %s", e.Symbol)
}

func (e *NoSuchTickerError) Unwrap() error { return ErrNoSuchTicker }

// InvalidStateError is returned when a command does not apply to the
// current lifecycle state of an exchange.
type InvalidStateError struct {
	ExchangeID ExchangeID
	Reason     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("exchange %s: %s", e.ExchangeID, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
