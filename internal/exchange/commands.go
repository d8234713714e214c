package exchange

import "github.com/efreitasn/exchangecore/internal/domain"

// Command is a request to change one exchange.
type Command interface {
	CommandName() string
	Target() domain.ExchangeID
}

// CreateExchange creates an exchange.
type CreateExchange struct {
	ExchangeID domain.ExchangeID
}

// RegisterCurrencyPair makes a pair tradeable on an exchange.
type RegisterCurrencyPair struct {
	ExchangeID      domain.ExchangeID
	Symbol          string
	BaseCurrency    domain.Currency
	CounterCurrency domain.Currency
}

// RemoveTicker takes a symbol off an exchange.
type RemoveTicker struct {
	ExchangeID domain.ExchangeID
	Symbol     string
}

func (c CreateExchange) CommandName() string             { return "create_exchange" }
func (c CreateExchange) Target() domain.ExchangeID       { return c.ExchangeID }
func (c RegisterCurrencyPair) CommandName() string       { return "register_currency_pair" }
func (c RegisterCurrencyPair) Target() domain.ExchangeID { return c.ExchangeID }
func (c RemoveTicker) CommandName() string               { return "remove_ticker" }
func (c RemoveTicker) Target() domain.ExchangeID         { return c.ExchangeID }
