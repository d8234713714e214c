package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efreitasn/exchangecore/internal/config"
	"github.com/efreitasn/exchangecore/internal/dispatch"
	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/engine"
	"github.com/efreitasn/exchangecore/internal/eventbus"
	"github.com/efreitasn/exchangecore/internal/exchange"
	"github.com/efreitasn/exchangecore/internal/metrics"
	"github.com/efreitasn/exchangecore/internal/readmodel"
	"github.com/efreitasn/exchangecore/internal/store"
)

// PlaceOrderRequest represents the input for order placement.
type PlaceOrderRequest struct {
	OrderID   string // generated when empty
	Side      domain.Side
	Symbol    string
	Quantity  string
	CreatedAt *time.Time // defaults to the service clock
}

// PlaceOrderResult is the placed order as it stood after matching, plus
// the trade it produced, if any.
type PlaceOrderResult struct {
	Order domain.Order
	Trade *store.TradeRecord
}

// ExchangeService handles exchange commands and order placement.
//
// Commands for one exchange run on that exchange's dispatch worker; orders
// for one (exchange, symbol) book run on the book's worker.
type ExchangeService struct {
	events     store.EventStore
	publisher  eventbus.Publisher
	market     *readmodel.MarketReadModel
	books      *engine.BookManager
	orders     *store.OrderStore
	trades     *store.TradeStore
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewExchangeService creates a new ExchangeService with the given
// dependencies. market must be subscribed to publisher.
func NewExchangeService(
	events store.EventStore,
	publisher eventbus.Publisher,
	market *readmodel.MarketReadModel,
	books *engine.BookManager,
	orders *store.OrderStore,
	trades *store.TradeStore,
	dispatcher *dispatch.Dispatcher,
	logger *slog.Logger,
) *ExchangeService {
	return &ExchangeService{
		events:     events,
		publisher:  publisher,
		market:     market,
		books:      books,
		orders:     orders,
		trades:     trades,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func exchangeKey(id domain.ExchangeID) string {
	return "exchange:" + string(id)
}

func bookKey(id domain.ExchangeID, symbol string) string {
	return "book:" + string(id) + "|" + symbol
}

// InitializeExchange creates an exchange. An empty id is replaced by a
// generated one; the id actually used is returned.
func (s *ExchangeService) InitializeExchange(ctx context.Context, id domain.ExchangeID) (domain.ExchangeID, error) {
	id = domain.ExchangeID(strings.TrimSpace(string(id)))
	if id == "" {
		id = domain.NewExchangeID()
	}
	if err := s.execute(ctx, exchange.CreateExchange{ExchangeID: id}); err != nil {
		return "", err
	}
	return id, nil
}

// RegisterCurrencyPair validates the currency codes and registers the pair
// under symbol, or under "BASE/COUNTER" when symbol is empty.
func (s *ExchangeService) RegisterCurrencyPair(ctx context.Context, id domain.ExchangeID, symbol, base, counter string) (domain.CurrencyPair, error) {
	b, err := domain.NewCurrency(base)
	if err != nil {
		return domain.CurrencyPair{}, err
	}
	c, err := domain.NewCurrency(counter)
	if err != nil {
		return domain.CurrencyPair{}, err
	}
	if strings.TrimSpace(symbol) == "" {
		symbol = domain.PairSymbol(b, c)
	}
	pair, err := domain.NewCurrencyPairWithSymbol(symbol, b, c)
	if err != nil {
		return domain.CurrencyPair{}, err
	}
	if err := s.RegisterPair(ctx, id, pair); err != nil {
		return domain.CurrencyPair{}, err
	}
	return pair, nil
}

// RegisterPair makes an already-built pair tradeable on the exchange.
func (s *ExchangeService) RegisterPair(ctx context.Context, id domain.ExchangeID, pair domain.CurrencyPair) error {
	return s.execute(ctx, exchange.RegisterCurrencyPair{
		ExchangeID:      id,
		Symbol:          pair.Symbol,
		BaseCurrency:    pair.Base,
		CounterCurrency: pair.Counter,
	})
}

// RemoveTicker takes symbol off the exchange. Orders already resting in
// its book stay there.
func (s *ExchangeService) RemoveTicker(ctx context.Context, id domain.ExchangeID, symbol string) error {
	return s.execute(ctx, exchange.RemoveTicker{ExchangeID: id, Symbol: symbol})
}

// execute runs cmd against the stored history of its exchange, appends the
// resulting events and publishes them. Loading, appending and publishing
// happen on the exchange's worker, so subscribers see each exchange's
// events in version order.
func (s *ExchangeService) execute(ctx context.Context, cmd exchange.Command) error {
	id := cmd.Target()
	err := s.dispatcher.Do(ctx, exchangeKey(id), func() error {
		history, err := s.events.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load exchange %s: %w", id, err)
		}
		ex, err := exchange.Load(id, history)
		if err != nil {
			return err
		}
		events, err := ex.Handle(cmd)
		if err != nil {
			return err
		}
		records, err := s.events.Append(ctx, id, len(history), events)
		if err != nil {
			return err
		}
		s.publish(ctx, records)
		return nil
	})
	metrics.ObserveCommand(cmd.CommandName(), err)
	if err != nil {
		s.logger.Debug("command rejected",
			slog.String("command", cmd.CommandName()),
			slog.String("exchange_id", string(id)),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// publish hands stored records to the publisher. The records are already
// durable, so a failed publication is logged, not returned.
func (s *ExchangeService) publish(ctx context.Context, records []store.Record) {
	if err := s.publisher.Publish(ctx, records); err != nil {
		s.logger.Warn("event publication failed", slog.String("error", err.Error()))
		return
	}
	for _, rec := range records {
		metrics.ObservePublished(rec.Event.EventType())
	}
}

// PlaceOrder validates the request and submits the order to the book of
// its symbol on the given exchange. At most one trade results.
func (s *ExchangeService) PlaceOrder(ctx context.Context, exchangeID domain.ExchangeID, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, exchangeID, req)
	if err != nil {
		metrics.ObserveRejection(err)
		return nil, err
	}
	return result, nil
}

func (s *ExchangeService) placeOrder(ctx context.Context, exchangeID domain.ExchangeID, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if !req.Side.Valid() {
		return nil, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return nil, &domain.ValidationError{Message: "symbol is required"}
	}
	qty, err := domain.NewQuantity(req.Quantity)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("quantity: %v", err)}
	}
	if !qty.IsPositive() {
		return nil, &domain.ValidationError{Message: "quantity must be greater than 0"}
	}

	pair, err := s.requirePair(exchangeID, symbol)
	if err != nil {
		return nil, err
	}

	orderID := domain.OrderID(strings.TrimSpace(req.OrderID))
	if orderID == "" {
		orderID = domain.NewOrderID()
	}
	createdAt := s.now()
	if req.CreatedAt != nil {
		createdAt = *req.CreatedAt
	}
	order := domain.NewMarketOrder(orderID, req.Side, pair, qty, createdAt)

	result := &PlaceOrderResult{}
	err = s.dispatcher.Do(ctx, bookKey(exchangeID, symbol), func() error {
		if err := s.orders.Create(exchangeID, order); err != nil {
			return err
		}
		book := s.books.GetOrCreate(exchangeID, symbol)
		trade, err := book.Submit(order)
		if err != nil {
			s.orders.Delete(exchangeID, order.ID)
			return err
		}
		if trade != nil {
			rec, err := s.recordTrade(exchangeID, symbol, *trade)
			if err != nil {
				return err
			}
			result.Trade = &rec
		}
		result.Order = *order.Clone()
		metrics.SetDepth(exchangeID, symbol, book.BidCount(), book.AskCount())
		return nil
	})

	switch {
	case err != nil:
		metrics.ObserveOrder(exchangeID, symbol, req.Side, metrics.ResultRejected)
		return nil, err
	case result.Trade != nil:
		metrics.ObserveOrder(exchangeID, symbol, req.Side, metrics.ResultMatched)
		metrics.ObserveTrade(exchangeID, symbol, result.Trade.Trade.Quantity)
		s.logger.Debug("trade executed",
			slog.String("exchange_id", string(exchangeID)),
			slog.String("trade", result.Trade.Trade.String()),
		)
	default:
		metrics.ObserveOrder(exchangeID, symbol, req.Side, metrics.ResultRested)
	}
	return result, nil
}

// recordTrade reduces both orders' stored remaining quantity and appends
// the trade. Runs on the book's worker.
func (s *ExchangeService) recordTrade(exchangeID domain.ExchangeID, symbol string, trade domain.Trade) (store.TradeRecord, error) {
	for _, id := range []domain.OrderID{trade.BuyOrderID, trade.SellOrderID} {
		if err := s.orders.Fill(exchangeID, id, trade.Quantity); err != nil {
			return store.TradeRecord{}, fmt.Errorf("fill order %s: %w", id, err)
		}
	}
	rec := store.TradeRecord{
		ID:         domain.NewTradeID(),
		ExchangeID: exchangeID,
		Symbol:     symbol,
		Trade:      trade,
		ExecutedAt: s.now(),
	}
	s.trades.Append(rec)
	return rec, nil
}

func (s *ExchangeService) requirePair(exchangeID domain.ExchangeID, symbol string) (domain.CurrencyPair, error) {
	return lookupPair(s.market, exchangeID, symbol)
}

func lookupPair(market *readmodel.MarketReadModel, exchangeID domain.ExchangeID, symbol string) (domain.CurrencyPair, error) {
	if !market.Exists(exchangeID) {
		return domain.CurrencyPair{}, fmt.Errorf("%w: %s", domain.ErrExchangeNotFound, exchangeID)
	}
	pair, ok := market.Pair(exchangeID, symbol)
	if !ok {
		return domain.CurrencyPair{}, &domain.NoSuchTickerError{Symbol: symbol}
	}
	return pair, nil
}

// Seed creates the exchanges and pairs listed in seed. Exchanges that
// already exist and symbols already registered are left as they are, so
// the same seed can be applied on every start. It returns the ids of the
// seeded exchanges in seed order.
func (s *ExchangeService) Seed(ctx context.Context, seed *config.Seed) ([]domain.ExchangeID, error) {
	ids := make([]domain.ExchangeID, 0, len(seed.Exchanges))
	for _, se := range seed.Exchanges {
		id := domain.ExchangeID(se.ID)
		created, err := s.InitializeExchange(ctx, id)
		switch {
		case err == nil:
			id = created
		case errors.Is(err, domain.ErrInvalidState) && id != "":
		default:
			return ids, fmt.Errorf("seed exchange %q: %w", se.ID, err)
		}

		for _, p := range se.Pairs {
			_, err := s.RegisterCurrencyPair(ctx, id, p.Symbol, p.Base, p.Counter)
			if err != nil && !errors.Is(err, domain.ErrDuplicateCurrencyPairSymbol) {
				return ids, fmt.Errorf("seed pair %s/%s on %s: %w", p.Base, p.Counter, id, err)
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
