// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/efreitasn/exchangecore/internal/domain"
)

// Result label values.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultMatched  = "matched"
	ResultRested   = "rested"
)

// Rejection reason label values.
const (
	ReasonValidation       = "validation"
	ReasonExchangeNotFound = "exchange_not_found"
	ReasonNoSuchTicker     = "no_such_ticker"
	ReasonDuplicateOrder   = "duplicate_order"
	ReasonOther            = "other"
)

var (
	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// OrdersTotal counts order submissions by outcome.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_orders_total",
			Help: "Total number of orders submitted to a book by outcome",
		},
		[]string{"exchange_id", "symbol", "side", "result"},
	)

	// OrderRejectionsTotal counts every rejected order placement,
	// including those refused before reaching a book.
	OrderRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_order_rejections_total",
			Help: "Total number of rejected order placements by reason",
		},
		[]string{"reason"},
	)

	// TradesTotal counts executed trades.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trades_total",
			Help: "Total number of trades by exchange and symbol",
		},
		[]string{"exchange_id", "symbol"},
	)

	// TradedQuantityTotal sums matched quantity.
	TradedQuantityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_traded_quantity_total",
			Help: "Total matched quantity by exchange and symbol",
		},
		[]string{"exchange_id", "symbol"},
	)

	// OrderBookDepth tracks resting orders per side.
	OrderBookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exchange_orderbook_depth",
			Help: "Current number of resting orders",
		},
		[]string{"exchange_id", "symbol", "side"},
	)

	// CommandsTotal counts exchange commands by outcome.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_commands_total",
			Help: "Total number of exchange commands by outcome",
		},
		[]string{"command", "result"},
	)

	// EventsPublishedTotal counts events handed to the event bus.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_events_published_total",
			Help: "Total number of published exchange events by type",
		},
		[]string{"type"},
	)
)

// ObserveOrder records one order submitted to the book of a registered
// symbol.
func ObserveOrder(exchangeID domain.ExchangeID, symbol string, side domain.Side, result string) {
	OrdersTotal.WithLabelValues(string(exchangeID), symbol, string(side), result).Inc()
}

// ObserveRejection records one rejected order placement. Labels are
// derived from err only, so unknown exchanges and symbols cannot grow
// the series count.
func ObserveRejection(err error) {
	OrderRejectionsTotal.WithLabelValues(RejectionReason(err)).Inc()
}

// RejectionReason maps an order placement error to its reason label.
func RejectionReason(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return ReasonValidation
	case errors.Is(err, domain.ErrExchangeNotFound):
		return ReasonExchangeNotFound
	case errors.Is(err, domain.ErrNoSuchTicker):
		return ReasonNoSuchTicker
	case errors.Is(err, domain.ErrDuplicateOrder):
		return ReasonDuplicateOrder
	default:
		return ReasonOther
	}
}

// ObserveTrade records one executed trade.
func ObserveTrade(exchangeID domain.ExchangeID, symbol string, qty domain.Quantity) {
	TradesTotal.WithLabelValues(string(exchangeID), symbol).Inc()
	TradedQuantityTotal.WithLabelValues(string(exchangeID), symbol).Add(qty.Decimal().InexactFloat64())
}

// SetDepth records the resting order count of both sides of one book.
func SetDepth(exchangeID domain.ExchangeID, symbol string, bids, asks int) {
	OrderBookDepth.WithLabelValues(string(exchangeID), symbol, string(domain.SideBuy)).Set(float64(bids))
	OrderBookDepth.WithLabelValues(string(exchangeID), symbol, string(domain.SideSell)).Set(float64(asks))
}

// ObserveCommand records one handled exchange command.
func ObserveCommand(command string, err error) {
	result := ResultAccepted
	if err != nil {
		result = ResultRejected
	}
	CommandsTotal.WithLabelValues(command, result).Inc()
}

// ObservePublished records one published event.
func ObservePublished(eventType string) {
	EventsPublishedTotal.WithLabelValues(eventType).Inc()
}
