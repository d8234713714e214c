package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/engine"
	"github.com/efreitasn/exchangecore/internal/service"
)

// MarketHandler handles HTTP requests for book and statistics endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// bookResponse is the JSON response for GET /exchanges/{exchange_id}/book.
type bookResponse struct {
	ExchangeID  string              `json:"exchange_id"`
	Symbol      string              `json:"symbol"`
	Bids        []engine.PriceLevel `json:"bids"`
	Asks        []engine.PriceLevel `json:"asks"`
	RestingBids int                 `json:"resting_bids"`
	RestingAsks int                 `json:"resting_asks"`
	SnapshotAt  string              `json:"snapshot_at"`
}

// statsResponse is the JSON response for GET /exchanges/{exchange_id}/stats.
type statsResponse struct {
	ExchangeID     string          `json:"exchange_id"`
	Symbol         string          `json:"symbol"`
	Window         string          `json:"window"`
	TradesInWindow int             `json:"trades_in_window"`
	VolumeInWindow domain.Quantity `json:"volume_in_window"`
	TotalTrades    int             `json:"total_trades"`
	TotalVolume    domain.Quantity `json:"total_volume"`
	LastTradeAt    *string         `json:"last_trade_at"`
}

// GetBook handles GET /exchanges/{exchange_id}/book?symbol=&depth=.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "symbol is required")
		return
	}

	// Parse depth query param (default 10, max 50).
	depth := 10
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a valid integer")
			return
		}
	}

	book, err := h.marketSvc.GetBook(r.Context(), exchangeID, symbol, depth)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		ExchangeID:  string(book.ExchangeID),
		Symbol:      book.Symbol,
		Bids:        book.Bids,
		Asks:        book.Asks,
		RestingBids: book.RestingBids,
		RestingAsks: book.RestingAsks,
		SnapshotAt:  book.SnapshotAt.UTC().Format(timeFormat),
	})
}

// GetStats handles GET /exchanges/{exchange_id}/stats?symbol=.
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "symbol is required")
		return
	}

	stats, err := h.marketSvc.GetStats(exchangeID, symbol)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := statsResponse{
		ExchangeID:     string(stats.ExchangeID),
		Symbol:         stats.Symbol,
		Window:         stats.Window,
		TradesInWindow: stats.TradesInWindow,
		VolumeInWindow: stats.VolumeInWindow,
		TotalTrades:    stats.TotalTrades,
		TotalVolume:    stats.TotalVolume,
	}
	if stats.LastTradeAt != nil {
		s := stats.LastTradeAt.UTC().Format(timeFormat)
		resp.LastTradeAt = &s
	}
	WriteJSON(w, http.StatusOK, resp)
}
