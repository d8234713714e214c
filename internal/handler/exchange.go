package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/service"
)

// ExchangeHandler handles HTTP requests for exchange and ticker endpoints.
type ExchangeHandler struct {
	exchangeSvc *service.ExchangeService
	marketSvc   *service.MarketService
}

// NewExchangeHandler creates a new ExchangeHandler.
func NewExchangeHandler(exchangeSvc *service.ExchangeService, marketSvc *service.MarketService) *ExchangeHandler {
	return &ExchangeHandler{exchangeSvc: exchangeSvc, marketSvc: marketSvc}
}

// createExchangeRequest is the JSON request body for POST /exchanges.
type createExchangeRequest struct {
	ExchangeID string `json:"exchange_id"`
}

// registerPairRequest is the JSON request body for
// POST /exchanges/{exchange_id}/pairs.
type registerPairRequest struct {
	Symbol          string `json:"symbol"`
	BaseCurrency    string `json:"base_currency"`
	CounterCurrency string `json:"counter_currency"`
}

// exchangeResponse is the JSON response for a single exchange.
type exchangeResponse struct {
	ExchangeID string `json:"exchange_id"`
}

// exchangeListResponse is the JSON response for GET /exchanges.
type exchangeListResponse struct {
	Exchanges []string `json:"exchanges"`
}

// tickersResponse is the JSON response for
// GET /exchanges/{exchange_id}/tickers.
type tickersResponse struct {
	ExchangeID string                `json:"exchange_id"`
	Tickers    []domain.CurrencyPair `json:"tickers"`
}

// Create handles POST /exchanges.
func (h *ExchangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExchangeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := h.exchangeSvc.InitializeExchange(r.Context(), domain.ExchangeID(req.ExchangeID))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, exchangeResponse{ExchangeID: string(id)})
}

// List handles GET /exchanges.
func (h *ExchangeHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.marketSvc.Exchanges()
	resp := exchangeListResponse{Exchanges: make([]string, len(ids))}
	for i, id := range ids {
		resp.Exchanges[i] = string(id)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Tickers handles GET /exchanges/{exchange_id}/tickers.
func (h *ExchangeHandler) Tickers(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))

	pairs, err := h.marketSvc.Tickers(exchangeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tickersResponse{ExchangeID: string(exchangeID), Tickers: pairs})
}

// RegisterPair handles POST /exchanges/{exchange_id}/pairs.
func (h *ExchangeHandler) RegisterPair(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))

	var req registerPairRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	pair, err := h.exchangeSvc.RegisterCurrencyPair(r.Context(), exchangeID, req.Symbol, req.BaseCurrency, req.CounterCurrency)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, pair)
}

// RemoveTicker handles DELETE /exchanges/{exchange_id}/tickers?symbol=.
// Symbols contain "/", so the symbol travels in the query string.
func (h *ExchangeHandler) RemoveTicker(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "symbol is required")
		return
	}

	if err := h.exchangeSvc.RemoveTicker(r.Context(), exchangeID, symbol); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
