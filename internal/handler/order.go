package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/service"
	"github.com/efreitasn/exchangecore/internal/store"
)

// timeFormat keeps sub-second precision; orders placed within the same
// second are still ordered by created_at.
const timeFormat = time.RFC3339Nano

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	exchangeSvc *service.ExchangeService
	marketSvc   *service.MarketService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(exchangeSvc *service.ExchangeService, marketSvc *service.MarketService) *OrderHandler {
	return &OrderHandler{exchangeSvc: exchangeSvc, marketSvc: marketSvc}
}

// placeOrderRequest is the JSON request body for
// POST /exchanges/{exchange_id}/orders. Quantity is a decimal string.
type placeOrderRequest struct {
	OrderID   string  `json:"order_id"`
	Side      string  `json:"side"`
	Symbol    string  `json:"symbol"`
	Quantity  string  `json:"quantity"`
	CreatedAt *string `json:"created_at"`
}

// orderResponse is the JSON representation of an order.
type orderResponse struct {
	OrderID           string          `json:"order_id"`
	ExchangeID        string          `json:"exchange_id"`
	Type              string          `json:"type"`
	Side              string          `json:"side"`
	Symbol            string          `json:"symbol"`
	Quantity          domain.Quantity `json:"quantity"`
	FilledQuantity    domain.Quantity `json:"filled_quantity"`
	RemainingQuantity domain.Quantity `json:"remaining_quantity"`
	CreatedAt         string          `json:"created_at"`
}

// tradeResponse is a single executed trade.
type tradeResponse struct {
	TradeID     string          `json:"trade_id"`
	Symbol      string          `json:"symbol"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Quantity    domain.Quantity `json:"quantity"`
	Price       domain.Price    `json:"price"`
	ExecutedAt  string          `json:"executed_at"`
}

// placeOrderResponse is the JSON response for order placement. Trade is
// null when the order found nothing to match.
type placeOrderResponse struct {
	Order orderResponse  `json:"order"`
	Trade *tradeResponse `json:"trade"`
}

// orderListResponse is the paginated JSON response for order listings.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// PlaceOrder handles POST /exchanges/{exchange_id}/orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))

	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Parse created_at if provided.
	var createdAt *time.Time
	if req.CreatedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.CreatedAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "created_at must be a valid RFC 3339 timestamp")
			return
		}
		createdAt = &t
	}

	result, err := h.exchangeSvc.PlaceOrder(r.Context(), exchangeID, service.PlaceOrderRequest{
		OrderID:   req.OrderID,
		Side:      domain.Side(req.Side),
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		CreatedAt: createdAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := placeOrderResponse{Order: buildOrderResponse(exchangeID, &result.Order)}
	if result.Trade != nil {
		tr := buildTradeResponse(*result.Trade)
		resp.Trade = &tr
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// GetOrder handles GET /exchanges/{exchange_id}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))
	orderID := domain.OrderID(chi.URLParam(r, "order_id"))

	rec, err := h.marketSvc.GetOrder(exchangeID, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(rec.ExchangeID, &rec.Order))
}

// ListOrders handles GET /exchanges/{exchange_id}/orders?symbol=&side=&page=&limit=.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	exchangeID := domain.ExchangeID(chi.URLParam(r, "exchange_id"))
	q := r.URL.Query()

	// Parse query params.
	var sideFilter *domain.Side
	if s := q.Get("side"); s != "" {
		side := domain.Side(s)
		sideFilter = &side
	}

	page := 1
	if p := q.Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
			return
		}
	}

	limit := 20
	if l := q.Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
	}

	list, err := h.marketSvc.ListOrders(exchangeID, q.Get("symbol"), sideFilter, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	orders := make([]orderResponse, len(list.Orders))
	for i := range list.Orders {
		orders[i] = buildOrderResponse(list.Orders[i].ExchangeID, &list.Orders[i].Order)
	}

	WriteJSON(w, http.StatusOK, orderListResponse{
		Orders: orders,
		Total:  list.Total,
		Page:   list.Page,
		Limit:  list.Limit,
	})
}

func buildOrderResponse(exchangeID domain.ExchangeID, o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:           string(o.ID),
		ExchangeID:        string(exchangeID),
		Type:              string(o.Type),
		Side:              string(o.Side),
		Symbol:            o.Symbol,
		Quantity:          o.Quantity,
		FilledQuantity:    o.Filled(),
		RemainingQuantity: o.Remaining,
		CreatedAt:         o.CreatedAt.UTC().Format(timeFormat),
	}
}

func buildTradeResponse(rec store.TradeRecord) tradeResponse {
	return tradeResponse{
		TradeID:     string(rec.ID),
		Symbol:      rec.Symbol,
		BuyOrderID:  string(rec.Trade.BuyOrderID),
		SellOrderID: string(rec.Trade.SellOrderID),
		Quantity:    rec.Trade.Quantity,
		Price:       rec.Trade.Price,
		ExecutedAt:  rec.ExecutedAt.UTC().Format(timeFormat),
	}
}
