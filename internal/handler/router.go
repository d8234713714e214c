package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/efreitasn/exchangecore/internal/metrics"
	"github.com/efreitasn/exchangecore/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// metrics, and Content-Type validation middleware.
func NewRouter(
	exchangeSvc *service.ExchangeService,
	marketSvc *service.MarketService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	exchangeH := NewExchangeHandler(exchangeSvc, marketSvc)
	orderH := NewOrderHandler(exchangeSvc, marketSvc)
	marketH := NewMarketHandler(marketSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/exchanges", func(r chi.Router) {
		r.Post("/", exchangeH.Create)
		r.Get("/", exchangeH.List)

		r.Route("/{exchange_id}", func(r chi.Router) {
			// Exchange routes.
			r.Get("/tickers", exchangeH.Tickers)
			r.Delete("/tickers", exchangeH.RemoveTicker)
			r.Post("/pairs", exchangeH.RegisterPair)

			// Order routes.
			r.Post("/orders", orderH.PlaceOrder)
			r.Get("/orders", orderH.ListOrders)
			r.Get("/orders/{order_id}", orderH.GetOrder)

			// Market data routes.
			r.Get("/book", marketH.GetBook)
			r.Get("/stats", marketH.GetStats)
		})
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog, and records the duration under the
// matched route pattern.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, routePattern(r), strconv.Itoa(ww.status)).
				Observe(elapsed.Seconds())
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", elapsed),
			)
		})
	}
}

// routePattern returns the chi route pattern that served r, so metrics are
// labelled by route rather than by raw path.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
