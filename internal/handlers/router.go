package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/tropicaldog17/networth/docs"
	"github.com/tropicaldog17/networth/internal/logger"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Accounts    *AccountHandler
	Trades      *TradeHandler
	Investments *InvestmentHandler
	Reporting   *ReportingHandler
	// Health reports storage liveness; nil means always healthy.
	Health func() error
}

// NewRouter mounts the API under /api, plus /health and /swagger/.
func NewRouter(h Handlers, log *zap.Logger) http.Handler {
	log = logger.OrNop(log)
	r := mux.NewRouter()
	r.Use(requestID, accessLog(log), cors)

	r.HandleFunc("/health", healthHandler(h.Health)).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/accounts", h.Accounts.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", h.Accounts.CreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id:[0-9]+}", h.Accounts.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", h.Accounts.UpdateAccount).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{id:[0-9]+}", h.Accounts.DeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{id:[0-9]+}/balance", h.Accounts.SetBalance).Methods(http.MethodPatch)
	api.HandleFunc("/accounts/{id:[0-9]+}/balance", h.Accounts.DeleteBalance).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{id:[0-9]+}/balances", h.Accounts.ListBalances).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}/holdings", h.Accounts.ListHoldings).Methods(http.MethodGet)

	api.HandleFunc("/accounts/{id:[0-9]+}/trades", h.Trades.AddTrade).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id:[0-9]+}/trades", h.Trades.ListTrades).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}/trades/import", h.Trades.ImportTrades).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id:[0-9]+}/trades/{ticker}", h.Trades.ListTrades).Methods(http.MethodGet)
	api.HandleFunc("/trades/template", h.Trades.TradeTemplate).Methods(http.MethodGet)
	api.HandleFunc("/trades/{id:[0-9]+}", h.Trades.UpdateTrade).Methods(http.MethodPut)
	api.HandleFunc("/trades/{id:[0-9]+}", h.Trades.DeleteTrade).Methods(http.MethodDelete)

	api.HandleFunc("/holdings/refresh-prices", h.Investments.HandleRefreshPrices).Methods(http.MethodPost)
	api.HandleFunc("/investments/holdings", h.Investments.HandleHoldings).Methods(http.MethodGet)
	api.HandleFunc("/investments/portfolio", h.Investments.HandlePortfolio).Methods(http.MethodGet)
	api.HandleFunc("/investments/allocation", h.Investments.HandleAllocation).Methods(http.MethodGet)
	api.HandleFunc("/investments/history", h.Investments.HandleHistory).Methods(http.MethodGet)

	api.HandleFunc("/accounts-history", h.Reporting.HandleAccountsHistory).Methods(http.MethodGet)
	api.HandleFunc("/net-worth/history", h.Reporting.HandleNetWorthHistory).Methods(http.MethodGet)
	api.HandleFunc("/net-worth/import-history", h.Reporting.HandleImportHistory).Methods(http.MethodPost)
	api.HandleFunc("/recalculate-all", h.Reporting.HandleRecalculate).Methods(http.MethodPost)
	api.HandleFunc("/ledger/dirty", h.Reporting.HandleDirtyPairs).Methods(http.MethodGet)

	// preflight requests match no route method; answer them in cors
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	return r
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func healthHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "networth-backend",
		})
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("request_id", w.Header().Get(RequestIDHeader)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			}
			if rec.status >= http.StatusInternalServerError {
				log.Error("request failed", fields...)
				return
			}
			log.Info("request", fields...)
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
