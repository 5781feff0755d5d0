package handlers

import (
	"net/http"

	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/services"
)

// RefreshPricesRequest optionally names the tickers to refresh; empty means
// every ticker currently held.
type RefreshPricesRequest struct {
	Tickers []string `json:"tickers"`
}

type InvestmentHandler struct {
	holdings services.HoldingService
	prices   services.PriceService
	history  services.HistoryService
}

func NewInvestmentHandler(holdings services.HoldingService, prices services.PriceService, history services.HistoryService) *InvestmentHandler {
	return &InvestmentHandler{holdings: holdings, prices: prices, history: history}
}

// HandleHoldings handles GET /api/investments/holdings
// @Summary Active holdings across all investment accounts
// @Tags investments
// @Produce json
// @Success 200 {array} models.Holding
// @Router /investments/holdings [get]
func (h *InvestmentHandler) HandleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdings.AllHoldings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

// HandlePortfolio handles GET /api/investments/portfolio
// @Summary Portfolio summary
// @Tags investments
// @Produce json
// @Success 200 {object} models.PortfolioSummary
// @Router /investments/portfolio [get]
func (h *InvestmentHandler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := h.history.Portfolio(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleAllocation handles GET /api/investments/allocation
// @Summary Holdings value by ticker, account and currency
// @Tags investments
// @Produce json
// @Success 200 {object} models.Allocation
// @Router /investments/allocation [get]
func (h *InvestmentHandler) HandleAllocation(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.history.Allocation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

// HandleHistory handles GET /api/investments/history
// @Summary Total holdings value over time
// @Tags investments
// @Produce json
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Success 200 {array} models.InvestmentHistoryPoint
// @Router /investments/history [get]
func (h *InvestmentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	points, err := h.history.InvestmentHistory(r.Context(), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// HandleRefreshPrices handles POST /api/holdings/refresh-prices
// @Summary Refresh market prices
// @Description Looks up each ticker at the price feed. Failed lookups keep the cached price and are reported as warnings.
// @Tags investments
// @Accept json
// @Produce json
// @Param request body RefreshPricesRequest false "Tickers"
// @Success 200 {object} models.RefreshReport
// @Router /holdings/refresh-prices [post]
func (h *InvestmentHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	var req RefreshPricesRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var (
		report *models.RefreshReport
		err    error
	)
	if len(req.Tickers) == 0 {
		report, err = h.prices.RefreshHeld(r.Context())
	} else {
		report, err = h.prices.RefreshPrices(r.Context(), req.Tickers)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
