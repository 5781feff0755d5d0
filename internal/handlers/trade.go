package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/services"
)

// maxUploadBytes bounds CSV imports.
const maxUploadBytes = 10 << 20

// TradeRequest is the body of POST /accounts/{id}/trades. Dates are calendar
// days in any format ParseDate accepts.
type TradeRequest struct {
	Ticker       string           `json:"ticker"`
	Name         string           `json:"name"`
	TradeType    models.TradeType `json:"trade_type"`
	TradeDate    string           `json:"trade_date"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Price        decimal.Decimal  `json:"price"`
	Fees         decimal.Decimal  `json:"fees"`
	Currency     string           `json:"currency"`
	ExchangeRate decimal.Decimal  `json:"exchange_rate"`
	Notes        *string          `json:"notes"`
}

func (req *TradeRequest) toTrade() (*models.Trade, error) {
	date, err := models.ParseDate(req.TradeDate)
	if err != nil {
		return nil, &apperrors.ErrValidation{Field: "trade_date", Message: err.Error()}
	}
	return &models.Trade{
		Ticker:       req.Ticker,
		Name:         req.Name,
		TradeType:    req.TradeType,
		TradeDate:    date,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Fees:         req.Fees,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
		Notes:        req.Notes,
	}, nil
}

// TradePatchRequest is the body of PUT /trades/{id}; absent fields are unchanged.
type TradePatchRequest struct {
	Ticker       *string           `json:"ticker"`
	Name         *string           `json:"name"`
	TradeType    *models.TradeType `json:"trade_type"`
	TradeDate    *string           `json:"trade_date"`
	Quantity     *decimal.Decimal  `json:"quantity"`
	Price        *decimal.Decimal  `json:"price"`
	Fees         *decimal.Decimal  `json:"fees"`
	Currency     *string           `json:"currency"`
	ExchangeRate *decimal.Decimal  `json:"exchange_rate"`
	Notes        *string           `json:"notes"`
}

func (req *TradePatchRequest) toPatch() (models.TradePatch, error) {
	patch := models.TradePatch{
		Ticker:       req.Ticker,
		Name:         req.Name,
		TradeType:    req.TradeType,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Fees:         req.Fees,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
		Notes:        req.Notes,
	}
	if req.TradeDate != nil {
		date, err := models.ParseDate(*req.TradeDate)
		if err != nil {
			return patch, &apperrors.ErrValidation{Field: "trade_date", Message: err.Error()}
		}
		patch.TradeDate = &date
	}
	return patch, nil
}

type TradeHandler struct {
	trades  services.TradeService
	imports services.ImportService
}

func NewTradeHandler(trades services.TradeService, imports services.ImportService) *TradeHandler {
	return &TradeHandler{trades: trades, imports: imports}
}

// AddTrade handles POST /api/accounts/{id}/trades
// @Summary Add a trade
// @Description Appends a trade to an investment account's ledger. The pair is replayed first; a sell beyond the units held at its date is rejected.
// @Tags trades
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param trade body TradeRequest true "Trade"
// @Success 201 {object} models.Trade
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Account is not an investment account"
// @Failure 422 {object} ErrorResponse "Insufficient holdings"
// @Router /accounts/{id}/trades [post]
func (h *TradeHandler) AddTrade(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req TradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	trade, err := req.toTrade()
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.trades.AddTrade(r.Context(), accountID, trade)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTrade handles PUT /api/trades/{id}
// @Summary Update a trade
// @Tags trades
// @Accept json
// @Produce json
// @Param id path int true "Trade ID"
// @Param patch body TradePatchRequest true "Fields to change"
// @Success 200 {object} models.Trade
// @Failure 422 {object} ErrorResponse "Insufficient holdings"
// @Router /trades/{id} [put]
func (h *TradeHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req TradePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.trades.UpdateTrade(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrade handles DELETE /api/trades/{id}
// @Summary Delete a trade
// @Tags trades
// @Param id path int true "Trade ID"
// @Success 204
// @Failure 422 {object} ErrorResponse "A later sell would be left uncovered"
// @Router /trades/{id} [delete]
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.trades.DeleteTrade(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTrades handles GET /api/accounts/{id}/trades and /api/accounts/{id}/trades/{ticker}
// @Summary List trades in replay order
// @Tags trades
// @Produce json
// @Param id path int true "Account ID"
// @Param ticker path string false "Ticker"
// @Success 200 {array} models.Trade
// @Router /accounts/{id}/trades/{ticker} [get]
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	trades, err := h.trades.ListTrades(r.Context(), accountID, mux.Vars(r)["ticker"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// ImportTrades handles POST /api/accounts/{id}/trades/import
// @Summary Import trades from CSV
// @Description Accepts a raw text/csv body or a multipart form with a "file" part. Rows are applied in date order; failures are reported per row.
// @Tags trades
// @Accept text/csv
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} models.ImportReport
// @Router /accounts/{id}/trades/import [post]
func (h *TradeHandler) ImportTrades(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	body, closeBody, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closeBody()

	report, err := h.imports.ImportTrades(r.Context(), accountID, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// TradeTemplate handles GET /api/trades/template
// @Summary Download the trade import template
// @Tags trades
// @Produce text/csv
// @Success 200 {string} string "CSV"
// @Router /trades/template [get]
func (h *TradeHandler) TradeTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "trades_template.csv"))
	if err := h.imports.WriteTradeTemplate(w); err != nil {
		writeError(w, err)
	}
}
