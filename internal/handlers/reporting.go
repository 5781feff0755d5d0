package handlers

import (
	"net/http"

	"github.com/tropicaldog17/networth/internal/services"
)

// RecalculateRequest optionally scopes a recompute to some accounts.
type RecalculateRequest struct {
	AccountIDs []uint `json:"account_ids"`
}

type ReportingHandler struct {
	history    services.HistoryService
	reconciler services.Reconciler
	imports    services.ImportService
}

func NewReportingHandler(history services.HistoryService, reconciler services.Reconciler, imports services.ImportService) *ReportingHandler {
	return &ReportingHandler{history: history, reconciler: reconciler, imports: imports}
}

// HandleAccountsHistory handles GET /api/accounts-history
// @Summary Monthly balance grid per account
// @Tags net-worth
// @Produce json
// @Success 200 {object} models.AccountsHistory
// @Router /accounts-history [get]
func (h *ReportingHandler) HandleAccountsHistory(w http.ResponseWriter, r *http.Request) {
	grid, err := h.history.AccountsHistory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// HandleNetWorthHistory handles GET /api/net-worth/history
// @Summary Net worth over time
// @Tags net-worth
// @Produce json
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Success 200 {array} models.NetWorthPoint
// @Router /net-worth/history [get]
func (h *ReportingHandler) HandleNetWorthHistory(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	points, err := h.history.NetWorthHistory(r.Context(), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// HandleImportHistory handles POST /api/net-worth/import-history
// @Summary Import balance history from CSV
// @Description Columns: date, account_name, account_type, account_category, balance. Unknown accounts are created.
// @Tags net-worth
// @Accept text/csv
// @Produce json
// @Success 200 {object} models.ImportReport
// @Router /net-worth/import-history [post]
func (h *ReportingHandler) HandleImportHistory(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closeBody()

	report, err := h.imports.ImportHistory(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleRecalculate handles POST /api/recalculate-all
// @Summary Rebuild every derived snapshot
// @Description Recomputes the named accounts, or all of them, then the net-worth series.
// @Tags net-worth
// @Accept json
// @Produce json
// @Param request body RecalculateRequest false "Optional account scope"
// @Param account_id query []int false "Optional account scope" collectionFormat(multi)
// @Success 200 {object} models.RecomputeReport
// @Router /recalculate-all [post]
func (h *ReportingHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	fromQuery, err := uintList(r.URL.Query()["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	ids := append(req.AccountIDs, fromQuery...)

	report, err := h.reconciler.RecomputeAll(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDirtyPairs handles GET /api/ledger/dirty
// @Summary Pairs changed since their last recompute
// @Tags net-worth
// @Produce json
// @Success 200 {array} models.LedgerVersion
// @Router /ledger/dirty [get]
func (h *ReportingHandler) HandleDirtyPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.reconciler.DirtyPairs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}
