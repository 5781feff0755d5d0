package handlers

import (
	"net/http"
	"strconv"

	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/services"
)

type AccountHandler struct {
	accounts services.AccountService
	balances services.BalanceService
	holdings services.HoldingService
}

func NewAccountHandler(accounts services.AccountService, balances services.BalanceService, holdings services.HoldingService) *AccountHandler {
	return &AccountHandler{accounts: accounts, balances: balances, holdings: holdings}
}

// ListAccounts handles GET /api/accounts
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Param include_inactive query bool false "Include deactivated accounts"
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	accounts, err := h.accounts.ListAccounts(r.Context(), includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /api/accounts
// @Summary Create an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body models.Account true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var account models.Account
	if err := decodeJSON(r, &account); err != nil {
		writeError(w, err)
		return
	}
	if err := h.accounts.CreateAccount(r.Context(), &account); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccount handles GET /api/accounts/{id}
// @Summary Get an account
// @Tags accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateAccount handles PUT /api/accounts/{id}
// @Summary Update an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param patch body models.AccountPatch true "Fields to change"
// @Success 200 {object} models.Account
// @Failure 409 {object} ErrorResponse "Category change blocked by existing trades"
// @Router /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var patch models.AccountPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	account, err := h.accounts.UpdateAccount(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/accounts/{id}
// @Summary Deactivate or purge an account
// @Tags accounts
// @Param id path int true "Account ID"
// @Param purge query bool false "Hard-delete with trades and snapshots"
// @Success 204
// @Router /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	if err := h.accounts.DeleteAccount(r.Context(), id, purge); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBalance handles PATCH /api/accounts/{id}/balance
// @Summary Set a manual balance
// @Description Upserts the balance of a non-investment account on one date. Liabilities are positive magnitudes.
// @Tags balances
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param balance body models.BalanceUpdate true "Date and balance"
// @Success 200 {object} models.BalanceSnapshot
// @Failure 409 {object} ErrorResponse "Investment balances are derived"
// @Router /accounts/{id}/balance [patch]
func (h *AccountHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body models.BalanceUpdate
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	date, err := models.ParseDate(body.Date)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	snap, err := h.balances.SetBalance(r.Context(), id, date, body.Balance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteBalance handles DELETE /api/accounts/{id}/balance?date=
// @Summary Delete a manual balance
// @Tags balances
// @Param id path int true "Account ID"
// @Param date query string true "Snapshot date"
// @Success 204
// @Router /accounts/{id}/balance [delete]
func (h *AccountHandler) DeleteBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	date, err := models.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.balances.DeleteBalance(r.Context(), id, date); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBalances handles GET /api/accounts/{id}/balances
// @Summary List an account's snapshots
// @Tags balances
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {array} models.BalanceSnapshot
// @Router /accounts/{id}/balances [get]
func (h *AccountHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	snaps, err := h.balances.ListBalances(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// ListHoldings handles GET /api/accounts/{id}/holdings
// @Summary Active holdings of one account
// @Tags investments
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {array} models.Holding
// @Router /accounts/{id}/holdings [get]
func (h *AccountHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	holdings, err := h.holdings.ListHoldings(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}
