package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/shared"
)

func (h *HTTPHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	wallet, err := h.wallets.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, wallet)
}

// GetWalletTransactions returns ledger entries newest first.
func (h *HTTPHandler) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	limit, err := queryUint(r, "limit", defaultHistoryLimit)
	if err != nil {
		writeError(w, h.logger, entities.CodeValidationFailed, "Invalid limit", map[string]any{"field": "limit"})
		return
	}

	entries, err := h.wallets.History(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []entities.WalletTransaction{}
	}
	writeJSON(w, h.logger, http.StatusOK, entries)
}

type depositRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	PaymentReference string          `json:"payment_reference"`
}

// Deposit credits a payment the payment provider has already confirmed.
func (h *HTTPHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	var body depositRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, entities.CodeValidationFailed, "Malformed request body", nil)
		return
	}

	result, err := h.wallets.Deposit(r.Context(), userID, body.Amount, strings.TrimSpace(body.PaymentReference))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Info("[Deposit] Wallet credited", "user_id", userID, "amount", body.Amount.String())
	writeJSON(w, h.logger, http.StatusCreated, result)
}

func (h *HTTPHandler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	if err := h.wallets.Reconcile(r.Context(), userID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "consistent"})
}

func (h *HTTPHandler) CloseWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	if err := h.wallets.Close(r.Context(), userID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
