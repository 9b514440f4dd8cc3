package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sand/preipo-invest/backend/internal/core/ports"
	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/usecases"
)

const defaultHistoryLimit = 50

type HTTPHandler struct {
	logger      *slog.Logger
	investments ports.InvestmentService
	comparisons ports.ComparisonService
	disclosures ports.DisclosureService
	acks        ports.AcknowledgementTrail
	wallets     ports.WalletService
	health      ports.HealthChecker
}

func NewHTTPHandler(
	logger *slog.Logger,
	investments ports.InvestmentService,
	comparisons ports.ComparisonService,
	disclosures ports.DisclosureService,
	acks ports.AcknowledgementTrail,
	wallets ports.WalletService,
	health ports.HealthChecker,
) *HTTPHandler {
	return &HTTPHandler{
		logger:      logger,
		investments: investments,
		comparisons: comparisons,
		disclosures: disclosures,
		acks:        acks,
		wallets:     wallets,
		health:      health,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(h.authenticate)

	// Investments
	api.HandleFunc("/investments", h.SubmitInvestment).Methods(http.MethodPost)
	api.HandleFunc("/investments", h.ListInvestments).Methods(http.MethodGet)
	api.HandleFunc("/investments/{id:[0-9]+}", h.GetInvestment).Methods(http.MethodGet)
	api.HandleFunc("/investments/{id:[0-9]+}/comparison", h.CompareInvestment).Methods(http.MethodGet)
	api.HandleFunc("/investments/{id:[0-9]+}/disclosure", h.GetInvestorView).Methods(http.MethodGet)
	api.HandleFunc("/investments/{id:[0-9]+}/acknowledgements", h.GetAcknowledgements).Methods(http.MethodGet)
	api.HandleFunc("/companies/{id:[0-9]+}/eligibility", h.CheckEligibility).Methods(http.MethodGet)

	// Wallet
	api.HandleFunc("/wallet", h.GetWallet).Methods(http.MethodGet)
	api.HandleFunc("/wallet", h.CloseWallet).Methods(http.MethodDelete)
	api.HandleFunc("/wallet/transactions", h.GetWalletTransactions).Methods(http.MethodGet)
	api.HandleFunc("/wallet/deposits", h.Deposit).Methods(http.MethodPost)
	api.HandleFunc("/wallet/reconciliation", h.ReconcileWallet).Methods(http.MethodGet)
}

// Health reports whether the database is reachable.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.health != nil {
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", "error", err)
			writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	ErrorCode entities.ErrorCode `json:"error_code"`
	Message   string             `json:"message"`
	Context   map[string]any     `json:"context"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, code entities.ErrorCode, message string, ctx map[string]any) {
	writeStatusError(w, logger, usecases.StatusForCode(code), code, message, ctx)
}

func writeStatusError(w http.ResponseWriter, logger *slog.Logger, status int, code entities.ErrorCode, message string, ctx map[string]any) {
	if ctx == nil {
		ctx = map[string]any{}
	}
	writeJSON(w, logger, status, errorResponse{ErrorCode: code, Message: message, Context: ctx})
}

// writeServiceError maps usecase errors to responses. Unknown errors become 500 without details.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var subErr *usecases.SubmissionError
	switch {
	case errors.As(err, &subErr):
		writeError(w, h.logger, subErr.Code, subErr.Message, subErr.Context)
	case errors.Is(err, usecases.ErrInvestmentNotFound):
		writeError(w, h.logger, entities.CodeNotFound, "Investment not found", nil)
	case errors.Is(err, usecases.ErrCompanyNotFound):
		writeError(w, h.logger, entities.CodeNotFound, "Company not found", nil)
	case errors.Is(err, usecases.ErrSnapshotNotFound):
		writeError(w, h.logger, entities.CodeNotFound, "Disclosure snapshot not found", nil)
	case errors.Is(err, usecases.ErrInvalidAmount):
		writeError(w, h.logger, entities.CodeInvalidAmount, "Amount must be greater than zero", nil)
	case errors.Is(err, usecases.ErrMissingReference):
		writeError(w, h.logger, entities.CodeValidationFailed, "Payment reference is required",
			map[string]any{"field": "payment_reference"})
	case errors.Is(err, usecases.ErrDuplicateReference):
		writeStatusError(w, h.logger, http.StatusConflict, entities.CodeValidationFailed,
			"Payment reference was already credited", map[string]any{"field": "payment_reference"})
	case errors.Is(err, usecases.ErrWalletClosed):
		writeError(w, h.logger, entities.CodeValidationFailed, "Wallet is closed", nil)
	case errors.Is(err, usecases.ErrWalletNotEmpty):
		writeStatusError(w, h.logger, http.StatusConflict, entities.CodeValidationFailed,
			"Wallet balance must be zero before closing", nil)
	case errors.Is(err, usecases.ErrLedgerMismatch):
		h.logger.ErrorContext(r.Context(), "Ledger mismatch", "path", r.URL.Path, "error", err)
		writeStatusError(w, h.logger, http.StatusConflict, entities.CodeInternalError,
			"Ledger does not match the wallet balance", nil)
	default:
		h.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, h.logger, entities.CodeInternalError, "Internal server error", nil)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func queryUint(r *http.Request, key string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
