package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/shared"
	"github.com/sand/preipo-invest/backend/internal/usecases"
)

// HeaderIdempotencyKey may carry the key instead of the request body.
const HeaderIdempotencyKey = "Idempotency-Key"

type submitInvestmentRequest struct {
	Allocations    []entities.Allocation `json:"allocations"`
	IdempotencyKey string                `json:"idempotency_key"`
}

// SubmitInvestment answers 201 for a new submission and 200 for a replay.
func (h *HTTPHandler) SubmitInvestment(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	var body submitInvestmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		h.logger.Info("[Submit Investment] Malformed request body", "user_id", userID, "error", err)
		writeError(w, h.logger, entities.CodeValidationFailed, "Malformed request body", nil)
		return
	}

	key := strings.TrimSpace(body.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	}

	result, err := h.investments.Submit(r.Context(), userID, usecases.SubmitRequest{
		Allocations:    body.Allocations,
		IdempotencyKey: key,
	}, shared.Client(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, h.logger, status, result)
}

func (h *HTTPHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())

	var filter entities.InvestmentFilter
	if raw := r.URL.Query().Get("company_id"); raw != "" {
		companyID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || companyID <= 0 {
			writeError(w, h.logger, entities.CodeValidationFailed, "Invalid company_id", map[string]any{"field": "company_id"})
			return
		}
		filter.CompanyID = companyID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = entities.InvestmentStatus(status)
	}
	limit, err := queryUint(r, "limit", 0)
	if err != nil {
		writeError(w, h.logger, entities.CodeValidationFailed, "Invalid limit", map[string]any{"field": "limit"})
		return
	}
	filter.Limit = limit

	investments, err := h.investments.ListInvestments(r.Context(), userID, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if investments == nil {
		investments = []entities.CompanyInvestment{}
	}
	writeJSON(w, h.logger, http.StatusOK, investments)
}

func (h *HTTPHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	investment, ok := h.ownedInvestment(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, investment)
}

// CompareInvestment returns the then/now disclosure diff for one of the user's investments.
func (h *HTTPHandler) CompareInvestment(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())
	investmentID, ok := pathID(r)
	if !ok {
		writeError(w, h.logger, entities.CodeValidationFailed, "Invalid investment id", nil)
		return
	}

	comparison, err := h.comparisons.Compare(r.Context(), investmentID, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, comparison)
}

func (h *HTTPHandler) GetInvestorView(w http.ResponseWriter, r *http.Request) {
	investment, ok := h.ownedInvestment(w, r)
	if !ok {
		return
	}

	view, err := h.disclosures.GetCompleteInvestorView(r.Context(), investment.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *HTTPHandler) GetAcknowledgements(w http.ResponseWriter, r *http.Request) {
	investment, ok := h.ownedInvestment(w, r)
	if !ok {
		return
	}

	acks, err := h.acks.Trail(r.Context(), investment.DisclosureSnapshotID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if acks == nil {
		acks = []entities.RiskAcknowledgement{}
	}
	writeJSON(w, h.logger, http.StatusOK, acks)
}

// CheckEligibility lists every blocker, warnings included, before the user submits.
func (h *HTTPHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserID(r.Context())
	companyID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || companyID <= 0 {
		writeError(w, h.logger, entities.CodeValidationFailed, "Invalid company id", nil)
		return
	}

	report, err := h.investments.CheckEligibility(r.Context(), companyID, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, report)
}

func (h *HTTPHandler) ownedInvestment(w http.ResponseWriter, r *http.Request) (*entities.CompanyInvestment, bool) {
	userID, _ := shared.UserID(r.Context())
	investmentID, ok := pathID(r)
	if !ok {
		writeError(w, h.logger, entities.CodeValidationFailed, "Invalid investment id", nil)
		return nil, false
	}

	investment, err := h.investments.GetInvestment(r.Context(), userID, investmentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return investment, true
}
