package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.openly.dev/pointy"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/guards"
)

const (
	defaultMaxAllocations  = 10
	maxIdempotencyKeyBytes = 128
)

var defaultMinInvestment = decimal.NewFromInt(1000)

// SubmitRequest is one client submission: a batch of allocations that succeed or fail together.
type SubmitRequest struct {
	Allocations    []entities.Allocation
	IdempotencyKey string
}

// SubmitResult lists what the submission created, or what an earlier identical one created.
type SubmitResult struct {
	InvestmentIDs []int64     `json:"investment_ids"`
	SnapshotIDs   []uuid.UUID `json:"snapshot_ids"`
	Replayed      bool        `json:"-"`

	investedAt []time.Time
}

// GuardStep binds a guard to the pipeline stage it represents.
type GuardStep struct {
	Guard guards.Guard
	Stage Stage
}

// InvestmentService is the submission orchestrator. A submission runs in a single
// transaction holding the wallet row lock; any failure rolls back everything.
type InvestmentService struct {
	logger      *slog.Logger
	transactor  Transactor
	wallets     WalletsRepository
	investments InvestmentsRepository
	ledger      *WalletLedger
	snapshots   *SnapshotService
	acks        *AcknowledgementRecorder
	settings    *SettingsProvider
	events      EventPublisher
	steps       []GuardStep
	currency    string
	now         func() time.Time
}

func NewInvestmentService(
	logger *slog.Logger,
	transactor Transactor,
	wallets WalletsRepository,
	investments InvestmentsRepository,
	ledger *WalletLedger,
	snapshots *SnapshotService,
	acks *AcknowledgementRecorder,
	settings *SettingsProvider,
	events EventPublisher,
	currency string,
	steps ...GuardStep,
) *InvestmentService {
	return &InvestmentService{
		logger:      logger,
		transactor:  transactor,
		wallets:     wallets,
		investments: investments,
		ledger:      ledger,
		snapshots:   snapshots,
		acks:        acks,
		settings:    settings,
		events:      events,
		steps:       steps,
		currency:    currency,
		now:         time.Now,
	}
}

// Submit validates and executes a submission. Failures are always *SubmissionError.
func (s *InvestmentService) Submit(ctx context.Context, userID int64, req SubmitRequest, client entities.ClientContext) (*SubmitResult, error) {
	settings, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, s.fail(ctx, userID, 0, newSubmissionError(entities.CodeInternalError, StageReceived,
			"Could not load platform settings", nil, err))
	}

	if subErr := validateSubmission(req, settings); subErr != nil {
		return nil, s.fail(ctx, userID, subErr.companyID(), subErr)
	}

	var result *SubmitResult
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.submitLocked(ctx, userID, req, client)
		return err
	})
	if err != nil {
		var subErr *SubmissionError
		if !errors.As(err, &subErr) {
			subErr = newSubmissionError(entities.CodeInternalError, StageCommitted,
				"The submission could not be committed", nil, err)
		}
		return nil, s.fail(ctx, userID, subErr.companyID(), subErr)
	}

	if result.Replayed {
		s.logger.InfoContext(ctx, "Idempotent submission replayed",
			"user_id", userID,
			"idempotency_key", req.IdempotencyKey,
			"investment_ids", result.InvestmentIDs)
		return result, nil
	}

	s.publishCreated(ctx, userID, req, result)
	return result, nil
}

func (s *InvestmentService) submitLocked(ctx context.Context, userID int64, req SubmitRequest, client entities.ClientContext) (*SubmitResult, error) {
	wallet, err := s.wallets.LockForUpdate(ctx, userID, s.currency)
	if err != nil {
		return nil, newSubmissionError(entities.CodeInternalError, StageReceived,
			"Could not lock wallet", nil, err)
	}

	// Checked under the wallet lock so concurrent retries cannot both pass.
	if req.IdempotencyKey != "" {
		prior, err := s.investments.FindByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err != nil {
			return nil, newSubmissionError(entities.CodeInternalError, StageIdempotencyChecked,
				"Could not check idempotency key", nil, err)
		}
		if len(prior) > 0 {
			return replayResult(prior), nil
		}
	}

	total := decimal.Zero
	for _, a := range req.Allocations {
		total = total.Add(a.Amount)
	}
	if total.GreaterThan(wallet.AvailableBalance) {
		return nil, newSubmissionError(entities.CodeInsufficientBalance, StageBalanceChecked,
			"Wallet balance is lower than the total requested amount",
			balanceContext(req.Allocations, total, wallet.AvailableBalance), nil)
	}

	result := &SubmitResult{
		InvestmentIDs: make([]int64, 0, len(req.Allocations)),
		SnapshotIDs:   make([]uuid.UUID, 0, len(req.Allocations)),
		investedAt:    make([]time.Time, 0, len(req.Allocations)),
	}
	for _, allocation := range req.Allocations {
		investment, err := s.processAllocation(ctx, userID, allocation, req.IdempotencyKey, client)
		if err != nil {
			return nil, err
		}
		result.InvestmentIDs = append(result.InvestmentIDs, investment.ID)
		result.SnapshotIDs = append(result.SnapshotIDs, investment.DisclosureSnapshotID)
		result.investedAt = append(result.investedAt, investment.InvestedAt)
	}
	return result, nil
}

func (s *InvestmentService) processAllocation(
	ctx context.Context,
	userID int64,
	allocation entities.Allocation,
	idempotencyKey string,
	client entities.ClientContext,
) (*entities.CompanyInvestment, error) {
	companyID := allocation.CompanyID
	companyCtx := func(extra map[string]any) map[string]any {
		out := map[string]any{"company_id": companyID}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	in := guards.Input{CompanyID: companyID, UserID: userID, Action: entities.ActionInvest}
	for _, step := range s.steps {
		verdict, err := step.Guard.Evaluate(ctx, in)
		if err != nil {
			return nil, newSubmissionError(entities.CodeInternalError, step.Stage,
				"Could not evaluate "+step.Guard.Name(), companyCtx(nil), err)
		}
		if !verdict.Allowed {
			if verdict.HasCritical(entities.BlockingCompanyNotFound) {
				return nil, newSubmissionError(entities.CodeNotFound, step.Stage,
					"Company not found", companyCtx(nil), nil)
			}
			return nil, newSubmissionError(step.Guard.RejectionCode(), step.Stage,
				rejectionMessage(verdict), companyCtx(map[string]any{
					"guard":    step.Guard.Name(),
					"blockers": verdict.Blockers,
				}), nil)
		}
	}

	if missing := s.acks.ValidateComplete(allocation.AcknowledgedRisks, entities.RequiredRiskTypes()); len(missing) > 0 {
		return nil, newSubmissionError(entities.CodeAcknowledgementMissing, StageRisksValidated,
			"All risk disclosures must be acknowledged", companyCtx(map[string]any{
				"missing_risks": missing,
			}), nil)
	}

	capture, err := s.snapshots.CaptureAtPurchase(ctx, companyID, userID)
	if err != nil || !capture.Success {
		return nil, newSubmissionError(entities.CodeSnapshotFailed, StageSnapshotCaptured,
			"Could not capture the disclosure snapshot", companyCtx(nil), err)
	}

	if err = s.acks.Record(ctx, userID, companyID, capture.SnapshotID, allocation.AcknowledgedRisks, client); err != nil {
		return nil, newSubmissionError(entities.CodeInternalError, StageRisksRecorded,
			"Could not record risk acknowledgements", companyCtx(nil), err)
	}

	ref := entities.LedgerReference{Type: entities.ReferenceInvestment, ID: capture.SnapshotID.String()}
	reason := fmt.Sprintf("Investment in company %d", companyID)
	if _, err = s.ledger.Debit(ctx, userID, allocation.Amount, reason, ref); err != nil {
		switch {
		case errors.Is(err, ErrInsufficientFunds):
			return nil, newSubmissionError(entities.CodeAmountExceedsBalance, StageWalletDebited,
				"Allocation exceeds the remaining wallet balance", companyCtx(map[string]any{
					"amount": allocation.Amount.String(),
				}), err)
		case errors.Is(err, ErrInvalidAmount):
			return nil, newSubmissionError(entities.CodeInvalidAmount, StageWalletDebited,
				"Allocation amount must be a positive whole-cent value", companyCtx(nil), err)
		default:
			return nil, newSubmissionError(entities.CodeWalletDebitFailed, StageWalletDebited,
				"Could not debit the wallet", companyCtx(nil), err)
		}
	}

	investment := &entities.CompanyInvestment{
		UserID:               userID,
		CompanyID:            companyID,
		Amount:               allocation.Amount,
		Status:               entities.InvestmentStatusActive,
		DisclosureSnapshotID: capture.SnapshotID,
		InvestedAt:           s.now().UTC(),
	}
	if idempotencyKey != "" {
		investment.IdempotencyKey = pointy.String(idempotencyKey)
	}
	if err = s.investments.Insert(ctx, investment); err != nil {
		return nil, newSubmissionError(entities.CodeInternalError, StageInvestmentRecorded,
			"Could not record the investment", companyCtx(nil), err)
	}

	return investment, nil
}

// CheckEligibility runs every guard without stopping at the first denial, for display
// before the user submits. Warnings are included.
func (s *InvestmentService) CheckEligibility(ctx context.Context, companyID, userID int64) (entities.EligibilityReport, error) {
	chain := make(guards.Chain, 0, len(s.steps))
	for _, step := range s.steps {
		chain = append(chain, step.Guard)
	}
	return chain.Report(ctx, guards.Input{CompanyID: companyID, UserID: userID, Action: entities.ActionInvest})
}

func (s *InvestmentService) GetInvestment(ctx context.Context, userID, investmentID int64) (*entities.CompanyInvestment, error) {
	investment, err := s.investments.FindByIDForUser(ctx, investmentID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investment %d: %w", investmentID, err)
	}
	if investment == nil {
		return nil, ErrInvestmentNotFound
	}
	return investment, nil
}

func (s *InvestmentService) ListInvestments(ctx context.Context, userID int64, filter entities.InvestmentFilter) ([]entities.CompanyInvestment, error) {
	return s.investments.List(ctx, userID, filter)
}

func (s *InvestmentService) publishCreated(ctx context.Context, userID int64, req SubmitRequest, result *SubmitResult) {
	events := make([]entities.InvestmentCreatedEvent, 0, len(result.InvestmentIDs))
	for i, id := range result.InvestmentIDs {
		allocation := req.Allocations[i]
		s.logger.InfoContext(ctx, "Investment created",
			"user_id", userID,
			"company_id", allocation.CompanyID,
			"investment_id", id,
			"snapshot_id", result.SnapshotIDs[i].String(),
			"amount", allocation.Amount.String())
		events = append(events, entities.InvestmentCreatedEvent{
			InvestmentID: id,
			UserID:       userID,
			CompanyID:    allocation.CompanyID,
			Amount:       allocation.Amount,
			SnapshotID:   result.SnapshotIDs[i],
			InvestedAt:   result.investedAt[i],
		})
	}

	if s.events == nil {
		return
	}
	if err := s.events.PublishInvestmentCreated(ctx, events); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish investment events",
			"user_id", userID,
			"investment_ids", result.InvestmentIDs,
			"error", err)
	}
}

// fail logs a failed submission with enough context to reconstruct it later.
func (s *InvestmentService) fail(ctx context.Context, userID, companyID int64, err *SubmissionError) *SubmissionError {
	attrs := []any{
		"user_id", userID,
		"company_id", companyID,
		"stage", err.Stage,
		"error_code", err.Code,
	}
	if err.Err != nil {
		attrs = append(attrs, "error", err.Err)
	}

	if err.IsResourceFailure() {
		s.logger.ErrorContext(ctx, "Investment submission failed", attrs...)
	} else {
		s.logger.WarnContext(ctx, "Investment submission rejected", attrs...)
	}
	return err
}

func (e *SubmissionError) companyID() int64 {
	if id, ok := e.Context["company_id"].(int64); ok {
		return id
	}
	return 0
}

func replayResult(prior []entities.CompanyInvestment) *SubmitResult {
	result := &SubmitResult{
		InvestmentIDs: make([]int64, 0, len(prior)),
		SnapshotIDs:   make([]uuid.UUID, 0, len(prior)),
		Replayed:      true,
	}
	for _, inv := range prior {
		result.InvestmentIDs = append(result.InvestmentIDs, inv.ID)
		result.SnapshotIDs = append(result.SnapshotIDs, inv.DisclosureSnapshotID)
		result.investedAt = append(result.investedAt, inv.InvestedAt)
	}
	return result
}

func balanceContext(allocations []entities.Allocation, requested, available decimal.Decimal) map[string]any {
	out := map[string]any{
		"requested": requested.String(),
		"available": available.String(),
	}
	if len(allocations) == 1 {
		out["company_id"] = allocations[0].CompanyID
		return out
	}
	ids := make([]int64, 0, len(allocations))
	for _, a := range allocations {
		ids = append(ids, a.CompanyID)
	}
	out["company_ids"] = ids
	return out
}

func rejectionMessage(v entities.Verdict) string {
	if critical := v.Critical(); len(critical) > 0 {
		return critical[0].Message
	}
	return "Investment is not allowed"
}

// validateSubmission rejects malformed input before any side effect.
func validateSubmission(req SubmitRequest, settings Settings) *SubmissionError {
	if len(req.Allocations) == 0 {
		return newSubmissionError(entities.CodeValidationFailed, StageReceived,
			"At least one allocation is required", map[string]any{"field": "allocations"}, nil)
	}
	if limit := settings.Int(SettingMaxAllocationsPerSubmission, defaultMaxAllocations); len(req.Allocations) > limit {
		return newSubmissionError(entities.CodeValidationFailed, StageReceived,
			fmt.Sprintf("At most %d allocations are allowed per submission", limit),
			map[string]any{"field": "allocations", "limit": limit}, nil)
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyBytes {
		return newSubmissionError(entities.CodeValidationFailed, StageReceived,
			"Idempotency key is too long", map[string]any{"field": "idempotency_key"}, nil)
	}

	minAmount := settings.Decimal(SettingMinInvestmentAmount, defaultMinInvestment)
	maxAmount := settings.Decimal(SettingMaxInvestmentAmount, decimal.Zero)

	seen := make(map[int64]struct{}, len(req.Allocations))
	for i, a := range req.Allocations {
		field := fmt.Sprintf("allocations[%d]", i)
		if a.CompanyID <= 0 {
			return newSubmissionError(entities.CodeValidationFailed, StageReceived,
				"Company is required", map[string]any{"field": field + ".company_id"}, nil)
		}
		if _, dup := seen[a.CompanyID]; dup {
			return newSubmissionError(entities.CodeValidationFailed, StageReceived,
				"Each company may appear only once per submission",
				map[string]any{"field": field + ".company_id", "company_id": a.CompanyID}, nil)
		}
		seen[a.CompanyID] = struct{}{}

		if !a.Amount.IsPositive() {
			return newSubmissionError(entities.CodeInvalidAmount, StageReceived,
				"Amount must be greater than zero",
				map[string]any{"field": field + ".amount", "company_id": a.CompanyID}, nil)
		}
		if a.Amount.LessThan(minAmount) {
			return newSubmissionError(entities.CodeInvalidAmount, StageReceived,
				fmt.Sprintf("Minimum investment is %s", minAmount.String()),
				map[string]any{"field": field + ".amount", "company_id": a.CompanyID, "minimum": minAmount.String()}, nil)
		}
		if maxAmount.IsPositive() && a.Amount.GreaterThan(maxAmount) {
			return newSubmissionError(entities.CodeInvalidAmount, StageReceived,
				fmt.Sprintf("Maximum investment is %s", maxAmount.String()),
				map[string]any{"field": field + ".amount", "company_id": a.CompanyID, "maximum": maxAmount.String()}, nil)
		}
		if a.Amount.Exponent() < -2 && !a.Amount.Equal(a.Amount.Round(2)) {
			return newSubmissionError(entities.CodeInvalidAmount, StageReceived,
				"Amount may have at most two decimal places",
				map[string]any{"field": field + ".amount", "company_id": a.CompanyID}, nil)
		}
		for _, risk := range a.AcknowledgedRisks {
			if !risk.IsValid() {
				return newSubmissionError(entities.CodeValidationFailed, StageReceived,
					fmt.Sprintf("Unknown risk type %q", risk),
					map[string]any{"field": field + ".acknowledged_risks", "company_id": a.CompanyID}, nil)
			}
		}
	}
	return nil
}
