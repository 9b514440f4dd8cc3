package usecases

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive with at most two decimal places")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletClosed       = errors.New("wallet is closed")
	ErrWalletNotEmpty     = errors.New("wallet balance is not zero")
	ErrLedgerMismatch     = errors.New("ledger replay does not match wallet balance")
	ErrDuplicateReference = errors.New("ledger reference already recorded")
	ErrMissingReference   = errors.New("payment reference is required")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrInvestmentNotFound = errors.New("investment not found")
	ErrSnapshotNotFound   = errors.New("disclosure snapshot not found")
)

// Stage names one step of the submission pipeline.
type Stage string

const (
	StageReceived           Stage = "received"
	StageIdempotencyChecked Stage = "idempotency_checked"
	StageBalanceChecked     Stage = "balance_checked"
	StagePlatformChecked    Stage = "platform_checked"
	StageEligibilityChecked Stage = "eligibility_checked"
	StageRisksValidated     Stage = "risks_validated"
	StageSnapshotCaptured   Stage = "snapshot_captured"
	StageRisksRecorded      Stage = "risks_recorded"
	StageWalletDebited      Stage = "wallet_debited"
	StageInvestmentRecorded Stage = "investment_recorded"
	StageCommitted          Stage = "committed"
)

// SubmissionError is the single failure type the orchestrator returns.
// Callers branch on Code, never on Message.
type SubmissionError struct {
	Code    entities.ErrorCode
	Stage   Stage
	Message string
	Context map[string]any
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Code, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Stage, e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// HTTPStatus maps the error class to a status code.
func (e *SubmissionError) HTTPStatus() int {
	return StatusForCode(e.Code)
}

// IsResourceFailure reports whether the error came from storage rather than a business rule.
func (e *SubmissionError) IsResourceFailure() bool {
	return e.HTTPStatus() >= http.StatusInternalServerError
}

func StatusForCode(code entities.ErrorCode) int {
	switch code {
	case entities.CodePlatformRestriction, entities.CodeBuyEligibilityFailed:
		return http.StatusForbidden
	case entities.CodeSnapshotFailed, entities.CodeWalletDebitFailed, entities.CodeInternalError:
		return http.StatusInternalServerError
	case entities.CodeNotFound:
		return http.StatusNotFound
	case entities.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func newSubmissionError(code entities.ErrorCode, stage Stage, message string, ctx map[string]any, err error) *SubmissionError {
	if ctx == nil {
		ctx = map[string]any{}
	}
	return &SubmissionError{Code: code, Stage: stage, Message: message, Context: ctx, Err: err}
}
