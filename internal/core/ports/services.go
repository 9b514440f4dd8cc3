package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/usecases"
)

// InvestmentService submits and reads investments.
type InvestmentService interface {
	Submit(ctx context.Context, userID int64, req usecases.SubmitRequest, client entities.ClientContext) (*usecases.SubmitResult, error)
	CheckEligibility(ctx context.Context, companyID, userID int64) (entities.EligibilityReport, error)
	GetInvestment(ctx context.Context, userID, investmentID int64) (*entities.CompanyInvestment, error)
	ListInvestments(ctx context.Context, userID int64, filter entities.InvestmentFilter) ([]entities.CompanyInvestment, error)
}

type ComparisonService interface {
	Compare(ctx context.Context, investmentID, userID int64) (*entities.Comparison, error)
}

// DisclosureService exposes what was frozen for an investment.
type DisclosureService interface {
	GetCompleteInvestorView(ctx context.Context, investmentID int64) (*entities.InvestorView, error)
}

type WalletService interface {
	GetBalance(ctx context.Context, userID int64) (*entities.Wallet, error)
	History(ctx context.Context, userID int64, limit uint64) ([]entities.WalletTransaction, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal, paymentRef string) (*usecases.DepositResult, error)
	Reconcile(ctx context.Context, userID int64) error
	Close(ctx context.Context, userID int64) error
}

// AcknowledgementTrail lists the risk acknowledgements stored with a snapshot.
type AcknowledgementTrail interface {
	Trail(ctx context.Context, snapshotID uuid.UUID) ([]entities.RiskAcknowledgement, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

var (
	_ InvestmentService    = (*usecases.InvestmentService)(nil)
	_ ComparisonService    = (*usecases.ComparisonService)(nil)
	_ DisclosureService    = (*usecases.SnapshotService)(nil)
	_ WalletService        = (*usecases.WalletLedger)(nil)
	_ AcknowledgementTrail = (*usecases.AcknowledgementRecorder)(nil)
)
