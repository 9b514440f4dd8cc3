package guards

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

const BuyEligibilityName = "buy_eligibility"

// Blocker names reported by BuyEligibilityGuard.
const (
	BlockerNoLiveDeal          = "no_live_deal"
	BlockerKYCNotVerified      = "kyc_not_verified"
	BlockerInsufficientBalance = "insufficient_wallet_balance"
	BlockerWalletClosed        = "wallet_closed"
	BlockerHighRiskCompany     = "high_risk_company"
)

// BuyEligibilityGuard answers "can this user invest in this company right now".
// It is stateless and evaluates every check, so callers see all reasons at once.
type BuyEligibilityGuard struct {
	logger    *slog.Logger
	companies CompanyReader
	users     UserReader
	wallets   WalletReader
	now       func() time.Time
}

func NewBuyEligibilityGuard(logger *slog.Logger, companies CompanyReader, users UserReader, wallets WalletReader) *BuyEligibilityGuard {
	return &BuyEligibilityGuard{
		logger:    logger,
		companies: companies,
		users:     users,
		wallets:   wallets,
		now:       time.Now,
	}
}

// WithClock overrides the time source used to decide whether a deal is live.
func (g *BuyEligibilityGuard) WithClock(now func() time.Time) *BuyEligibilityGuard {
	g.now = now
	return g
}

func (g *BuyEligibilityGuard) Name() string { return BuyEligibilityName }

func (g *BuyEligibilityGuard) RejectionCode() entities.ErrorCode {
	return entities.CodeBuyEligibilityFailed
}

func (g *BuyEligibilityGuard) Evaluate(ctx context.Context, in Input) (entities.Verdict, error) {
	return g.CanInvest(ctx, in.CompanyID, in.UserID)
}

// CanInvest runs every eligibility check and aggregates the blockers.
func (g *BuyEligibilityGuard) CanInvest(ctx context.Context, companyID, userID int64) (entities.Verdict, error) {
	var blockers []entities.Blocker

	dealBlockers, err := g.checkLiveDeal(ctx, companyID)
	if err != nil {
		return entities.Verdict{}, err
	}
	blockers = append(blockers, dealBlockers...)

	kycBlockers, err := g.checkKYC(ctx, userID)
	if err != nil {
		return entities.Verdict{}, err
	}
	blockers = append(blockers, kycBlockers...)

	walletBlockers, err := g.checkWallet(ctx, userID)
	if err != nil {
		return entities.Verdict{}, err
	}
	blockers = append(blockers, walletBlockers...)

	riskBlockers, err := g.checkRiskLevel(ctx, companyID)
	if err != nil {
		return entities.Verdict{}, err
	}
	blockers = append(blockers, riskBlockers...)

	verdict := entities.NewVerdict(blockers)
	if !verdict.Allowed {
		g.logger.InfoContext(ctx, "Buy eligibility denied",
			"company_id", companyID,
			"user_id", userID,
			"blockers", len(verdict.Critical()))
	}
	return verdict, nil
}

func (g *BuyEligibilityGuard) checkLiveDeal(ctx context.Context, companyID int64) ([]entities.Blocker, error) {
	deals, err := g.companies.ListDeals(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deals for company %d: %w", companyID, err)
	}
	if entities.CountLiveDeals(deals, g.now()) > 0 {
		return nil, nil
	}
	return []entities.Blocker{{
		Guard:    BlockerNoLiveDeal,
		Severity: entities.SeverityCritical,
		Message:  "This company has no deal open for subscription right now",
	}}, nil
}

func (g *BuyEligibilityGuard) checkKYC(ctx context.Context, userID int64) ([]entities.Blocker, error) {
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user != nil && user.KYCStatus == entities.KYCVerified {
		return nil, nil
	}
	return []entities.Blocker{{
		Guard:    BlockerKYCNotVerified,
		Severity: entities.SeverityCritical,
		Message:  "Complete KYC verification before investing",
	}}, nil
}

func (g *BuyEligibilityGuard) checkWallet(ctx context.Context, userID int64) ([]entities.Blocker, error) {
	wallet, err := g.wallets.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet for user %d: %w", userID, err)
	}
	if wallet != nil && wallet.IsClosed() {
		return []entities.Blocker{{
			Guard:    BlockerWalletClosed,
			Severity: entities.SeverityCritical,
			Message:  "Your wallet is closed",
		}}, nil
	}
	if wallet != nil && wallet.AvailableBalance.IsPositive() {
		return nil, nil
	}
	return []entities.Blocker{{
		Guard:    BlockerInsufficientBalance,
		Severity: entities.SeverityCritical,
		Message:  "Add funds to your wallet before investing",
	}}, nil
}

func (g *BuyEligibilityGuard) checkRiskLevel(ctx context.Context, companyID int64) ([]entities.Blocker, error) {
	company, err := g.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company %d: %w", companyID, err)
	}
	if company == nil || company.RiskLevel != entities.RiskLevelHigh {
		return nil, nil
	}
	return []entities.Blocker{{
		Guard:    BlockerHighRiskCompany,
		Severity: entities.SeverityWarning,
		Message:  "This company is currently assessed as high risk",
	}}, nil
}
