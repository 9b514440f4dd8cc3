package guards

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

const PlatformSupremacyName = "platform_supremacy"

// PlatformSupremacyGuard vetoes actions on a company for everyone, regardless of
// whether an individual user would otherwise be eligible.
type PlatformSupremacyGuard struct {
	logger    *slog.Logger
	companies CompanyReader
}

func NewPlatformSupremacyGuard(logger *slog.Logger, companies CompanyReader) *PlatformSupremacyGuard {
	return &PlatformSupremacyGuard{logger: logger, companies: companies}
}

func (g *PlatformSupremacyGuard) Name() string { return PlatformSupremacyName }

func (g *PlatformSupremacyGuard) RejectionCode() entities.ErrorCode {
	return entities.CodePlatformRestriction
}

// CanPerformAction reports the highest-priority platform veto for action on company.
// A nil company is treated as not found.
func (g *PlatformSupremacyGuard) CanPerformAction(company *entities.Company, action entities.Action, userID int64) entities.PlatformDecision {
	if company == nil {
		return entities.PlatformDecision{
			Reason:        "Company does not exist",
			BlockingState: entities.BlockingCompanyNotFound,
		}
	}

	// Disclosures stay readable whatever the platform state is.
	if action == entities.ActionView {
		return entities.PlatformDecision{Allowed: true}
	}

	switch {
	case company.IsSuspended:
		return entities.PlatformDecision{
			Reason:        fmt.Sprintf("%s is suspended by the platform", company.Name),
			BlockingState: entities.BlockingSuspended,
		}
	case company.IsFrozen:
		return entities.PlatformDecision{
			Reason:        fmt.Sprintf("%s is frozen by the platform", company.Name),
			BlockingState: entities.BlockingFrozen,
		}
	case company.UnderInvestigation:
		return entities.PlatformDecision{
			Reason:        fmt.Sprintf("%s is under investigation", company.Name),
			BlockingState: entities.BlockingUnderInvestigation,
		}
	case !company.BuyingEnabled:
		reason := company.BuyingPausedReason
		if reason == "" {
			reason = fmt.Sprintf("Buying %s is paused by the platform", company.Name)
		}
		return entities.PlatformDecision{
			Reason:        reason,
			BlockingState: entities.BlockingBuyingPaused,
		}
	}

	return entities.PlatformDecision{Allowed: true}
}

// Evaluate adapts CanPerformAction to the uniform guard result.
func (g *PlatformSupremacyGuard) Evaluate(ctx context.Context, in Input) (entities.Verdict, error) {
	company, err := g.companies.FindByID(ctx, in.CompanyID)
	if err != nil {
		return entities.Verdict{}, fmt.Errorf("failed to load company %d: %w", in.CompanyID, err)
	}

	decision := g.CanPerformAction(company, in.Action, in.UserID)
	if decision.Allowed {
		return entities.NewVerdict(nil), nil
	}

	g.logger.InfoContext(ctx, "Platform veto",
		"company_id", in.CompanyID,
		"user_id", in.UserID,
		"action", in.Action,
		"blocking_state", decision.BlockingState)

	return entities.NewVerdict([]entities.Blocker{{
		Guard:    decision.BlockingState,
		Severity: entities.SeverityCritical,
		Message:  decision.Reason,
	}}), nil
}
