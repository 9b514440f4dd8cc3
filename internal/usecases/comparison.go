package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// ComparisonService explains what changed for a company between purchase and now.
// It only reads.
type ComparisonService struct {
	logger      *slog.Logger
	investments InvestmentsRepository
	companies   CompaniesRepository
	snapshots   *SnapshotService
}

func NewComparisonService(
	logger *slog.Logger,
	investments InvestmentsRepository,
	companies CompaniesRepository,
	snapshots *SnapshotService,
) *ComparisonService {
	return &ComparisonService{
		logger:      logger,
		investments: investments,
		companies:   companies,
		snapshots:   snapshots,
	}
}

// Compare diffs the frozen snapshot of an investment against the live disclosure.
// Investments the user does not own are reported as not found.
func (c *ComparisonService) Compare(ctx context.Context, investmentID, userID int64) (*entities.Comparison, error) {
	investment, err := c.investments.FindByIDForUser(ctx, investmentID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investment %d: %w", investmentID, err)
	}
	if investment == nil {
		return nil, ErrInvestmentNotFound
	}

	frozen, err := c.snapshots.Frozen(ctx, investment.DisclosureSnapshotID)
	if err != nil {
		return nil, err
	}

	company, err := c.companies.FindByID(ctx, investment.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company %d: %w", investment.CompanyID, err)
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}

	live, err := c.snapshots.CurrentDisclosure(ctx, investment.CompanyID)
	if err != nil {
		return nil, err
	}
	flags, err := c.companies.ListActiveRiskFlags(ctx, investment.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk flags for company %d: %w", investment.CompanyID, err)
	}

	then := entities.DisclosureView{
		AsOf:            frozen.SnapshotAt.UTC(),
		LifecycleState:  frozen.State.LifecycleState,
		BuyingEnabled:   frozen.State.BuyingEnabled,
		ComplianceScore: frozen.State.ComplianceScore,
		RiskLevel:       frozen.State.RiskLevel,
		RiskFlags:       sortedFlags(frozen.State.RiskFlags),
	}
	now := entities.DisclosureView{
		AsOf:            live.SourceUpdatedAt.UTC(),
		LifecycleState:  live.State.LifecycleState,
		BuyingEnabled:   live.State.BuyingEnabled,
		ComplianceScore: live.State.ComplianceScore,
		RiskLevel:       live.State.RiskLevel,
		RiskFlags:       entities.SnapshotFlags(flags),
	}

	comparison := &entities.Comparison{
		InvestmentID:   investment.ID,
		InvestmentDate: investment.InvestedAt.UTC(),
		CompanyName:    company.Name,
		Then:           then,
		Now:            now,
		Changes:        DiffDisclosures(then, now),
	}

	c.logger.DebugContext(ctx, "Disclosure comparison built",
		"user_id", userID,
		"investment_id", investmentID,
		"company_id", investment.CompanyID,
		"new_flags", len(comparison.Changes.NewRiskFlags),
		"removed_flags", len(comparison.Changes.RemovedRiskFlags))

	return comparison, nil
}

// DiffDisclosures compares two views. Flags are matched by code.
func DiffDisclosures(then, now entities.DisclosureView) entities.DisclosureChanges {
	thenFlags := flagsByCode(then.RiskFlags)
	nowFlags := flagsByCode(now.RiskFlags)

	added := []entities.SnapshotRiskFlag{}
	for _, code := range sortedCodes(nowFlags) {
		if _, ok := thenFlags[code]; !ok {
			added = append(added, nowFlags[code])
		}
	}
	removed := []entities.SnapshotRiskFlag{}
	for _, code := range sortedCodes(thenFlags) {
		if _, ok := nowFlags[code]; !ok {
			removed = append(removed, thenFlags[code])
		}
	}

	return entities.DisclosureChanges{
		LifecycleStateChanged: then.LifecycleState != now.LifecycleState,
		BuyingStatusChanged:   then.BuyingEnabled != now.BuyingEnabled,
		RiskLevelChanged:      then.RiskLevel != now.RiskLevel,
		ComplianceScoreDelta:  now.ComplianceScore.Sub(then.ComplianceScore),
		NewRiskFlags:          added,
		RemovedRiskFlags:      removed,
	}
}

func flagsByCode(flags []entities.SnapshotRiskFlag) map[string]entities.SnapshotRiskFlag {
	out := make(map[string]entities.SnapshotRiskFlag, len(flags))
	for _, f := range flags {
		out[f.Code] = f
	}
	return out
}

func sortedCodes(flags map[string]entities.SnapshotRiskFlag) []string {
	codes := maps.Keys(flags)
	slices.Sort(codes)
	return codes
}

func sortedFlags(flags []entities.SnapshotRiskFlag) []entities.SnapshotRiskFlag {
	out := make([]entities.SnapshotRiskFlag, len(flags))
	copy(out, flags)
	entities.SortFlags(out)
	return out
}
