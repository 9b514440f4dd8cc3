package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// CaptureResult is the outcome of freezing a disclosure at purchase time.
type CaptureResult struct {
	Success    bool
	SnapshotID uuid.UUID
}

// SnapshotService freezes disclosures at purchase time and maintains the live copy.
type SnapshotService struct {
	logger      *slog.Logger
	companies   CompaniesRepository
	snapshots   SnapshotsRepository
	investments InvestmentsRepository
	now         func() time.Time
	newID       func() uuid.UUID
}

func NewSnapshotService(
	logger *slog.Logger,
	companies CompaniesRepository,
	snapshots SnapshotsRepository,
	investments InvestmentsRepository,
) *SnapshotService {
	return &SnapshotService{
		logger:      logger,
		companies:   companies,
		snapshots:   snapshots,
		investments: investments,
		now:         time.Now,
		newID:       uuid.New,
	}
}

// CaptureAtPurchase copies the company's current live state into a new immutable
// snapshot row. The row is written by a single insert of the fully-assembled value.
func (s *SnapshotService) CaptureAtPurchase(ctx context.Context, companyID, userID int64) (CaptureResult, error) {
	company, flags, deals, err := s.loadLiveState(ctx, companyID)
	if err != nil {
		return CaptureResult{}, err
	}

	frozen := entities.FreezeDisclosure(s.newID(), userID, *company, flags, deals, s.now().UTC())
	if err = s.snapshots.Insert(ctx, frozen); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist disclosure snapshot",
			"company_id", companyID,
			"user_id", userID,
			"snapshot_id", frozen.SnapshotID.String(),
			"error", err)
		return CaptureResult{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "Disclosure snapshot captured",
		"company_id", companyID,
		"user_id", userID,
		"snapshot_id", frozen.SnapshotID.String(),
		"risk_flags", len(frozen.State.RiskFlags))

	return CaptureResult{Success: true, SnapshotID: frozen.SnapshotID}, nil
}

// GetCompleteInvestorView returns what was frozen for an investment. It never reads live state.
func (s *SnapshotService) GetCompleteInvestorView(ctx context.Context, investmentID int64) (*entities.InvestorView, error) {
	investment, err := s.investments.FindByID(ctx, investmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investment %d: %w", investmentID, err)
	}
	if investment == nil {
		return nil, ErrInvestmentNotFound
	}

	frozen, err := s.Frozen(ctx, investment.DisclosureSnapshotID)
	if err != nil {
		return nil, err
	}

	return &entities.InvestorView{
		InvestmentID: investment.ID,
		SnapshotID:   frozen.SnapshotID,
		SnapshotAt:   frozen.SnapshotAt,
		Platform:     frozen.Platform,
		Disclosure:   frozen.State,
	}, nil
}

// Frozen loads one frozen snapshot by id.
func (s *SnapshotService) Frozen(ctx context.Context, id uuid.UUID) (*entities.FrozenDisclosure, error) {
	frozen, err := s.snapshots.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	if frozen == nil {
		return nil, ErrSnapshotNotFound
	}
	return frozen, nil
}

// CurrentDisclosure returns the live disclosure. When the refresher has not produced
// a row yet it is rebuilt in memory without writing.
func (s *SnapshotService) CurrentDisclosure(ctx context.Context, companyID int64) (*entities.LiveDisclosure, error) {
	live, err := s.snapshots.FindLive(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load live disclosure for company %d: %w", companyID, err)
	}
	if live != nil {
		return live, nil
	}

	company, flags, deals, err := s.loadLiveState(ctx, companyID)
	if err != nil {
		return nil, err
	}
	rebuilt := entities.NewLiveDisclosure(*company, flags, deals, company.UpdatedAt)
	return &rebuilt, nil
}

// RefreshLive rebuilds and stores the live disclosure for one company.
func (s *SnapshotService) RefreshLive(ctx context.Context, companyID int64) error {
	company, flags, deals, err := s.loadLiveState(ctx, companyID)
	if err != nil {
		return err
	}
	live := entities.NewLiveDisclosure(*company, flags, deals, s.now().UTC())
	if err = s.snapshots.UpsertLive(ctx, live); err != nil {
		return fmt.Errorf("failed to store live disclosure for company %d: %w", companyID, err)
	}
	return nil
}

// RefreshAllLive refreshes every company and returns how many succeeded.
// One company failing does not stop the others.
func (s *SnapshotService) RefreshAllLive(ctx context.Context) (int, error) {
	ids, err := s.companies.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list companies: %w", err)
	}

	var errs []error
	refreshed := 0
	for _, id := range ids {
		if err = ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err = s.RefreshLive(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to refresh live disclosure", "company_id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

func (s *SnapshotService) loadLiveState(ctx context.Context, companyID int64) (*entities.Company, []entities.RiskFlag, []entities.Deal, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load company %d: %w", companyID, err)
	}
	if company == nil {
		return nil, nil, nil, ErrCompanyNotFound
	}
	flags, err := s.companies.ListActiveRiskFlags(ctx, companyID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load risk flags for company %d: %w", companyID, err)
	}
	deals, err := s.companies.ListDeals(ctx, companyID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load deals for company %d: %w", companyID, err)
	}
	return company, flags, deals, nil
}
