package usecases

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/internal/guards"
)

const (
	testUserID    int64 = 7
	testCompanyID int64 = 101
	otherCompany  int64 = 202
)

var testNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	store       *memStore
	publisher   *recordingPublisher
	ledger      *WalletLedger
	acks        *AcknowledgementRecorder
	snapshots   *SnapshotService
	settings    *SettingsProvider
	investments *InvestmentService
	comparisons *ComparisonService
}

// newTestEnv wires every service against one memStore with a verified user,
// two companies with live deals and a fixed clock.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	logger := testLogger()

	store.addUser(entities.User{ID: testUserID, Email: "investor@example.com", KYCStatus: entities.KYCVerified})
	for _, id := range []int64{testCompanyID, otherCompany} {
		store.addCompany(entities.Company{
			ID:              id,
			Name:            fmt.Sprintf("Company %d", id),
			LifecycleState:  entities.LifecycleActive,
			BuyingEnabled:   true,
			ComplianceScore: decimal.RequireFromString("82.5"),
			RiskLevel:       entities.RiskLevelMedium,
			DisclosureText:  "Unlisted shares. Read the offer document.",
			UpdatedAt:       testNow.Add(-48 * time.Hour),
		})
		closes := testNow.Add(30 * 24 * time.Hour)
		store.addDeal(entities.Deal{
			ID:        id * 10,
			CompanyID: id,
			Status:    entities.DealStatusLive,
			OpensAt:   testNow.Add(-24 * time.Hour),
			ClosesAt:  &closes,
		})
	}
	store.addFlag(entities.RiskFlag{
		ID:          1,
		CompanyID:   testCompanyID,
		Code:        "FIN-LOSS",
		Type:        "financial",
		Severity:    "medium",
		Category:    "financials",
		Description: "Loss-making for three consecutive years",
		DetectedAt:  testNow.Add(-72 * time.Hour),
		IsActive:    true,
	})

	clock := func() time.Time { return testNow }

	ledger := NewWalletLedger(logger, store, store, memEntries{store}, NoBonus, "INR")
	ledger.now = clock

	acks := NewAcknowledgementRecorder(logger, memAcks{store})
	acks.now = clock

	snapshots := NewSnapshotService(logger, memCompanies{store}, memSnapshots{store}, memInvestments{store})
	snapshots.now = clock
	snapshots.newID = uuid.New

	settings := NewSettingsProvider(logger, memSettings{store}, nil)

	platform := guards.NewPlatformSupremacyGuard(logger, memCompanies{store})
	eligibility := guards.NewBuyEligibilityGuard(logger, memCompanies{store}, memUsers{store}, store).WithClock(clock)

	publisher := &recordingPublisher{}
	investments := NewInvestmentService(
		logger, store, store, memInvestments{store},
		ledger, snapshots, acks, settings, publisher, "INR",
		GuardStep{Guard: platform, Stage: StagePlatformChecked},
		GuardStep{Guard: eligibility, Stage: StageEligibilityChecked},
	)
	investments.now = clock

	return &testEnv{
		store:       store,
		publisher:   publisher,
		ledger:      ledger,
		acks:        acks,
		snapshots:   snapshots,
		settings:    settings,
		investments: investments,
		comparisons: NewComparisonService(logger, memInvestments{store}, memCompanies{store}, snapshots),
	}
}

func allRisks() []entities.RiskType {
	return entities.RequiredRiskTypes()
}

func allocation(companyID int64, amount string) entities.Allocation {
	return entities.Allocation{
		CompanyID:         companyID,
		Amount:            decimal.RequireFromString(amount),
		AcknowledgedRisks: allRisks(),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
