package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

func TestCaptureAtPurchase_FreezesState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.snapshots.CaptureAtPurchase(ctx, testCompanyID, testUserID)
	require.NoError(t, err)
	require.True(t, result.Success)

	env.store.updateCompany(testCompanyID, func(c *entities.Company) {
		c.ComplianceScore = decimal.RequireFromString("40")
		c.RiskLevel = entities.RiskLevelHigh
		c.DisclosureText = "Rewritten"
	})
	env.store.deactivateFlag(testCompanyID, "FIN-LOSS")

	frozen, err := env.snapshots.Frozen(ctx, result.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "82.5", frozen.State.ComplianceScore.String())
	assert.Equal(t, entities.RiskLevelMedium, frozen.State.RiskLevel)
	assert.Equal(t, "Unlisted shares. Read the offer document.", frozen.State.DisclosureText)
	require.Len(t, frozen.State.RiskFlags, 1)
	assert.Equal(t, "FIN-LOSS", frozen.State.RiskFlags[0].Code)
	assert.Equal(t, 1, frozen.Platform.LiveDealCount)
	assert.Equal(t, testNow, frozen.SnapshotAt)
	assert.Equal(t, int64(testUserID), frozen.UserID)
}

func TestCaptureAtPurchase_UnknownCompany(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.snapshots.CaptureAtPurchase(context.Background(), 999, testUserID)
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	_, snapshots, _, _ := env.store.counts()
	assert.Zero(t, snapshots)
}

func TestCaptureAtPurchase_InsertFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failSnapshotInsert = errInjected

	result, err := env.snapshots.CaptureAtPurchase(context.Background(), testCompanyID, testUserID)
	assert.ErrorIs(t, err, errInjected)
	assert.False(t, result.Success)
}

func TestGetCompleteInvestorView(t *testing.T) {
	env := newTestEnv(t)
	env.store.setBalance(testUserID, dec("50000"))
	ctx := context.Background()

	res, err := env.investments.Submit(ctx, testUserID, SubmitRequest{
		Allocations: []entities.Allocation{allocation(testCompanyID, "5000")},
	}, entities.ClientContext{})
	require.NoError(t, err)
	require.Len(t, res.InvestmentIDs, 1)

	env.store.updateCompany(testCompanyID, func(c *entities.Company) {
		c.BuyingEnabled = false
		c.IsSuspended = true
	})

	view, err := env.snapshots.GetCompleteInvestorView(ctx, res.InvestmentIDs[0])
	require.NoError(t, err)
	assert.Equal(t, res.InvestmentIDs[0], view.InvestmentID)
	assert.Equal(t, res.SnapshotIDs[0], view.SnapshotID)
	assert.True(t, view.Platform.BuyingEnabled)
	assert.False(t, view.Platform.IsSuspended)
	assert.True(t, view.Disclosure.BuyingEnabled)

	_, err = env.snapshots.GetCompleteInvestorView(ctx, 12345)
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}

func TestCurrentDisclosure_FallsBackWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	live, err := env.snapshots.CurrentDisclosure(ctx, testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-48*time.Hour), live.SourceUpdatedAt)
	assert.Len(t, live.State.RiskFlags, 1)

	stored, err := memSnapshots{env.store}.FindLive(ctx, testCompanyID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = env.snapshots.CurrentDisclosure(ctx, 999)
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestRefreshAllLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n, err := env.snapshots.RefreshAllLive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []int64{testCompanyID, otherCompany} {
		stored, err := memSnapshots{env.store}.FindLive(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, testNow, stored.RefreshedAt)
	}

	env.store.addFlag(entities.RiskFlag{ID: 2, CompanyID: otherCompany, Code: "LEGAL", IsActive: true})
	_, err = env.snapshots.RefreshAllLive(ctx)
	require.NoError(t, err)

	live, err := env.snapshots.CurrentDisclosure(ctx, otherCompany)
	require.NoError(t, err)
	require.Len(t, live.State.RiskFlags, 1)
	assert.Equal(t, "LEGAL", live.State.RiskFlags[0].Code)
}

func TestRefreshAllLive_ContinuesAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failCompanyLookup = errInjected

	n, err := env.snapshots.RefreshAllLive(context.Background())
	assert.ErrorIs(t, err, errInjected)
	assert.Zero(t, n)
}
