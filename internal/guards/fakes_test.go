package guards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

var (
	now        = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	errStorage = errors.New("storage down")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCompanies struct {
	companies map[int64]entities.Company
	deals     map[int64][]entities.Deal
	err       error
}

func (f *fakeCompanies) FindByID(_ context.Context, id int64) (*entities.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCompanies) ListDeals(_ context.Context, companyID int64) ([]entities.Deal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.deals[companyID], nil
}

type fakeUsers map[int64]entities.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (*entities.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type fakeWallets map[int64]entities.Wallet

func (f fakeWallets) FindByUser(_ context.Context, userID int64) (*entities.Wallet, error) {
	w, ok := f[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func openCompany(id int64) entities.Company {
	return entities.Company{
		ID:             id,
		Name:           "Acme",
		LifecycleState: entities.LifecycleActive,
		BuyingEnabled:  true,
		RiskLevel:      entities.RiskLevelMedium,
	}
}

func liveDeal(companyID int64) entities.Deal {
	return entities.Deal{CompanyID: companyID, Status: entities.DealStatusLive, OpensAt: now.Add(-time.Hour)}
}

func fundedWallet(userID int64, balance string) entities.Wallet {
	return entities.Wallet{
		UserID:           userID,
		AvailableBalance: decimal.RequireFromString(balance),
		Status:           entities.WalletStatusActive,
	}
}
