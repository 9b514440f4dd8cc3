package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// Transactor runs fn inside one storage transaction carried by ctx.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type WalletsRepository interface {
	FindByUser(ctx context.Context, userID int64) (*entities.Wallet, error)
	GetOrCreate(ctx context.Context, userID int64, currency string) (*entities.Wallet, error)
	// LockForUpdate creates the wallet if needed and takes a row lock held until the transaction ends.
	LockForUpdate(ctx context.Context, userID int64, currency string) (*entities.Wallet, error)
	UpdateAvailableBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error
	MarkClosed(ctx context.Context, walletID int64, at time.Time) error
}

type WalletTransactionsRepository interface {
	Insert(ctx context.Context, entry *entities.WalletTransaction) error
	ListByWallet(ctx context.Context, walletID int64, limit uint64) ([]entities.WalletTransaction, error)
	ListByWalletAscending(ctx context.Context, walletID int64) ([]entities.WalletTransaction, error)
	ExistsByReference(ctx context.Context, walletID int64, referenceType, referenceID string) (bool, error)
}

type InvestmentsRepository interface {
	Insert(ctx context.Context, investment *entities.CompanyInvestment) error
	FindByID(ctx context.Context, id int64) (*entities.CompanyInvestment, error)
	FindByIDForUser(ctx context.Context, id, userID int64) (*entities.CompanyInvestment, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) ([]entities.CompanyInvestment, error)
	List(ctx context.Context, userID int64, filter entities.InvestmentFilter) ([]entities.CompanyInvestment, error)
}

type AcknowledgementsRepository interface {
	InsertBatch(ctx context.Context, acks []entities.RiskAcknowledgement) error
	ListBySnapshot(ctx context.Context, snapshotID uuid.UUID) ([]entities.RiskAcknowledgement, error)
}

type SnapshotsRepository interface {
	Insert(ctx context.Context, snapshot entities.FrozenDisclosure) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.FrozenDisclosure, error)
	UpsertLive(ctx context.Context, live entities.LiveDisclosure) error
	FindLive(ctx context.Context, companyID int64) (*entities.LiveDisclosure, error)
}

type CompaniesRepository interface {
	FindByID(ctx context.Context, id int64) (*entities.Company, error)
	ListDeals(ctx context.Context, companyID int64) ([]entities.Deal, error)
	ListActiveRiskFlags(ctx context.Context, companyID int64) ([]entities.RiskFlag, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

type SettingsRepository interface {
	All(ctx context.Context) (map[string]string, error)
}

// SettingsCache is an optional read-through cache in front of SettingsRepository.
type SettingsCache interface {
	Load(ctx context.Context) (map[string]string, bool, error)
	Store(ctx context.Context, values map[string]string) error
}

// EventPublisher receives domain events after a submission commits.
type EventPublisher interface {
	PublishInvestmentCreated(ctx context.Context, events []entities.InvestmentCreatedEvent) error
}
