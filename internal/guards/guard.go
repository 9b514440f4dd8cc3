package guards

import (
	"context"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// Guard is one independent precondition check. Guards never short-circuit internally:
// every failing condition becomes its own blocker.
type Guard interface {
	Name() string
	// RejectionCode is the error code reported when this guard denies a submission.
	RejectionCode() entities.ErrorCode
	Evaluate(ctx context.Context, in Input) (entities.Verdict, error)
}

// Input is what a guard is asked about.
type Input struct {
	CompanyID int64
	UserID    int64
	Action    entities.Action
}

type CompanyReader interface {
	FindByID(ctx context.Context, id int64) (*entities.Company, error)
	ListDeals(ctx context.Context, companyID int64) ([]entities.Deal, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id int64) (*entities.User, error)
}

type WalletReader interface {
	FindByUser(ctx context.Context, userID int64) (*entities.Wallet, error)
}
