package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCancelled InvestmentStatus = "cancelled"
	InvestmentStatusExited    InvestmentStatus = "exited"
)

// CompanyInvestment is one accepted allocation. DisclosureSnapshotID is set once at creation.
type CompanyInvestment struct {
	ID                   int64            `db:"id"                     json:"id"`
	UserID               int64            `db:"user_id"                json:"user_id"`
	CompanyID            int64            `db:"company_id"             json:"company_id"`
	Amount               decimal.Decimal  `db:"amount"                 json:"amount"`
	Status               InvestmentStatus `db:"status"                 json:"status"`
	DisclosureSnapshotID uuid.UUID        `db:"disclosure_snapshot_id" json:"disclosure_snapshot_id"`
	IdempotencyKey       *string          `db:"idempotency_key"        json:"idempotency_key,omitempty"`
	InvestedAt           time.Time        `db:"invested_at"            json:"invested_at"`
}

// Allocation is one per-company slice of a submission.
type Allocation struct {
	CompanyID         int64           `json:"company_id"`
	Amount            decimal.Decimal `json:"amount"`
	AcknowledgedRisks []RiskType      `json:"acknowledged_risks"`
}

// InvestmentFilter narrows investment listings. Zero values mean "any".
type InvestmentFilter struct {
	CompanyID int64
	Status    InvestmentStatus
	Limit     uint64
}

// InvestmentCreatedEvent is published after a submission commits.
type InvestmentCreatedEvent struct {
	InvestmentID int64           `json:"investment_id"`
	UserID       int64           `json:"user_id"`
	CompanyID    int64           `json:"company_id"`
	Amount       decimal.Decimal `json:"amount"`
	SnapshotID   uuid.UUID       `json:"snapshot_id"`
	InvestedAt   time.Time       `json:"invested_at"`
}
