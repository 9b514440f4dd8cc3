package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusClosed WalletStatus = "closed"
)

// Wallet holds the per-user balance state. It is only mutated through the ledger.
type Wallet struct {
	ID               int64           `db:"id"                json:"id"`
	UserID           int64           `db:"user_id"           json:"user_id"`
	AvailableBalance decimal.Decimal `db:"available_balance" json:"available_balance"`
	AllocatedBalance decimal.Decimal `db:"allocated_balance" json:"allocated_balance"`
	PendingBalance   decimal.Decimal `db:"pending_balance"   json:"pending_balance"`
	Currency         string          `db:"currency"          json:"currency"`
	Status           WalletStatus    `db:"status"            json:"status"`
	ClosedAt         *time.Time      `db:"closed_at"         json:"closed_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"        json:"updated_at"`
}

func (w *Wallet) IsClosed() bool {
	return w.Status == WalletStatusClosed
}

// IsEmpty reports whether every balance bucket is zero.
func (w *Wallet) IsEmpty() bool {
	return w.AvailableBalance.IsZero() && w.AllocatedBalance.IsZero() && w.PendingBalance.IsZero()
}
