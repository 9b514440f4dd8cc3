package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

// Reference types recorded on ledger entries.
const (
	ReferenceInvestment = "investment"
	ReferenceDeposit    = "deposit"
	ReferenceBonus      = "bonus"
	ReferenceRefund     = "refund"
)

// LedgerReference points a ledger entry at the business object that caused it.
type LedgerReference struct {
	Type string
	ID   string
}

// WalletTransaction is an append-only ledger entry. Entries are never edited or deleted.
type WalletTransaction struct {
	ID            int64           `db:"id"             json:"id"`
	WalletID      int64           `db:"wallet_id"      json:"wallet_id"`
	Type          TransactionType `db:"type"           json:"type"`
	Amount        decimal.Decimal `db:"amount"         json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"  json:"balance_after"`
	ReferenceType string          `db:"reference_type" json:"reference_type"`
	ReferenceID   string          `db:"reference_id"   json:"reference_id"`
	Description   string          `db:"description"    json:"description"`
	CreatedAt     time.Time       `db:"created_at"     json:"created_at"`
}

// Signed returns the entry's effect on the available balance.
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
