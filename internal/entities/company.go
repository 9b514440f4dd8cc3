package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type LifecycleState string

const (
	LifecycleDraft    LifecycleState = "draft"
	LifecycleActive   LifecycleState = "active"
	LifecycleListed   LifecycleState = "listed"
	LifecycleDelisted LifecycleState = "delisted"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Company is the live, operator-maintained state of an issuer. Read-only for this service.
type Company struct {
	ID                 int64           `db:"id"`
	Name               string          `db:"name"`
	LifecycleState     LifecycleState  `db:"lifecycle_state"`
	BuyingEnabled      bool            `db:"buying_enabled"`
	IsSuspended        bool            `db:"is_suspended"`
	IsFrozen           bool            `db:"is_frozen"`
	UnderInvestigation bool            `db:"under_investigation"`
	BuyingPausedReason string          `db:"buying_paused_reason"`
	ComplianceScore    decimal.Decimal `db:"compliance_score"`
	RiskLevel          RiskLevel       `db:"risk_level"`
	DisclosureText     string          `db:"disclosure_text"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type DealStatus string

const (
	DealStatusUpcoming DealStatus = "upcoming"
	DealStatusLive     DealStatus = "live"
	DealStatusClosed   DealStatus = "closed"
)

// Deal is a subscription window for a company.
type Deal struct {
	ID        int64      `db:"id"`
	CompanyID int64      `db:"company_id"`
	Status    DealStatus `db:"status"`
	OpensAt   time.Time  `db:"opens_at"`
	ClosesAt  *time.Time `db:"closes_at"`
}

// IsLiveAt reports whether the deal accepts subscriptions at t.
func (d Deal) IsLiveAt(t time.Time) bool {
	if d.Status != DealStatusLive || t.Before(d.OpensAt) {
		return false
	}
	return d.ClosesAt == nil || t.Before(*d.ClosesAt)
}

// CountLiveDeals returns how many deals are live at t.
func CountLiveDeals(deals []Deal, t time.Time) int {
	n := 0
	for _, d := range deals {
		if d.IsLiveAt(t) {
			n++
		}
	}
	return n
}

// RiskFlag is a live risk flag row. Code is stable across snapshots, ID is not.
type RiskFlag struct {
	ID          int64     `db:"id"`
	CompanyID   int64     `db:"company_id"`
	Code        string    `db:"code"`
	Type        string    `db:"flag_type"`
	Severity    string    `db:"severity"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	DetectedAt  time.Time `db:"detected_at"`
	IsActive    bool      `db:"is_active"`
}

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// User is the slice of the external user record this service reads.
type User struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	KYCStatus KYCStatus `db:"kyc_status"`
}
