package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisclosureView is one side of a then/now comparison.
type DisclosureView struct {
	AsOf            time.Time          `json:"as_of"`
	LifecycleState  LifecycleState     `json:"lifecycle_state"`
	BuyingEnabled   bool               `json:"buying_enabled"`
	ComplianceScore decimal.Decimal    `json:"compliance_score"`
	RiskLevel       RiskLevel          `json:"risk_level"`
	RiskFlags       []SnapshotRiskFlag `json:"risk_flags"`
}

// DisclosureChanges is the structural diff between then and now.
type DisclosureChanges struct {
	LifecycleStateChanged bool               `json:"lifecycle_state_changed"`
	BuyingStatusChanged   bool               `json:"buying_status_changed"`
	RiskLevelChanged      bool               `json:"risk_level_changed"`
	ComplianceScoreDelta  decimal.Decimal    `json:"compliance_score_delta"`
	NewRiskFlags          []SnapshotRiskFlag `json:"new_risk_flags"`
	RemovedRiskFlags      []SnapshotRiskFlag `json:"removed_risk_flags"`
}

type Comparison struct {
	InvestmentID   int64             `json:"investment_id"`
	InvestmentDate time.Time         `json:"investment_date"`
	CompanyName    string            `json:"company_name"`
	Then           DisclosureView    `json:"then"`
	Now            DisclosureView    `json:"now"`
	Changes        DisclosureChanges `json:"changes"`
}
