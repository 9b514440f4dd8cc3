package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskType is a disclosure category the investor must accept before investing.
type RiskType string

const (
	RiskIlliquidity         RiskType = "illiquidity"
	RiskNoGuarantee         RiskType = "no_guarantee"
	RiskPlatformNonAdvisory RiskType = "platform_non_advisory"
	RiskMaterialChanges     RiskType = "material_changes"
)

// RequiredRiskTypes returns the closed set every allocation must acknowledge.
func RequiredRiskTypes() []RiskType {
	return []RiskType{RiskIlliquidity, RiskNoGuarantee, RiskPlatformNonAdvisory, RiskMaterialChanges}
}

func (r RiskType) IsValid() bool {
	switch r {
	case RiskIlliquidity, RiskNoGuarantee, RiskPlatformNonAdvisory, RiskMaterialChanges:
		return true
	}
	return false
}

// ParseRiskType accepts only the known risk types.
func ParseRiskType(s string) (RiskType, error) {
	r := RiskType(strings.TrimSpace(s))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown risk type %q", s)
	}
	return r, nil
}

// RiskAcknowledgement is immutable proof that a user accepted one risk disclosure.
type RiskAcknowledgement struct {
	ID             int64     `db:"id"              json:"id"`
	UserID         int64     `db:"user_id"         json:"user_id"`
	CompanyID      int64     `db:"company_id"      json:"company_id"`
	SnapshotID     uuid.UUID `db:"snapshot_id"     json:"snapshot_id"`
	RiskType       RiskType  `db:"risk_type"       json:"risk_type"`
	AcknowledgedAt time.Time `db:"acknowledged_at" json:"acknowledged_at"`
	IPAddress      string    `db:"ip_address"      json:"ip_address"`
	UserAgent      string    `db:"user_agent"      json:"user_agent"`
}

// ClientContext is the request metadata stored alongside acknowledgements.
type ClientContext struct {
	IPAddress string
	UserAgent string
}
