package entities

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotRiskFlag is a denormalized copy of a risk flag, matched across time by Code.
type SnapshotRiskFlag struct {
	Code        string    `json:"code"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
}

// DisclosureState is the value shared by frozen and live disclosures.
type DisclosureState struct {
	LifecycleState  LifecycleState     `json:"lifecycle_state"`
	BuyingEnabled   bool               `json:"buying_enabled"`
	ComplianceScore decimal.Decimal    `json:"compliance_score"`
	RiskLevel       RiskLevel          `json:"risk_level"`
	RiskFlags       []SnapshotRiskFlag `json:"risk_flags"`
	DisclosureText  string             `json:"disclosure_text"`
}

// PlatformContext is the platform-level state of a company at one instant.
type PlatformContext struct {
	LifecycleState     LifecycleState `json:"lifecycle_state"`
	BuyingEnabled      bool           `json:"buying_enabled"`
	IsSuspended        bool           `json:"is_suspended"`
	IsFrozen           bool           `json:"is_frozen"`
	UnderInvestigation bool           `json:"under_investigation"`
	BuyingPausedReason string         `json:"buying_paused_reason,omitempty"`
	LiveDealCount      int            `json:"live_deal_count"`
}

// FrozenDisclosure is written once at purchase time and never mutated.
type FrozenDisclosure struct {
	SnapshotID uuid.UUID       `json:"snapshot_id"`
	CompanyID  int64           `json:"company_id"`
	UserID     int64           `json:"user_id"`
	SnapshotAt time.Time       `json:"snapshot_at"`
	State      DisclosureState `json:"disclosure"`
	Platform   PlatformContext `json:"platform_context"`
}

// LiveDisclosure is the continuously refreshed current state of a company.
type LiveDisclosure struct {
	CompanyID       int64           `json:"company_id"`
	State           DisclosureState `json:"disclosure"`
	Platform        PlatformContext `json:"platform_context"`
	SourceUpdatedAt time.Time       `json:"source_updated_at"`
	RefreshedAt     time.Time       `json:"refreshed_at"`
}

// InvestorView is everything captured for one investment.
type InvestorView struct {
	InvestmentID int64           `json:"investment_id"`
	SnapshotID   uuid.UUID       `json:"snapshot_id"`
	SnapshotAt   time.Time       `json:"snapshot_at"`
	Platform     PlatformContext `json:"platform_context_snapshot"`
	Disclosure   DisclosureState `json:"disclosure_snapshot"`
}

// FreezeDisclosure assembles a complete frozen snapshot from live company state.
func FreezeDisclosure(id uuid.UUID, userID int64, c Company, flags []RiskFlag, deals []Deal, at time.Time) FrozenDisclosure {
	return FrozenDisclosure{
		SnapshotID: id,
		CompanyID:  c.ID,
		UserID:     userID,
		SnapshotAt: at,
		State:      buildDisclosureState(c, flags),
		Platform:   buildPlatformContext(c, deals, at),
	}
}

// NewLiveDisclosure rebuilds the live disclosure from live tables.
func NewLiveDisclosure(c Company, flags []RiskFlag, deals []Deal, refreshedAt time.Time) LiveDisclosure {
	return LiveDisclosure{
		CompanyID:       c.ID,
		State:           buildDisclosureState(c, flags),
		Platform:        buildPlatformContext(c, deals, refreshedAt),
		SourceUpdatedAt: c.UpdatedAt,
		RefreshedAt:     refreshedAt,
	}
}

func buildDisclosureState(c Company, flags []RiskFlag) DisclosureState {
	return DisclosureState{
		LifecycleState:  c.LifecycleState,
		BuyingEnabled:   c.BuyingEnabled,
		ComplianceScore: c.ComplianceScore,
		RiskLevel:       c.RiskLevel,
		RiskFlags:       SnapshotFlags(flags),
		DisclosureText:  c.DisclosureText,
	}
}

func buildPlatformContext(c Company, deals []Deal, at time.Time) PlatformContext {
	return PlatformContext{
		LifecycleState:     c.LifecycleState,
		BuyingEnabled:      c.BuyingEnabled,
		IsSuspended:        c.IsSuspended,
		IsFrozen:           c.IsFrozen,
		UnderInvestigation: c.UnderInvestigation,
		BuyingPausedReason: c.BuyingPausedReason,
		LiveDealCount:      CountLiveDeals(deals, at),
	}
}

// SnapshotFlags copies active live flags into snapshot form, sorted by code.
func SnapshotFlags(flags []RiskFlag) []SnapshotRiskFlag {
	out := make([]SnapshotRiskFlag, 0, len(flags))
	for _, f := range flags {
		if !f.IsActive {
			continue
		}
		out = append(out, SnapshotRiskFlag{
			Code:        f.Code,
			Type:        f.Type,
			Severity:    f.Severity,
			Category:    f.Category,
			Description: f.Description,
			DetectedAt:  f.DetectedAt.UTC(),
		})
	}
	SortFlags(out)
	return out
}

func SortFlags(flags []SnapshotRiskFlag) {
	slices.SortFunc(flags, func(a, b SnapshotRiskFlag) int {
		return strings.Compare(a.Code, b.Code)
	})
}
