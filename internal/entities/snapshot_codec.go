package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot payload schema versions. Rows keep the version they were written with.
const (
	SnapshotSchemaV1      = 1
	SnapshotSchemaV2      = 2
	CurrentSnapshotSchema = SnapshotSchemaV2
)

var (
	ErrUnknownSnapshotSchema  = errors.New("unknown snapshot schema version")
	ErrInvalidSnapshotPayload = errors.New("invalid snapshot payload")
)

// snapshotPayloadV1 is the flat shape written before platform context and flag codes existed.
type snapshotPayloadV1 struct {
	LifecycleState  LifecycleState  `json:"lifecycle_state"`
	BuyingEnabled   bool            `json:"buying_enabled"`
	ComplianceScore decimal.Decimal `json:"compliance_score"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	DisclosureText  string          `json:"disclosure_text"`
	RiskFlags       []struct {
		Type        string    `json:"type"`
		Severity    string    `json:"severity"`
		Description string    `json:"description"`
		DetectedAt  time.Time `json:"detected_at"`
	} `json:"risk_flags"`
}

type snapshotPayloadV2 struct {
	Disclosure DisclosureState `json:"disclosure"`
	Platform   PlatformContext `json:"platform_context"`
}

// EncodeSnapshotPayload serializes state in the current schema.
func EncodeSnapshotPayload(state DisclosureState, platform PlatformContext) (int, []byte, error) {
	if err := validateState(state); err != nil {
		return 0, nil, err
	}
	if state.RiskFlags == nil {
		state.RiskFlags = []SnapshotRiskFlag{}
	}
	raw, err := json.Marshal(snapshotPayloadV2{Disclosure: state, Platform: platform})
	if err != nil {
		return 0, nil, fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return CurrentSnapshotSchema, raw, nil
}

// DecodeSnapshotPayload decodes a payload written under any known schema version.
func DecodeSnapshotPayload(version int, raw []byte) (DisclosureState, PlatformContext, error) {
	switch version {
	case SnapshotSchemaV1:
		return decodeV1(raw)
	case SnapshotSchemaV2:
		var p snapshotPayloadV2
		if err := json.Unmarshal(raw, &p); err != nil {
			return DisclosureState{}, PlatformContext{}, fmt.Errorf("%w: %v", ErrInvalidSnapshotPayload, err)
		}
		if err := validateState(p.Disclosure); err != nil {
			return DisclosureState{}, PlatformContext{}, err
		}
		if p.Disclosure.RiskFlags == nil {
			p.Disclosure.RiskFlags = []SnapshotRiskFlag{}
		}
		SortFlags(p.Disclosure.RiskFlags)
		return p.Disclosure, p.Platform, nil
	default:
		return DisclosureState{}, PlatformContext{}, fmt.Errorf("%w: %d", ErrUnknownSnapshotSchema, version)
	}
}

func decodeV1(raw []byte) (DisclosureState, PlatformContext, error) {
	var p snapshotPayloadV1
	if err := json.Unmarshal(raw, &p); err != nil {
		return DisclosureState{}, PlatformContext{}, fmt.Errorf("%w: %v", ErrInvalidSnapshotPayload, err)
	}

	// v1 flags had no code; the flag type was unique per company at the time.
	flags := make([]SnapshotRiskFlag, 0, len(p.RiskFlags))
	for _, f := range p.RiskFlags {
		flags = append(flags, SnapshotRiskFlag{
			Code:        f.Type,
			Type:        f.Type,
			Severity:    f.Severity,
			Description: f.Description,
			DetectedAt:  f.DetectedAt,
		})
	}
	SortFlags(flags)

	state := DisclosureState{
		LifecycleState:  p.LifecycleState,
		BuyingEnabled:   p.BuyingEnabled,
		ComplianceScore: p.ComplianceScore,
		RiskLevel:       p.RiskLevel,
		RiskFlags:       flags,
		DisclosureText:  p.DisclosureText,
	}
	if err := validateState(state); err != nil {
		return DisclosureState{}, PlatformContext{}, err
	}

	platform := PlatformContext{
		LifecycleState: p.LifecycleState,
		BuyingEnabled:  p.BuyingEnabled,
	}
	return state, platform, nil
}

func validateState(s DisclosureState) error {
	if s.LifecycleState == "" {
		return fmt.Errorf("%w: missing lifecycle state", ErrInvalidSnapshotPayload)
	}
	for i, f := range s.RiskFlags {
		if f.Code == "" {
			return fmt.Errorf("%w: risk flag %d has no code", ErrInvalidSnapshotPayload, i)
		}
	}
	return nil
}
