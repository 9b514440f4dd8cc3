package entities

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Blocker is one failed check. Warnings are advisory and never block.
type Blocker struct {
	Guard    string   `json:"guard"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Verdict is the uniform result every guard returns.
type Verdict struct {
	Allowed  bool      `json:"allowed"`
	Blockers []Blocker `json:"blockers"`
}

// NewVerdict derives Allowed from the blocker list: allowed iff nothing is critical.
func NewVerdict(blockers []Blocker) Verdict {
	if blockers == nil {
		blockers = []Blocker{}
	}
	for _, b := range blockers {
		if b.Severity == SeverityCritical {
			return Verdict{Allowed: false, Blockers: blockers}
		}
	}
	return Verdict{Allowed: true, Blockers: blockers}
}

// Critical returns only the blocking entries.
func (v Verdict) Critical() []Blocker {
	var out []Blocker
	for _, b := range v.Blockers {
		if b.Severity == SeverityCritical {
			out = append(out, b)
		}
	}
	return out
}

// HasCritical reports whether guard raised a blocking entry.
func (v Verdict) HasCritical(guard string) bool {
	for _, b := range v.Blockers {
		if b.Severity == SeverityCritical && b.Guard == guard {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionInvest Action = "invest"
	ActionView   Action = "view"
)

// Platform-level blocking states, in priority order.
const (
	BlockingCompanyNotFound    = "company_not_found"
	BlockingSuspended          = "suspended"
	BlockingFrozen             = "frozen"
	BlockingUnderInvestigation = "under_investigation"
	BlockingBuyingPaused       = "buying_paused"
)

// PlatformDecision is the platform supremacy guard's answer.
type PlatformDecision struct {
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason,omitempty"`
	BlockingState string `json:"blocking_state,omitempty"`
}

// EligibilityReport aggregates every guard's blockers for pre-submission display.
type EligibilityReport struct {
	CompanyID int64     `json:"company_id"`
	Allowed   bool      `json:"allowed"`
	Blockers  []Blocker `json:"blockers"`
}
