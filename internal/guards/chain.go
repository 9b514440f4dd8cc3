package guards

import (
	"context"
	"fmt"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// Chain is an ordered list of guards, highest priority first.
type Chain []Guard

// Report runs every guard, including after a denial, and merges the blockers.
func (c Chain) Report(ctx context.Context, in Input) (entities.EligibilityReport, error) {
	var blockers []entities.Blocker
	for _, g := range c {
		verdict, err := g.Evaluate(ctx, in)
		if err != nil {
			return entities.EligibilityReport{}, fmt.Errorf("guard %s: %w", g.Name(), err)
		}
		blockers = append(blockers, verdict.Blockers...)
	}
	verdict := entities.NewVerdict(blockers)
	return entities.EligibilityReport{
		CompanyID: in.CompanyID,
		Allowed:   verdict.Allowed,
		Blockers:  verdict.Blockers,
	}, nil
}
