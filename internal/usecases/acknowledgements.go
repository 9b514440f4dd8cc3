package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

// AcknowledgementRecorder persists proof that a user accepted risk disclosures.
// Rows are never shared between investments: each investment gets its own trail.
type AcknowledgementRecorder struct {
	logger *slog.Logger
	repo   AcknowledgementsRepository
	now    func() time.Time
}

func NewAcknowledgementRecorder(logger *slog.Logger, repo AcknowledgementsRepository) *AcknowledgementRecorder {
	return &AcknowledgementRecorder{logger: logger, repo: repo, now: time.Now}
}

// Record inserts one immutable row per distinct risk type, tied to the snapshot the user saw.
func (r *AcknowledgementRecorder) Record(
	ctx context.Context,
	userID, companyID int64,
	snapshotID uuid.UUID,
	risks []entities.RiskType,
	client entities.ClientContext,
) error {
	if len(risks) == 0 {
		return nil
	}

	at := r.now().UTC()
	acks := make([]entities.RiskAcknowledgement, 0, len(risks))
	seen := make(map[entities.RiskType]struct{}, len(risks))
	for _, risk := range risks {
		if _, dup := seen[risk]; dup {
			continue
		}
		seen[risk] = struct{}{}
		acks = append(acks, entities.RiskAcknowledgement{
			UserID:         userID,
			CompanyID:      companyID,
			SnapshotID:     snapshotID,
			RiskType:       risk,
			AcknowledgedAt: at,
			IPAddress:      client.IPAddress,
			UserAgent:      client.UserAgent,
		})
	}

	if err := r.repo.InsertBatch(ctx, acks); err != nil {
		return fmt.Errorf("failed to record risk acknowledgements: %w", err)
	}

	r.logger.DebugContext(ctx, "Risk acknowledgements recorded",
		"user_id", userID,
		"company_id", companyID,
		"snapshot_id", snapshotID.String(),
		"count", len(acks))
	return nil
}

// ValidateComplete returns the required risks missing from provided, in required order.
func (r *AcknowledgementRecorder) ValidateComplete(provided, required []entities.RiskType) []entities.RiskType {
	return MissingRisks(provided, required)
}

// Trail returns the acknowledgements recorded alongside a snapshot.
func (r *AcknowledgementRecorder) Trail(ctx context.Context, snapshotID uuid.UUID) ([]entities.RiskAcknowledgement, error) {
	return r.repo.ListBySnapshot(ctx, snapshotID)
}

func MissingRisks(provided, required []entities.RiskType) []entities.RiskType {
	have := make(map[entities.RiskType]struct{}, len(provided))
	for _, p := range provided {
		have[p] = struct{}{}
	}
	missing := []entities.RiskType{}
	for _, req := range required {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}
