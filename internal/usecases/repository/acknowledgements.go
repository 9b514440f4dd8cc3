package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

type AcknowledgementsRepository struct {
	base
}

func NewAcknowledgementsRepository(logger *slog.Logger, pg *database.Postgres) *AcknowledgementsRepository {
	return &AcknowledgementsRepository{base: newBase(logger, pg)}
}

// InsertBatch writes all rows in one statement.
func (r *AcknowledgementsRepository) InsertBatch(ctx context.Context, acks []entities.RiskAcknowledgement) error {
	if len(acks) == 0 {
		return nil
	}

	builder := psql.Insert("risk_acknowledgements").
		Columns("user_id", "company_id", "snapshot_id", "risk_type", "acknowledged_at", "ip_address", "user_agent")
	for _, a := range acks {
		builder = builder.Values(a.UserID, a.CompanyID, a.SnapshotID, a.RiskType, a.AcknowledgedAt, a.IPAddress, a.UserAgent)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build acknowledgement insert: %w", err)
	}
	if _, err = r.db(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert acknowledgements: %w", err)
	}
	return nil
}

func (r *AcknowledgementsRepository) ListBySnapshot(ctx context.Context, snapshotID uuid.UUID) ([]entities.RiskAcknowledgement, error) {
	query := `SELECT id, user_id, company_id, snapshot_id, risk_type, acknowledged_at, ip_address, user_agent
              FROM risk_acknowledgements
              WHERE snapshot_id = $1
              ORDER BY id`

	rows, err := r.db(ctx).Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query acknowledgements: %w", err)
	}

	acks, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.RiskAcknowledgement])
	if err != nil {
		return nil, fmt.Errorf("failed to collect acknowledgement rows: %w", err)
	}
	return acks, nil
}
