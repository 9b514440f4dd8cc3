package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

// SnapshotsRepository stores frozen snapshots (insert-only) and the live disclosure per company.
type SnapshotsRepository struct {
	base
}

func NewSnapshotsRepository(logger *slog.Logger, pg *database.Postgres) *SnapshotsRepository {
	return &SnapshotsRepository{base: newBase(logger, pg)}
}

func (r *SnapshotsRepository) Insert(ctx context.Context, s entities.FrozenDisclosure) error {
	version, payload, err := entities.EncodeSnapshotPayload(s.State, s.Platform)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", s.SnapshotID, err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO disclosure_snapshots (id, company_id, user_id, schema_version, payload, snapshot_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		s.SnapshotID, s.CompanyID, s.UserID, version, payload, s.SnapshotAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", s.SnapshotID, err)
	}
	return nil
}

func (r *SnapshotsRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.FrozenDisclosure, error) {
	var (
		s       entities.FrozenDisclosure
		version int
		payload []byte
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, company_id, user_id, schema_version, payload, snapshot_at
         FROM disclosure_snapshots
         WHERE id = $1`, id,
	).Scan(&s.SnapshotID, &s.CompanyID, &s.UserID, &version, &payload, &s.SnapshotAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", id, err)
	}

	s.State, s.Platform, err = entities.DecodeSnapshotPayload(version, payload)
	if err != nil {
		r.logger.Error("Stored snapshot is unreadable", "snapshot_id", id.String(), "schema_version", version, "error", err)
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	s.SnapshotAt = s.SnapshotAt.UTC()
	return &s, nil
}

// UpsertLive replaces the live disclosure row for the company.
func (r *SnapshotsRepository) UpsertLive(ctx context.Context, live entities.LiveDisclosure) error {
	version, payload, err := entities.EncodeSnapshotPayload(live.State, live.Platform)
	if err != nil {
		return fmt.Errorf("failed to encode live disclosure for company %d: %w", live.CompanyID, err)
	}

	query, args, err := psql.Insert("company_live_disclosures").
		Columns("company_id", "schema_version", "payload", "source_updated_at", "refreshed_at").
		Values(live.CompanyID, version, payload, live.SourceUpdatedAt, live.RefreshedAt).
		Suffix(`ON CONFLICT (company_id) DO UPDATE SET
                    schema_version = EXCLUDED.schema_version,
                    payload = EXCLUDED.payload,
                    source_updated_at = EXCLUDED.source_updated_at,
                    refreshed_at = EXCLUDED.refreshed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build live disclosure upsert: %w", err)
	}

	if _, err = r.db(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert live disclosure for company %d: %w", live.CompanyID, err)
	}
	return nil
}

func (r *SnapshotsRepository) FindLive(ctx context.Context, companyID int64) (*entities.LiveDisclosure, error) {
	var (
		live        entities.LiveDisclosure
		version     int
		payload     []byte
		sourceAt    time.Time
		refreshedAt time.Time
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT company_id, schema_version, payload, source_updated_at, refreshed_at
         FROM company_live_disclosures
         WHERE company_id = $1`, companyID,
	).Scan(&live.CompanyID, &version, &payload, &sourceAt, &refreshedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query live disclosure for company %d: %w", companyID, err)
	}

	live.State, live.Platform, err = entities.DecodeSnapshotPayload(version, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode live disclosure for company %d: %w", companyID, err)
	}
	live.SourceUpdatedAt = sourceAt.UTC()
	live.RefreshedAt = refreshedAt.UTC()
	return &live, nil
}
