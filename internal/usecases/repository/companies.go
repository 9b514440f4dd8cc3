package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

// CompaniesRepository reads operator-maintained company state. It never writes.
type CompaniesRepository struct {
	base
}

func NewCompaniesRepository(logger *slog.Logger, pg *database.Postgres) *CompaniesRepository {
	return &CompaniesRepository{base: newBase(logger, pg)}
}

func (r *CompaniesRepository) FindByID(ctx context.Context, id int64) (*entities.Company, error) {
	query := `SELECT id, name, lifecycle_state, buying_enabled, is_suspended, is_frozen,
                     under_investigation, buying_paused_reason, compliance_score, risk_level,
                     disclosure_text, updated_at
              FROM companies
              WHERE id = $1`

	rows, err := r.db(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query company %d: %w", id, err)
	}

	company, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[entities.Company])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect company row: %w", err)
	}
	return &company, nil
}

func (r *CompaniesRepository) ListDeals(ctx context.Context, companyID int64) ([]entities.Deal, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, company_id, status, opens_at, closes_at
         FROM company_deals
         WHERE company_id = $1
         ORDER BY opens_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals for company %d: %w", companyID, err)
	}

	deals, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.Deal])
	if err != nil {
		return nil, fmt.Errorf("failed to collect deal rows: %w", err)
	}
	return deals, nil
}

// ListActiveRiskFlags returns active flags ordered by code.
func (r *CompaniesRepository) ListActiveRiskFlags(ctx context.Context, companyID int64) ([]entities.RiskFlag, error) {
	query, args, err := psql.Select(
		"id", "company_id", "code", "flag_type", "severity", "category", "description", "detected_at", "is_active").
		From("company_risk_flags").
		Where("company_id = ? AND is_active", companyID).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build risk flag query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk flags for company %d: %w", companyID, err)
	}

	flags, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.RiskFlag])
	if err != nil {
		return nil, fmt.Errorf("failed to collect risk flag rows: %w", err)
	}
	return flags, nil
}

func (r *CompaniesRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx, "SELECT id FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query company ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect company ids: %w", err)
	}
	return ids, nil
}
