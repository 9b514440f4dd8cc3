package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

var investmentColumns = []string{
	"id", "user_id", "company_id", "amount", "status",
	"disclosure_snapshot_id", "idempotency_key", "invested_at",
}

type InvestmentsRepository struct {
	base
}

func NewInvestmentsRepository(logger *slog.Logger, pg *database.Postgres) *InvestmentsRepository {
	return &InvestmentsRepository{base: newBase(logger, pg)}
}

// Insert stores a new investment and sets its id. The snapshot id is bound here and never changes.
func (r *InvestmentsRepository) Insert(ctx context.Context, inv *entities.CompanyInvestment) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO company_investments
             (user_id, company_id, amount, status, disclosure_snapshot_id, idempotency_key, invested_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id`,
		inv.UserID, inv.CompanyID, inv.Amount, inv.Status,
		inv.DisclosureSnapshotID, inv.IdempotencyKey, inv.InvestedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to insert investment for company %d: %w", inv.CompanyID, err)
	}
	return nil
}

func (r *InvestmentsRepository) FindByID(ctx context.Context, id int64) (*entities.CompanyInvestment, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

// FindByIDForUser returns nil for investments that belong to someone else.
func (r *InvestmentsRepository) FindByIDForUser(ctx context.Context, id, userID int64) (*entities.CompanyInvestment, error) {
	return r.findOne(ctx, sq.Eq{"id": id, "user_id": userID})
}

// FindByIdempotencyKey returns every investment a prior submission created under key, in id order.
func (r *InvestmentsRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) ([]entities.CompanyInvestment, error) {
	builder := psql.Select(investmentColumns...).
		From("company_investments").
		Where(sq.Eq{"user_id": userID, "idempotency_key": key}).
		OrderBy("id ASC")
	return r.list(ctx, builder)
}

func (r *InvestmentsRepository) List(ctx context.Context, userID int64, filter entities.InvestmentFilter) ([]entities.CompanyInvestment, error) {
	builder := psql.Select(investmentColumns...).
		From("company_investments").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC")
	if filter.CompanyID > 0 {
		builder = builder.Where(sq.Eq{"company_id": filter.CompanyID})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	return r.list(ctx, builder)
}

func (r *InvestmentsRepository) findOne(ctx context.Context, where sq.Eq) (*entities.CompanyInvestment, error) {
	query, args, err := psql.Select(investmentColumns...).
		From("company_investments").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build investment query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investment: %w", err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[entities.CompanyInvestment])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect investment row: %w", err)
	}
	return &inv, nil
}

func (r *InvestmentsRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]entities.CompanyInvestment, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build investments query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}

	investments, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.CompanyInvestment])
	if err != nil {
		r.logger.Error("failed to collect investment rows", "error", err)
		return nil, fmt.Errorf("failed to collect investment rows: %w", err)
	}
	return investments, nil
}
