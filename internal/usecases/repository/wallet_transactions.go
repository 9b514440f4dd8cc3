package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

// WalletTransactionsRepository is the append-only ledger table. There is no update or delete.
type WalletTransactionsRepository struct {
	base
}

func NewWalletTransactionsRepository(logger *slog.Logger, pg *database.Postgres) *WalletTransactionsRepository {
	return &WalletTransactionsRepository{base: newBase(logger, pg)}
}

// Insert appends an entry and fills in its id and creation time.
func (r *WalletTransactionsRepository) Insert(ctx context.Context, entry *entities.WalletTransaction) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO wallet_transactions
             (wallet_id, type, amount, balance_before, balance_after, reference_type, reference_id, description)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, created_at`,
		entry.WalletID, entry.Type, entry.Amount, entry.BalanceBefore, entry.BalanceAfter,
		entry.ReferenceType, entry.ReferenceID, entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry for wallet %d: %w", entry.WalletID, err)
	}
	return nil
}

// ListByWallet returns the newest entries first. A zero limit means no limit.
func (r *WalletTransactionsRepository) ListByWallet(ctx context.Context, walletID int64, limit uint64) ([]entities.WalletTransaction, error) {
	builder := psql.Select(transactionColumns...).
		From("wallet_transactions").
		Where("wallet_id = ?", walletID).
		OrderBy("id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	return r.list(ctx, builder.ToSql)
}

// ListByWalletAscending returns every entry in commit order, for reconciliation.
func (r *WalletTransactionsRepository) ListByWalletAscending(ctx context.Context, walletID int64) ([]entities.WalletTransaction, error) {
	builder := psql.Select(transactionColumns...).
		From("wallet_transactions").
		Where("wallet_id = ?", walletID).
		OrderBy("id ASC")
	return r.list(ctx, builder.ToSql)
}

func (r *WalletTransactionsRepository) ExistsByReference(ctx context.Context, walletID int64, referenceType, referenceID string) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wallet_transactions
                       WHERE wallet_id = $1 AND reference_type = $2 AND reference_id = $3)`,
		walletID, referenceType, referenceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger reference: %w", err)
	}
	return exists, nil
}

var transactionColumns = []string{
	"id", "wallet_id", "type", "amount", "balance_before", "balance_after",
	"reference_type", "reference_id", "description", "created_at",
}

func (r *WalletTransactionsRepository) list(ctx context.Context, build func() (string, []any, error)) ([]entities.WalletTransaction, error) {
	query, args, err := build()
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.WalletTransaction])
	if err != nil {
		r.logger.Error("failed to collect ledger rows", "error", err)
		return nil, fmt.Errorf("failed to collect ledger rows: %w", err)
	}
	return entries, nil
}
