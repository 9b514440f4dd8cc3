package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sand/preipo-invest/backend/internal/entities"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

const walletColumns = `id, user_id, available_balance, allocated_balance, pending_balance,
              currency, status, closed_at, created_at, updated_at`

// WalletsRepository stores one wallet per user.
type WalletsRepository struct {
	base
}

func NewWalletsRepository(logger *slog.Logger, pg *database.Postgres) *WalletsRepository {
	return &WalletsRepository{base: newBase(logger, pg)}
}

// FindByUser returns nil when the user has no wallet yet.
func (r *WalletsRepository) FindByUser(ctx context.Context, userID int64) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + `
              FROM wallets
              WHERE user_id = $1`

	return r.queryOne(ctx, query, userID)
}

// GetOrCreate returns the user's wallet, creating an empty one on first access.
func (r *WalletsRepository) GetOrCreate(ctx context.Context, userID int64, currency string) (*entities.Wallet, error) {
	if err := r.ensure(ctx, userID, currency); err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

// LockForUpdate must run inside a transaction; the lock is released on commit or rollback.
func (r *WalletsRepository) LockForUpdate(ctx context.Context, userID int64, currency string) (*entities.Wallet, error) {
	if err := r.ensure(ctx, userID, currency); err != nil {
		return nil, err
	}

	query := `SELECT ` + walletColumns + `
              FROM wallets
              WHERE user_id = $1
              FOR UPDATE`

	wallet, err := r.queryOne(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet for user %d vanished after creation", userID)
	}
	return wallet, nil
}

func (r *WalletsRepository) UpdateAvailableBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error {
	tag, err := r.db(ctx).Exec(ctx,
		"UPDATE wallets SET available_balance = $2, updated_at = NOW() WHERE id = $1",
		walletID, balance)
	if err != nil {
		return fmt.Errorf("failed to update wallet %d balance: %w", walletID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("wallet %d not found", walletID)
	}
	return nil
}

func (r *WalletsRepository) MarkClosed(ctx context.Context, walletID int64, at time.Time) error {
	_, err := r.db(ctx).Exec(ctx,
		"UPDATE wallets SET status = $2, closed_at = $3, updated_at = $3 WHERE id = $1",
		walletID, entities.WalletStatusClosed, at)
	if err != nil {
		return fmt.Errorf("failed to close wallet %d: %w", walletID, err)
	}
	return nil
}

func (r *WalletsRepository) ensure(ctx context.Context, userID int64, currency string) error {
	tag, err := r.db(ctx).Exec(ctx,
		"INSERT INTO wallets (user_id, currency) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING",
		userID, currency)
	if err != nil {
		return fmt.Errorf("failed to create wallet for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 1 {
		r.logger.Info("Wallet created", "user_id", userID, "currency", currency)
	}
	return nil
}

func (r *WalletsRepository) queryOne(ctx context.Context, query string, args ...any) (*entities.Wallet, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	wallet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[entities.Wallet])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect wallet row: %w", err)
	}
	return &wallet, nil
}
