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

type UsersRepository struct {
	base
}

func NewUsersRepository(logger *slog.Logger, pg *database.Postgres) *UsersRepository {
	return &UsersRepository{base: newBase(logger, pg)}
}

func (r *UsersRepository) FindByID(ctx context.Context, id int64) (*entities.User, error) {
	var user entities.User
	err := r.db(ctx).QueryRow(ctx,
		"SELECT id, email, kyc_status FROM users WHERE id = $1", id,
	).Scan(&user.ID, &user.Email, &user.KYCStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return &user, nil
}
