package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sand/preipo-invest/backend/pkg/database"
)

type SettingsRepository struct {
	base
}

func NewSettingsRepository(logger *slog.Logger, pg *database.Postgres) *SettingsRepository {
	return &SettingsRepository{base: newBase(logger, pg)}
}

// All returns every platform setting as raw strings.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db(ctx).Query(ctx, "SELECT key, value FROM platform_settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query platform settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan platform setting: %w", err)
		}
		values[key] = value
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read platform settings: %w", err)
	}
	return values, nil
}
