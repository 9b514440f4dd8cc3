package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_TransactorSharesPool(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pg, err := New(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), url, MaxPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	_, err = pg.Pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS transactor_check (id INT PRIMARY KEY)`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pg.Pool.Exec(context.Background(), `DROP TABLE IF EXISTS transactor_check`)
	})

	errAbort := errors.New("abort")
	err = pg.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := pg.DBGetter(ctx).Exec(ctx, `INSERT INTO transactor_check (id) VALUES (1)`); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	err = pg.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := pg.DBGetter(ctx).Exec(ctx, `INSERT INTO transactor_check (id) VALUES (2)`)
		return err
	})
	require.NoError(t, err)

	var ids []int
	rows, err := pg.Pool.Query(ctx, `SELECT id FROM transactor_check ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{2}, ids, "rolled back insert must not be visible")
}
