package repository

import (
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"

	"github.com/sand/preipo-invest/backend/pkg/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// base carries what every repository needs: a logger and the ctx-aware connection getter.
type base struct {
	logger *slog.Logger
	db     tx.DBGetter
}

func newBase(logger *slog.Logger, pg *database.Postgres) base {
	return base{logger: logger, db: pg.DBGetter}
}
