package store

import (
	"context"
	nativeerrors "errors"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
)

// pgErrCodeUniqueViolation is the PostgreSQL error code for violated unique
// constraints.
const pgErrCodeUniqueViolation = "23505"

// querier is the part of pgxpool.Pool used by Mall.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Mall implements all database operations.
type Mall struct {
	logger *zap.Logger
	// db is the actual database to perform operations in.
	db querier
	// dialect is the SQL dialect for building queries.
	dialect goqu.DialectWrapper
}

// NewMall creates a new Mall using the given database. It uses the PostgreSQL
// dialect for queries.
func NewMall(logger *zap.Logger, db *pgxpool.Pool) *Mall {
	return &Mall{
		logger:  logger,
		db:      db,
		dialect: goqu.Dialect("postgres"),
	}
}

// rollbackTx rolls back the given pgx.Tx. The encapsulation is needed because
// rolling back might return an error which does not need to be returned but
// definitely logged with the original reason the rollback was performed.
func (m *Mall) rollbackTx(ctx context.Context, tx pgx.Tx, reason string) {
	err := tx.Rollback(ctx)
	if err != nil && !nativeerrors.Is(err, pgx.ErrTxClosed) {
		errors.Log(m.logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindDB,
			Message: "rollback tx",
			Err:     err,
			Details: errors.Details{"rollback_reason": reason},
		})
	}
}

// isUniqueViolation checks whether the given error is caused by a violated
// unique constraint.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return nativeerrors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation
}
