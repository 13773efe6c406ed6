package app

import (
	"context"
	nativeerrors "errors"
	"fmt"
	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lefinal/memorama/embedded"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
)

// dbVersion is used for determining the current database version. This is
// saved in a special table when properly set up. If the version does not
// exist, one can know that the database needs to be initialized. If it is and
// the latest version is greater, migrations can be performed.
type dbVersion string

// dbVersionZero is used when no database version could be found, and therefore
// we conclude that it has not been initialized yet.
const dbVersionZero dbVersion = "0"

// dbVersionKey is the key of the database version in the key-value table.
const dbVersionKey = "db-version"

// keyValueTable is the table for internal key-value data.
const keyValueTable = "memorama"

// pgErrCodeUndefinedTable is the PostgreSQL error code for missing relations.
const pgErrCodeUndefinedTable = "42P01"

// dbMigration is used for performing and checking database migrations. They
// lie in dbMigrations which is an ordered list of versions with their
// migrations.
type dbMigration struct {
	version dbVersion
	up      string
}

// dbMigrations are the sql migrations in an ordered (!) list. The order is used
// to determine which migrations need to be done when the current database
// version is not the latest one.
var dbMigrations = []dbMigration{
	{
		version: "1.0",
		up:      embedded.DBMigration1x0,
	},
}

var dialect = goqu.Dialect("postgres")

// connectDB connects to the database with the given connection string, performs
// migrations and returns the connection pool.
func connectDB(ctx context.Context, logger *zap.Logger, connectionStr string, maxDBConnections int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connectionStr)
	if err != nil {
		return nil, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse db connection string",
		}
	}
	poolConfig.MaxConns = maxDBConnections
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Err:     err,
			Message: "connect to database",
		}
	}
	err = testDBConnection(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "test db connection", nil)
	}
	err = performDBMigrations(ctx, logger, pool)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "perform db migrations", nil)
	}
	return pool, nil
}

// testDBConnection tests the database connection by simply querying 1.
func testDBConnection(ctx context.Context, db *pgxpool.Pool) error {
	q, _, err := goqu.Select(goqu.V(1)).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, nil)
	}
	var got int
	err = db.QueryRow(ctx, q).Scan(&got)
	if err != nil {
		return errors.NewScanDBRowError(err, "test query failed", q)
	}
	if got != 1 {
		return errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Message: fmt.Sprintf("test db connection: expected 1 as result but got %d", got),
			Details: errors.Details{"got": got},
		}
	}
	return nil
}

// performDBMigrations performs all needed database migrations according to the
// (un)set database version. Migrations and the version update happen in a
// single transaction.
func performDBMigrations(ctx context.Context, logger *zap.Logger, db *pgxpool.Pool) error {
	currentVersion, err := retrieveCurrentDBVersion(ctx, db)
	if err != nil {
		return errors.Wrap(err, "retrieve current db version", nil)
	}
	logger.Info(fmt.Sprintf("current database version: %v", currentVersion))
	migrationsToDo, err := getDBMigrationsToDo(currentVersion)
	if err != nil {
		return errors.Wrap(err, "get db migrations to do", nil)
	}
	if len(migrationsToDo) == 0 {
		return nil
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		return errors.NewDBTxBeginError(err)
	}
	defer rollbackTx(ctx, logger, tx, "rollback on error")
	var newVersion dbVersion
	for i, migration := range migrationsToDo {
		logger.Info(fmt.Sprintf("performing database migration %d/%d...", i+1, len(migrationsToDo)),
			zap.Any("target_version", migration.version))
		_, err = tx.Exec(ctx, migration.up)
		if err != nil {
			return errors.NewExecQueryError(err, fmt.Sprintf("migrate to %v", migration.version), migration.up)
		}
		newVersion = migration.version
	}
	// Update database version.
	var updateDBVersionQuery string
	if currentVersion == dbVersionZero {
		updateDBVersionQuery, _, err = dialect.Insert(goqu.T(keyValueTable)).Rows(goqu.Record{
			"key":   dbVersionKey,
			"value": newVersion,
		}).ToSQL()
	} else {
		updateDBVersionQuery, _, err = dialect.Update(goqu.T(keyValueTable)).
			Set(goqu.Record{"value": newVersion}).
			Where(goqu.C("key").Eq(dbVersionKey)).ToSQL()
	}
	if err != nil {
		return errors.NewQueryToSQLError(err, nil)
	}
	_, err = tx.Exec(ctx, updateDBVersionQuery)
	if err != nil {
		return errors.NewExecQueryError(err, "update database version", updateDBVersionQuery)
	}
	err = tx.Commit(ctx)
	if err != nil {
		return errors.NewDBTxCommitError(err)
	}
	logger.Info(fmt.Sprintf("database migrated to version %v", newVersion))
	return nil
}

// getDBMigrationsToDo retrieves all database migrations that need to be
// performed. If the version is dbVersionZero, it will return all migrations. If
// the version is unknown, an error will be returned.
func getDBMigrationsToDo(currentVersion dbVersion) ([]dbMigration, error) {
	return migrationsAfter(dbMigrations, currentVersion)
}

// migrationsAfter returns all migrations from the given ordered list that
// follow the given version.
func migrationsAfter(migrations []dbMigration, currentVersion dbVersion) ([]dbMigration, error) {
	if currentVersion == dbVersionZero {
		return migrations, nil
	}
	found := false
	migrationsToDo := make([]dbMigration, 0)
	for _, migration := range migrations {
		if migration.version == currentVersion {
			if found {
				return nil, errors.NewInternalError(fmt.Sprintf("duplicate database version %v in available migrations", currentVersion),
					errors.Details{"version": currentVersion})
			}
			found = true
			// Everything up to this one was already performed.
			continue
		}
		if found {
			migrationsToDo = append(migrationsToDo, migration)
		}
	}
	if !found {
		return nil, errors.NewResourceNotFoundError(fmt.Sprintf("no database version found matching %v", currentVersion),
			errors.Details{"version": currentVersion})
	}
	return migrationsToDo, nil
}

// retrieveCurrentDBVersion retrieves the current dbVersion from the given
// database. If no version could be found, dbVersionZero will be returned.
func retrieveCurrentDBVersion(ctx context.Context, db *pgxpool.Pool) (dbVersion, error) {
	q, _, err := dialect.From(goqu.T(keyValueTable)).
		Select(goqu.C("value")).
		Where(goqu.C("key").Eq(dbVersionKey)).ToSQL()
	if err != nil {
		return "", errors.NewQueryToSQLError(err, nil)
	}
	var version string
	err = db.QueryRow(ctx, q).Scan(&version)
	if err != nil {
		if isNotInitialized(err) {
			return dbVersionZero, nil
		}
		return "", errors.NewScanDBRowError(err, "retrieve db version", q)
	}
	return dbVersion(version), nil
}

// isNotInitialized checks whether the given error from querying the database
// version means that the database was not set up yet.
func isNotInitialized(err error) bool {
	if nativeerrors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return nativeerrors.As(err, &pgErr) && pgErr.Code == pgErrCodeUndefinedTable
}

// rollbackTx rolls back the given pgx.Tx. Errors are logged with the given
// reason. Rolling back an already committed transaction is a no-op.
func rollbackTx(ctx context.Context, logger *zap.Logger, tx pgx.Tx, reason string) {
	err := tx.Rollback(ctx)
	if err != nil && !nativeerrors.Is(err, pgx.ErrTxClosed) {
		errors.Log(logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindDB,
			Message: "rollback tx",
			Err:     err,
			Details: errors.Details{"rollback_reason": reason},
		})
	}
}
