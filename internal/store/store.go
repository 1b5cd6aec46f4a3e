package store

import (
	"context"
	"embed"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	dateLayout = "2006-01-02"
)

// ErrUnsupportedDriver is returned by Open for drivers other than sqlite
// and postgres.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store persists teams and generated schedules.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.Wrapf(ErrUnsupportedDriver, "%q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if driver == DriverSQLite {
		// One connection serialises writers and keeps the pragma in effect.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enabling foreign keys")
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connecting to %s database", driver)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(driver); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(driver string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "loading migrations")
	}

	var target database.Driver
	switch driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	}
	if err != nil {
		return errors.Wrap(err, "preparing migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return errors.Wrap(err, "creating migrator")
	}
	// The sqlite driver closes the shared *sql.DB on Close; the postgres
	// driver only releases the connection it reserved.
	if driver == DriverPostgres {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "applying migrations")
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "reading schema version")
	}
	s.logger.Debug("schema ready", zap.String("driver", driver), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func namedExec(ctx context.Context, tx *sqlx.Tx, query string, arg any) error {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return errors.Wrap(err, "bind query")
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(q), args...)
	return err
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "stored date %q", s)
	}
	return t, nil
}
