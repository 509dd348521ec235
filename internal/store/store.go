// Package store persists items, exposure counters, live sessions, examinee
// profiles, archived results and LLM events in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
	seq     *sequenceCounter
	now     func() time.Time
}

// Open connects to dsn and runs the schema migration. A postgres:// or
// postgresql:// DSN selects Postgres; anything else is a SQLite path or URI.
func Open(dsn string) (*Store, error) {
	driverName, dialectName := "sqlite", dialect.SQLite
	if isPostgres(dsn) {
		driverName, dialectName = "pgx", dialect.Postgres
	} else {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	drv := entsql.OpenDB(dialectName, db)
	ctx := context.Background()
	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if err := migrate.Create(ctx, tables...); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	s := &Store{db: db, drv: drv, dialect: dialectName, now: time.Now}
	s.seq, err = newSequenceCounter(ctx, s)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// SetClock replaces the time source; used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// build returns a statement builder for the store's dialect.
func (s *Store) build() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// ItemRepo returns the item repository.
func (s *Store) ItemRepo() *ItemRepo {
	return &ItemRepo{s: s}
}

// ExposureRepo returns an exposure ledger counting in windows of length
// window (exposure.DefaultWindow if zero).
func (s *Store) ExposureRepo(window time.Duration) *ExposureRepo {
	return newExposureRepo(s, window)
}

// SessionRepo returns a session store whose entries expire after ttl.
func (s *Store) SessionRepo(ttl time.Duration) *SessionRepo {
	return &SessionRepo{s: s, ttl: ttl}
}

// ProfileRepo returns the examinee profile repository.
func (s *Store) ProfileRepo() *ProfileRepo {
	return &ProfileRepo{s: s}
}

// ResultRepo returns the archived result repository.
func (s *Store) ResultRepo() *ResultRepo {
	return &ResultRepo{s: s}
}

// EventRepo returns the LLM event repository.
func (s *Store) EventRepo() *EventRepo {
	return &EventRepo{s: s}
}

// ResetTarget names what Reset clears.
type ResetTarget string

const (
	ResetExposure ResetTarget = "exposure"
	ResetSessions ResetTarget = "sessions"
)

// Reset deletes exposure counters or live sessions and returns the number
// of rows removed.
func (s *Store) Reset(ctx context.Context, target ResetTarget) (int64, error) {
	var table string
	switch target {
	case ResetExposure:
		table = exposuresTable.Name
	case ResetSessions:
		table = sessionsTable.Name
	default:
		return 0, fmt.Errorf("unknown reset target %q", target)
	}
	query, args := s.build().Delete(table).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset %s: %w", target, err)
	}
	return res.RowsAffected()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// sqlitePragmas are applied to every pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// sqliteDSN appends the connection pragmas to a SQLite path or URI.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ADAPTEST_DB environment variable
// 2. $XDG_DATA_HOME/adaptest/adaptest.db
// 3. ~/.local/share/adaptest/adaptest.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ADAPTEST_DB"); p != "" {
		if isPostgres(p) {
			return p, nil
		}
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "adaptest", "adaptest.db")
	return p, ensureDir(p)
}

// ResolveDSN returns dsn ready for Open: empty selects DefaultDBPath and a
// SQLite path gets its parent directory created.
func ResolveDSN(dsn string) (string, error) {
	switch {
	case dsn == "":
		return DefaultDBPath()
	case isPostgres(dsn), strings.HasPrefix(dsn, "file:"):
		return dsn, nil
	}
	return dsn, ensureDir(dsn)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
