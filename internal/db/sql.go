package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/Aryiadm/physio-threat-engine/internal/metrics"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// migrations use SQL accepted by both SQLite and PostgreSQL.
// Version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS health_records (
    user_id     TEXT NOT NULL,
    date        TEXT NOT NULL,
    sleep_hours DOUBLE PRECISION,
    resting_hr  DOUBLE PRECISION,
    hrv         DOUBLE PRECISION,
    steps       DOUBLE PRECISION,
    calories    DOUBLE PRECISION,
    weight      DOUBLE PRECISION,
    PRIMARY KEY (user_id, date)
);`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS simulation_runs (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    mode        TEXT NOT NULL,
    fraction    DOUBLE PRECISION NOT NULL,
    seed        BIGINT NOT NULL,
    injected    INTEGER NOT NULL DEFAULT 0,
    caught      INTEGER NOT NULL DEFAULT 0,
    recall      DOUBLE PRECISION NOT NULL DEFAULT 0,
    detected    INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_simulation_runs_user ON simulation_runs(user_id, created_at);`,
	},
}

// modernc registers as "sqlite", which sqlx does not know.
func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// timeLayout is fixed width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type sqlStore struct {
	db *sqlx.DB
}

// Open connects to the configured backend: "sqlite" (dsn is a file path or
// ":memory:") or "postgres" (dsn is a connection URL).
func Open(kind, dsn string) (Store, error) {
	switch kind {
	case "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(dsn)
	}
	return nil, fmt.Errorf("unsupported database type %q", kind)
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return newStore(db)
}

// NewPostgresStore connects to PostgreSQL and runs all pending migrations.
func NewPostgresStore(url string) (Store, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(db)
}

func newStore(db *sqlx.DB) (Store, error) {
	s := &sqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqlStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.Get(&count, s.db.Rebind(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`), m.version); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		_, err := s.db.Exec(s.db.Rebind(`INSERT INTO schema_versions(version, applied_at) VALUES(?, ?)`),
			m.version, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Records ──────────────────────────────────────────────────────────────────

const upsertRecord = `
INSERT INTO health_records (user_id, date, sleep_hours, resting_hr, hrv, steps, calories, weight)
VALUES (:user_id, :date, :sleep_hours, :resting_hr, :hrv, :steps, :calories, :weight)
ON CONFLICT (user_id, date) DO UPDATE SET
    sleep_hours = excluded.sleep_hours,
    resting_hr  = excluded.resting_hr,
    hrv         = excluded.hrv,
    steps       = excluded.steps,
    calories    = excluded.calories,
    weight      = excluded.weight`

func (s *sqlStore) UpsertRecords(ctx context.Context, records []models.HealthRecord) (err error) {
	defer func() { metrics.StoreOperationsTotal.WithLabelValues("upsert_records", metrics.Status(err)).Inc() }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range records {
		if _, err = tx.NamedExecContext(ctx, upsertRecord, &records[i]); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", records[i].UserID, records[i].Date, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const recordColumns = `user_id, date, sleep_hours, resting_hr, hrv, steps, calories, weight`

func (s *sqlStore) ListRecords(ctx context.Context, userID string) ([]models.HealthRecord, error) {
	out := []models.HealthRecord{}
	err := s.db.SelectContext(ctx, &out,
		s.db.Rebind(`SELECT `+recordColumns+` FROM health_records WHERE user_id = ? ORDER BY date ASC`), userID)
	metrics.StoreOperationsTotal.WithLabelValues("list_records", metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (s *sqlStore) GetRecord(ctx context.Context, userID, date string) (*models.HealthRecord, error) {
	var rec models.HealthRecord
	err := s.db.GetContext(ctx, &rec,
		s.db.Rebind(`SELECT `+recordColumns+` FROM health_records WHERE user_id = ? AND date = ?`), userID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

func (s *sqlStore) ListUsers(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := s.db.SelectContext(ctx, &out, `SELECT DISTINCT user_id FROM health_records ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// ─── Simulation runs ──────────────────────────────────────────────────────────

type runRow struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Mode      string  `db:"mode"`
	Fraction  float64 `db:"fraction"`
	Seed      int64   `db:"seed"`
	Injected  int     `db:"injected"`
	Caught    int     `db:"caught"`
	Recall    float64 `db:"recall"`
	Detected  int     `db:"detected"`
	CreatedAt string  `db:"created_at"`
}

func (s *sqlStore) SaveSimulationRun(ctx context.Context, run *models.SimulationRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	row := runRow{
		ID:        run.ID,
		UserID:    run.UserID,
		Mode:      run.Mode,
		Fraction:  run.Fraction,
		Seed:      run.Seed,
		Injected:  run.Injected,
		Caught:    run.Caught,
		Recall:    run.Recall,
		Detected:  run.Detected,
		CreatedAt: run.CreatedAt.UTC().Format(timeLayout),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO simulation_runs (id, user_id, mode, fraction, seed, injected, caught, recall, detected, created_at)
		VALUES (:id, :user_id, :mode, :fraction, :seed, :injected, :caught, :recall, :detected, :created_at)`, row)
	metrics.StoreOperationsTotal.WithLabelValues("save_simulation_run", metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("save simulation run: %w", err)
	}
	return nil
}

func (s *sqlStore) ListSimulationRuns(ctx context.Context, userID string, limit int) ([]*models.SimulationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, user_id, mode, fraction, seed, injected, caught, recall, detected, created_at
		FROM simulation_runs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list simulation runs: %w", err)
	}

	out := make([]*models.SimulationRun, 0, len(rows))
	for _, r := range rows {
		created, err := parseTime(r.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &models.SimulationRun{
			ID:        r.ID,
			UserID:    r.UserID,
			Mode:      r.Mode,
			Fraction:  r.Fraction,
			Seed:      r.Seed,
			Injected:  r.Injected,
			Caught:    r.Caught,
			Recall:    r.Recall,
			Detected:  r.Detected,
			CreatedAt: created,
		})
	}
	return out, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// parseTime handles the timestamp layouts written by either backend.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
