// Package persistence stores runs, snapshots, events, and per-tick stats
// in SQL. SQLite backs the single-binary default; Postgres backs shared
// deployments. Queries are written with ? placeholders and rebound per
// dialect.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/engine"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// Supported dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// ErrNoSnapshot reports that a run has no saved snapshot to resume from.
var ErrNoSnapshot = errors.New("no snapshot for run")

func init() {
	// modernc registers its driver as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB wraps a SQL connection for run persistence. It satisfies engine.Store.
type DB struct {
	conn    *sqlx.DB
	dialect string
}

var _ engine.Store = (*DB)(nil)

// Open connects to the database named by the runtime settings and ensures
// the schema exists. For SQLite the DSN is derived from DBPath; for
// Postgres DBDSN is used as given.
func Open(rt config.Runtime) (*DB, error) {
	switch rt.DBDialect {
	case DialectSQLite, "":
		return open(DialectSQLite, "sqlite", sqliteDSN(rt.DBPath))
	case DialectPostgres:
		return open(DialectPostgres, "pgx", rt.DBDSN)
	default:
		return nil, fmt.Errorf("unknown db dialect %q", rt.DBDialect)
	}
}

// OpenSQLite opens a SQLite store at path directly.
func OpenSQLite(path string) (*DB, error) {
	return open(DialectSQLite, "sqlite", sqliteDSN(path))
}

func open(dialect, driver, dsn string) (*DB, error) {
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "babylon.db"
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	scenario TEXT NOT NULL,
	config_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id TEXT NOT NULL,
	tick INTEGER NOT NULL,
	graph_json TEXT NOT NULL,
	run_state_json TEXT NOT NULL,
	PRIMARY KEY (run_id, tick)
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	tick INTEGER NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	payload_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stats (
	run_id TEXT NOT NULL,
	tick INTEGER NOT NULL,
	pool_ratio REAL NOT NULL,
	aggregate_tension REAL NOT NULL,
	wage_delta REAL NOT NULL,
	total_wealth REAL NOT NULL,
	active_entities INTEGER NOT NULL,
	decision TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, tick)
);

CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	scenario TEXT NOT NULL,
	config_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id TEXT NOT NULL,
	tick BIGINT NOT NULL,
	graph_json TEXT NOT NULL,
	run_state_json TEXT NOT NULL,
	PRIMARY KEY (run_id, tick)
);

CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	tick BIGINT NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	payload_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stats (
	run_id TEXT NOT NULL,
	tick BIGINT NOT NULL,
	pool_ratio DOUBLE PRECISION NOT NULL,
	aggregate_tension DOUBLE PRECISION NOT NULL,
	wage_delta DOUBLE PRECISION NOT NULL,
	total_wealth DOUBLE PRECISION NOT NULL,
	active_entities INTEGER NOT NULL,
	decision TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, tick)
);

CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
`

func (db *DB) migrate() error {
	schema := sqliteSchema
	if db.dialect == DialectPostgres {
		schema = postgresSchema
	}
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun records a new run with its scenario name and the full config
// it was started under.
func (db *DB) CreateRun(runID, scenario string, cfg *config.Config) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = db.conn.Exec(db.conn.Rebind(
		"INSERT INTO runs (id, created_at, scenario, config_json) VALUES (?, ?, ?, ?)"),
		runID, time.Now().UTC(), scenario, string(cfgJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// SaveSnapshot upserts the world graph and run state at the snapshot's tick.
func (db *DB) SaveSnapshot(runID string, snap world.Snapshot, run *engine.RunState) error {
	graphJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	q := "INSERT OR REPLACE INTO snapshots (run_id, tick, graph_json, run_state_json) VALUES (?, ?, ?, ?)"
	if db.dialect == DialectPostgres {
		q = `INSERT INTO snapshots (run_id, tick, graph_json, run_state_json) VALUES (?, ?, ?, ?)
			ON CONFLICT (run_id, tick) DO UPDATE
			SET graph_json = EXCLUDED.graph_json, run_state_json = EXCLUDED.run_state_json`
	}
	if _, err := db.conn.Exec(db.conn.Rebind(q), runID, snap.Tick, string(graphJSON), string(runJSON)); err != nil {
		return fmt.Errorf("insert snapshot tick %d: %w", snap.Tick, err)
	}
	return nil
}

// SaveEvents appends a tick's event batch.
func (db *DB) SaveEvents(runID string, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(db.conn.Rebind(
		"INSERT INTO events (run_id, tick, kind, message, payload_json) VALUES (?, ?, ?, ?, ?)"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range evs {
		payloadJSON, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for %s: %w", ev.Kind, err)
		}
		if _, err := stmt.Exec(runID, ev.Tick, string(ev.Kind), ev.Message, string(payloadJSON)); err != nil {
			return fmt.Errorf("insert event %s at tick %d: %w", ev.Kind, ev.Tick, err)
		}
	}
	return tx.Commit()
}

// SaveStats upserts one tick's summary row.
func (db *DB) SaveStats(runID string, summary engine.TickSummary) error {
	q := `INSERT OR REPLACE INTO stats
		(run_id, tick, pool_ratio, aggregate_tension, wage_delta, total_wealth, active_entities, decision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if db.dialect == DialectPostgres {
		q = `INSERT INTO stats
			(run_id, tick, pool_ratio, aggregate_tension, wage_delta, total_wealth, active_entities, decision)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id, tick) DO UPDATE SET
			pool_ratio = EXCLUDED.pool_ratio, aggregate_tension = EXCLUDED.aggregate_tension,
			wage_delta = EXCLUDED.wage_delta, total_wealth = EXCLUDED.total_wealth,
			active_entities = EXCLUDED.active_entities, decision = EXCLUDED.decision`
	}
	_, err := db.conn.Exec(db.conn.Rebind(q),
		runID, summary.Tick, summary.PoolRatio, summary.AggregateTension,
		summary.WageDelta, summary.TotalWealth, summary.ActiveEntities, summary.Decision,
	)
	if err != nil {
		return fmt.Errorf("insert stats tick %d: %w", summary.Tick, err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot of a run, decoded.
func (db *DB) LatestSnapshot(runID string) (world.Snapshot, *engine.RunState, error) {
	return db.snapshotWhere(
		"SELECT graph_json, run_state_json FROM snapshots WHERE run_id = ? ORDER BY tick DESC LIMIT 1",
		runID)
}

// SnapshotAt returns the snapshot of a run at an exact tick.
func (db *DB) SnapshotAt(runID string, tick uint64) (world.Snapshot, *engine.RunState, error) {
	return db.snapshotWhere(
		"SELECT graph_json, run_state_json FROM snapshots WHERE run_id = ? AND tick = ?",
		runID, tick)
}

func (db *DB) snapshotWhere(q string, args ...any) (world.Snapshot, *engine.RunState, error) {
	var row struct {
		GraphJSON    string `db:"graph_json"`
		RunStateJSON string `db:"run_state_json"`
	}
	err := db.conn.Get(&row, db.conn.Rebind(q), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return world.Snapshot{}, nil, ErrNoSnapshot
	}
	if err != nil {
		return world.Snapshot{}, nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap world.Snapshot
	if err := json.Unmarshal([]byte(row.GraphJSON), &snap); err != nil {
		return world.Snapshot{}, nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	run := &engine.RunState{}
	if err := json.Unmarshal([]byte(row.RunStateJSON), run); err != nil {
		return world.Snapshot{}, nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	return snap, run, nil
}

// LatestRunID returns the most recently created run's id, or ErrNoSnapshot
// when the store holds no runs yet.
func (db *DB) LatestRunID() (string, error) {
	var id string
	err := db.conn.Get(&id, "SELECT id FROM runs ORDER BY created_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// StoredEvent is one persisted event row.
type StoredEvent struct {
	Tick    uint64          `db:"tick" json:"tick"`
	Kind    string          `db:"kind" json:"kind"`
	Message string          `db:"message" json:"message"`
	Payload json.RawMessage `db:"payload_json" json:"payload,omitempty"`
}

// RecentEvents returns up to limit events of a run, most recent first.
func (db *DB) RecentEvents(runID string, limit int) ([]StoredEvent, error) {
	var rows []StoredEvent
	err := db.conn.Select(&rows, db.conn.Rebind(
		"SELECT tick, kind, message, payload_json FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?"),
		runID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return rows, nil
}

// StatRow is one persisted per-tick summary.
type StatRow struct {
	Tick             uint64  `db:"tick" json:"tick"`
	PoolRatio        float64 `db:"pool_ratio" json:"pool_ratio"`
	AggregateTension float64 `db:"aggregate_tension" json:"aggregate_tension"`
	WageDelta        float64 `db:"wage_delta" json:"wage_delta"`
	TotalWealth      float64 `db:"total_wealth" json:"total_wealth"`
	ActiveEntities   int     `db:"active_entities" json:"active_entities"`
	Decision         string  `db:"decision" json:"decision,omitempty"`
}

// StatsHistory returns the last limit tick summaries of a run in
// chronological order.
func (db *DB) StatsHistory(runID string, limit int) ([]StatRow, error) {
	var rows []StatRow
	err := db.conn.Select(&rows, db.conn.Rebind(
		`SELECT tick, pool_ratio, aggregate_tension, wage_delta, total_wealth, active_entities, decision
		FROM stats WHERE run_id = ? ORDER BY tick DESC LIMIT ?`),
		runID, limit)
	if err != nil {
		return nil, fmt.Errorf("stats history: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
