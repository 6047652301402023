// Package ledger persists one row per simulation run to a local SQLite
// file, so repeated runs of cmd/llcsim can be compared after the fact
// without re-parsing log output.
package ledger

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   DATETIME NOT NULL,
	policy       TEXT NOT NULL,
	cfgname      TEXT NOT NULL,
	config_json  TEXT NOT NULL,
	ways_quota0  INTEGER NOT NULL,
	ways_quota1  INTEGER NOT NULL,
	total_dead0  INTEGER NOT NULL,
	total_dead1  INTEGER NOT NULL,
	total_hit0   INTEGER NOT NULL,
	total_hit1   INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL DEFAULT '{}',
	state_hash    TEXT NOT NULL DEFAULT ''
);
`

// Run is one completed simulation run's summary, the unit RecordRun writes.
type Run struct {
	RunID        string
	StartedAt    time.Time
	Policy       string
	Cfgname      string
	ConfigJSON   string
	WaysQuota    [2]int
	TotalDead    [2]uint64
	TotalHit     [2]uint64
	SnapshotJSON string
	StateHash    string
}

// Ledger wraps a SQLite-backed runs table.
type Ledger struct {
	db *sql.DB
}

// Open creates or attaches to the SQLite file at path and ensures the runs
// table exists.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger %q", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "creating ledger schema in %q", path)
	}
	return &Ledger{db: db}, nil
}

// RecordRun inserts one completed run's summary.
func (l *Ledger) RecordRun(r Run) error {
	_, err := l.db.Exec(
		`INSERT INTO runs (run_id, started_at, policy, cfgname, config_json, ways_quota0, ways_quota1, total_dead0, total_dead1, total_hit0, total_hit1, snapshot_json, state_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt, r.Policy, r.Cfgname, r.ConfigJSON,
		r.WaysQuota[0], r.WaysQuota[1],
		r.TotalDead[0], r.TotalDead[1],
		r.TotalHit[0], r.TotalHit[1],
		r.SnapshotJSON, r.StateHash,
	)
	if err != nil {
		return errors.Wrapf(err, "recording run %s", r.RunID)
	}
	return nil
}

const selectColumns = `run_id, started_at, policy, cfgname, config_json, ways_quota0, ways_quota1, total_dead0, total_dead1, total_hit0, total_hit1, snapshot_json, state_hash`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.RunID, &r.StartedAt, &r.Policy, &r.Cfgname, &r.ConfigJSON,
		&r.WaysQuota[0], &r.WaysQuota[1], &r.TotalDead[0], &r.TotalDead[1], &r.TotalHit[0], &r.TotalHit[1],
		&r.SnapshotJSON, &r.StateHash)
	return r, err
}

// Recent returns the last n runs, most recent first.
func (l *Ledger) Recent(n int) ([]Run, error) {
	rows, err := l.db.Query(
		`SELECT `+selectColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning run row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ByRunID looks up a single run by its primary key.
func (l *Ledger) ByRunID(id string) (Run, error) {
	row := l.db.QueryRow(`SELECT `+selectColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, errors.Wrapf(err, "looking up run %s", id)
	}
	return r, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
