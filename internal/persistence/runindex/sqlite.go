// Package runindex keeps a local sqlite catalog of batch simulation runs.
package runindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"empires-server/internal/empire"
	"empires-server/internal/simulation"

	_ "modernc.org/sqlite"
)

type Index struct {
	db *sql.DB
}

// Run is one recorded simulation.
type Run struct {
	RunID        string              `json:"run_id"`
	Seed         uint64              `json:"seed"`
	Variant      string              `json:"variant"`
	Empires      int                 `json:"empires"`
	TurnLimit    int                 `json:"turn_limit"`
	TurnsPlayed  int                 `json:"turns_played"`
	VictoryType  string              `json:"victory_type"`
	WinnerID     empire.ID           `json:"winner_id"`
	Digest       string              `json:"digest"`
	SnapshotPath string              `json:"snapshot_path,omitempty"`
	Coverage     simulation.Coverage `json:"coverage"`
	RecordedAt   time.Time           `json:"recorded_at"`
}

func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			variant TEXT NOT NULL,
			empires INTEGER NOT NULL,
			turn_limit INTEGER NOT NULL,
			turns_played INTEGER NOT NULL,
			victory_type TEXT NOT NULL,
			winner_id INTEGER NOT NULL,
			digest TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			coverage_json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Index{db: db}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

// Record stores a finished run. snapshotPath may be empty.
func (i *Index) Record(ctx context.Context, res *simulation.Result, snapshotPath string) error {
	coverage, err := json.Marshal(res.Coverage)
	if err != nil {
		return err
	}
	_, err = i.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, seed, variant, empires, turn_limit, turns_played,
			victory_type, winner_id, digest, snapshot_path, coverage_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, int64(res.Seed), res.Variant, res.Empires, res.TurnLimit, res.TurnsPlayed,
		res.Outcome.VictoryType, int64(res.Outcome.WinnerID), res.Digest, snapshotPath,
		string(coverage), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}
	return nil
}

// List returns the most recent runs first. A seed of zero lists every seed.
func (i *Index) List(ctx context.Context, seed uint64, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, seed, variant, empires, turn_limit, turns_played, victory_type,
		winner_id, digest, snapshot_path, coverage_json, recorded_at FROM runs`
	args := []any{}
	if seed != 0 {
		query += ` WHERE seed = ?`
		args = append(args, int64(seed))
	}
	query += ` ORDER BY recorded_at DESC, run_id LIMIT ?`
	args = append(args, limit)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			seedVal  int64
			winner   int64
			coverage string
			recorded string
		)
		if err := rows.Scan(&r.RunID, &seedVal, &r.Variant, &r.Empires, &r.TurnLimit, &r.TurnsPlayed,
			&r.VictoryType, &winner, &r.Digest, &r.SnapshotPath, &coverage, &recorded); err != nil {
			return nil, err
		}
		r.Seed = uint64(seedVal)
		r.WinnerID = empire.ID(winner)
		if err := json.Unmarshal([]byte(coverage), &r.Coverage); err != nil {
			return nil, fmt.Errorf("decode coverage for %s: %w", r.RunID, err)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
