package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - runs, commits, mutations
const currentSchemaVersion = 1

// ErrRunExists is returned by BeginRun for a name already in the journal.
var ErrRunExists = errors.New("journal: run already exists")

// ErrRunNotFound is returned when reading a run that was never begun.
var ErrRunNotFound = errors.New("journal: run not found")

// Journal is a durable log of loop runs.
type Journal struct {
	db *sql.DB
}

// Run summarizes one journaled run.
type Run struct {
	Name      string `json:"name"`
	LoopID    string `json:"loop_id"`
	Scenario  string `json:"scenario"`
	Commits   int    `json:"commits"`
	Mutations int    `json:"mutations"`
}

// Entry is one journaled commit or mutation, as canonical JSON.
type Entry struct {
	Seq     int64
	Payload []byte
}

// Open creates or opens a journal at path. ":memory:" opens a private
// in-memory journal. Pragmas and schema are applied on every open.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// A single connection also keeps ":memory:" databases alive and shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// BeginRun registers a run. Commits and mutations can only be appended to
// a registered run.
func (j *Journal) BeginRun(ctx context.Context, name, loopID, scenario string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (name, loop_id, scenario) VALUES (?, ?, ?)
	`, name, loopID, scenario)
	if isConstraint(err) {
		return fmt.Errorf("begin run %q: %w", name, ErrRunExists)
	}
	if err != nil {
		return fmt.Errorf("begin run %q: %w", name, err)
	}
	return nil
}

// AppendCommit records a committed state.
func (j *Journal) AppendCommit(ctx context.Context, run string, seq int64, state []byte) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO commits (run, seq, state) VALUES (?, ?, ?)
	`, run, seq, string(state))
	if err != nil {
		return fmt.Errorf("append commit %s/%d: %w", run, seq, err)
	}
	return nil
}

// AppendMutation records an accepted mutation.
func (j *Journal) AppendMutation(ctx context.Context, run string, seq int64, mutation []byte) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO mutations (run, seq, mutation) VALUES (?, ?, ?)
	`, run, seq, string(mutation))
	if err != nil {
		return fmt.Errorf("append mutation %s/%d: %w", run, seq, err)
	}
	return nil
}

// GetRun returns a run summary, or ErrRunNotFound.
func (j *Journal) GetRun(ctx context.Context, name string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT r.name, r.loop_id, r.scenario,
		       (SELECT COUNT(*) FROM commits c WHERE c.run = r.name),
		       (SELECT COUNT(*) FROM mutations m WHERE m.run = r.name)
		FROM runs r
		WHERE r.name = ?
	`, name)

	var r Run
	err := row.Scan(&r.Name, &r.LoopID, &r.Scenario, &r.Commits, &r.Mutations)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %q: %w", name, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", name, err)
	}
	return r, nil
}

// ListRuns returns every run ordered by name.
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.name, r.loop_id, r.scenario,
		       (SELECT COUNT(*) FROM commits c WHERE c.run = r.name),
		       (SELECT COUNT(*) FROM mutations m WHERE m.run = r.name)
		FROM runs r
		ORDER BY r.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Name, &r.LoopID, &r.Scenario, &r.Commits, &r.Mutations); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCommits returns a run's commits ordered by seq.
func (j *Journal) ReadCommits(ctx context.Context, run string) ([]Entry, error) {
	return j.readEntries(ctx, run, `
		SELECT seq, state FROM commits WHERE run = ? ORDER BY seq ASC
	`)
}

// ReadMutations returns a run's mutations ordered by seq.
func (j *Journal) ReadMutations(ctx context.Context, run string) ([]Entry, error) {
	return j.readEntries(ctx, run, `
		SELECT seq, mutation FROM mutations WHERE run = ? ORDER BY seq ASC
	`)
}

func (j *Journal) readEntries(ctx context.Context, run, query string) ([]Entry, error) {
	if _, err := j.GetRun(ctx, run); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, query, run)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", run, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(&e.Seq, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", run, err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", run, err)
	}
	return entries, nil
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
