// Package history persists run outcomes in a local sqlite database so past
// runs stay inspectable. Recording is best-effort from the engine's point of
// view: a store failure never fails a build.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Run is one recorded workflow run.
type Run struct {
	ID        string
	Workflow  string
	Event     string
	Branch    string
	Status    string
	ExitCode  int
	Error     string
	Published bool
	Created   string
	Started   string
	Finished  string
}

// StepRecord is one recorded step invocation.
type StepRecord struct {
	RunID      string
	Job        string
	Index      int
	Name       string
	Status     string
	ExitCode   int
	DurationMs int64
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`
		create table if not exists runs (
			id text primary key,
			workflow text not null,
			event text not null,
			branch text not null default '',
			status text not null default 'pending',
			exit_code integer,
			error text,
			published integer not null default 0,
			created text not null default (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			started text,
			finished text
		);
		create table if not exists run_steps (
			id integer primary key autoincrement,
			run_id text not null,
			job text not null,
			idx integer not null,
			name text not null,
			status text not null,
			exit_code integer not null default 0,
			duration_ms integer not null default 0,
			foreign key (run_id) references runs(id) on delete cascade
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a new pending run.
func (s *Store) CreateRun(id, workflow, event, branch string) error {
	_, err := s.db.Exec(
		`insert into runs (id, workflow, event, branch, status) values (?, ?, ?, ?, 'pending')`,
		id, workflow, event, branch,
	)
	if err != nil {
		return fmt.Errorf("creating run record: %w", err)
	}
	return nil
}

// MarkRunning transitions a run to running and stamps its start time.
func (s *Store) MarkRunning(id string) error {
	_, err := s.db.Exec(
		`update runs set status = 'running', started = strftime('%Y-%m-%dT%H:%M:%SZ', 'now') where id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("marking run running: %w", err)
	}
	return nil
}

// MarkFailed finishes a run as failed with its exit code and error text.
func (s *Store) MarkFailed(id string, exitCode int, message string) error {
	_, err := s.db.Exec(
		`update runs set status = 'failed', exit_code = ?, error = ?, finished = strftime('%Y-%m-%dT%H:%M:%SZ', 'now') where id = ?`,
		exitCode, message, id,
	)
	if err != nil {
		return fmt.Errorf("marking run failed: %w", err)
	}
	return nil
}

// MarkSuccess finishes a run as succeeded.
func (s *Store) MarkSuccess(id string) error {
	_, err := s.db.Exec(
		`update runs set status = 'success', exit_code = 0, finished = strftime('%Y-%m-%dT%H:%M:%SZ', 'now') where id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("marking run success: %w", err)
	}
	return nil
}

// MarkPublished flags a successful run whose output was published.
func (s *Store) MarkPublished(id string) error {
	_, err := s.db.Exec(`update runs set published = 1 where id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking run published: %w", err)
	}
	return nil
}

// RecordStep appends one step invocation to a run.
func (s *Store) RecordStep(runID, job string, index int, name, status string, exitCode int, duration time.Duration) error {
	_, err := s.db.Exec(
		`insert into run_steps (run_id, job, idx, name, status, exit_code, duration_ms) values (?, ?, ?, ?, ?, ?, ?)`,
		runID, job, index, name, status, exitCode, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording step: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`select id, workflow, event, branch, status,
			coalesce(exit_code, 0), coalesce(error, ''), published,
			created, coalesce(started, ''), coalesce(finished, '')
		from runs where id = ?`,
		id,
	)

	var r Run
	err := row.Scan(&r.ID, &r.Workflow, &r.Event, &r.Branch, &r.Status,
		&r.ExitCode, &r.Error, &r.Published, &r.Created, &r.Started, &r.Finished)
	if err != nil {
		return nil, fmt.Errorf("fetching run %s: %w", id, err)
	}
	return &r, nil
}

// RecentRuns lists the latest runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`select id, workflow, event, branch, status,
			coalesce(exit_code, 0), coalesce(error, ''), published,
			created, coalesce(started, ''), coalesce(finished, '')
		from runs order by created desc, id desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Workflow, &r.Event, &r.Branch, &r.Status,
			&r.ExitCode, &r.Error, &r.Published, &r.Created, &r.Started, &r.Finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSteps lists a run's recorded steps in execution order.
func (s *Store) RunSteps(runID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`select run_id, job, idx, name, status, exit_code, duration_ms
		from run_steps where run_id = ? order by id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing run steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var sr StepRecord
		if err := rows.Scan(&sr.RunID, &sr.Job, &sr.Index, &sr.Name, &sr.Status, &sr.ExitCode, &sr.DurationMs); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		steps = append(steps, sr)
	}
	return steps, rows.Err()
}
