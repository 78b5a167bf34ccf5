// Package checkpoint implements the durable, patch-merge checkpoint
// store described for the parse-merge phase: a JSON-typed column
// patched on every write, guarded by a logical lease so overlapping
// invocations from an orchestrator retry cannot stomp each other's
// progress. Grounded on the teacher's internal/repository package
// (dbConnection.go's driver setup, job.go's FetchMetadata/
// UpdateMetadata merge-on-a-json-column pattern), generalized from a
// read-modify-write under an in-process cache to a read-modify-write
// inside one database transaction with a lease assertion. The merge is
// not done by the database: Merge reads the stored JSON, applies the
// patch in process (jsonMergePatch), and writes the result back.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"
)

// ErrLockLost is returned by Merge and SetCurrentStep when the caller's
// lease no longer matches the lease recorded against the run, i.e. the
// orchestrator reassigned the run to another invocation.
var ErrLockLost = errors.New("checkpoint: lease lost")

// Store is the checkpoint store's contract (spec §4.1): load, merge,
// and set_current_step.
type Store interface {
	// Load returns the checkpoint for runID, or a fresh pending
	// checkpoint if none exists yet.
	Load(ctx context.Context, runID string) (*schema.ParseMergeCheckpoint, error)
	// Merge atomically merges patch into the stored checkpoint for
	// runID (creating it if absent), after asserting leaseID against
	// the run's recorded lease. Returns ErrLockLost if the lease does
	// not match a non-empty recorded lease.
	Merge(ctx context.Context, runID, leaseID string, patch map[string]interface{}) error
	// SetCurrentStep records which step is currently executing against
	// runID, under the same lease assertion as Merge.
	SetCurrentStep(ctx context.Context, runID, leaseID, step string) error
}

// SQLStore is the sqlx-backed Store implementation.
type SQLStore struct {
	db        *sqlx.DB
	stmtCache *sq.StmtCache
	driver    string

	loadGroup singleflight.Group
}

// NewSQLStore wraps an already-migrated connection.
func NewSQLStore(db *sqlx.DB, driver string) *SQLStore {
	return &SQLStore{
		db:        db,
		stmtCache: sq.NewStmtCache(db.DB),
		driver:    driver,
	}
}

func (s *SQLStore) placeholder() sq.PlaceholderFormat {
	if s.driver == "mysql" {
		return sq.Question
	}
	return sq.Question
}

// Load implements Store. Concurrent Loads for the same run_id are
// collapsed via singleflight so a burst of near-simultaneous
// invocations does not hammer the database with identical reads.
func (s *SQLStore) Load(ctx context.Context, runID string) (*schema.ParseMergeCheckpoint, error) {
	v, err, _ := s.loadGroup.Do(runID, func() (interface{}, error) {
		var raw string
		row := sq.Select("data").From("checkpoint").Where(sq.Eq{"run_id": runID}).
			PlaceholderFormat(s.placeholder()).RunWith(s.stmtCache).QueryRowContext(ctx)
		if err := row.Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &schema.ParseMergeCheckpoint{SubPhase: schema.SubPhasePending}, nil
			}
			return nil, err
		}

		cp := &schema.ParseMergeCheckpoint{}
		if err := json.Unmarshal([]byte(raw), cp); err != nil {
			return nil, fmt.Errorf("checkpoint: corrupt record for run %s: %w", runID, err)
		}
		return cp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.ParseMergeCheckpoint), nil
}

// Merge implements Store.
func (s *SQLStore) Merge(ctx context.Context, runID, leaseID string, patch map[string]interface{}) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingLease string
	var exists bool
	row := tx.QueryRowContext(ctx, `SELECT lease_id FROM checkpoint WHERE run_id = ?`, runID)
	switch err := row.Scan(&existingLease); {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return err
	default:
		exists = true
	}

	if exists && existingLease != "" && existingLease != leaseID {
		log.Warnf("checkpoint: run %s lease mismatch (have %q, want %q)", runID, existingLease, leaseID)
		return ErrLockLost
	}

	if !exists {
		empty := schema.ParseMergeCheckpoint{SubPhase: schema.SubPhasePending}
		base, err := json.Marshal(empty)
		if err != nil {
			return err
		}
		merged, err := jsonMergePatch(base, patchJSON)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoint (run_id, lease_id, data) VALUES (?, ?, ?)`,
			runID, leaseID, merged); err != nil {
			return err
		}
		return tx.Commit()
	}

	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT data FROM checkpoint WHERE run_id = ?`, runID).Scan(&raw); err != nil {
		return err
	}
	merged, err := jsonMergePatch([]byte(raw), patchJSON)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE checkpoint SET data = ?, lease_id = ?, updated_at = CURRENT_TIMESTAMP WHERE run_id = ?`,
		merged, leaseID, runID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetCurrentStep implements Store.
func (s *SQLStore) SetCurrentStep(ctx context.Context, runID, leaseID, step string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingLease string
	var exists bool
	switch err := tx.QueryRowContext(ctx, `SELECT lease_id FROM checkpoint WHERE run_id = ?`, runID).Scan(&existingLease); {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return err
	default:
		exists = true
	}

	if exists && existingLease != "" && existingLease != leaseID {
		return ErrLockLost
	}

	if !exists {
		empty := schema.ParseMergeCheckpoint{SubPhase: schema.SubPhasePending}
		base, err := json.Marshal(empty)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoint (run_id, lease_id, step, data) VALUES (?, ?, ?, ?)`,
			runID, leaseID, step, base); err != nil {
			return err
		}
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE checkpoint SET step = ?, lease_id = ?, updated_at = CURRENT_TIMESTAMP WHERE run_id = ?`,
		step, leaseID, runID); err != nil {
		return err
	}
	return tx.Commit()
}

// StaleRuns returns run_ids whose updated_at is more than
// olderThanSeconds seconds old and whose sub_phase has not reached a
// terminal state. Used by the maintenance sweep; it never mutates
// anything, only reports.
func (s *SQLStore) StaleRuns(ctx context.Context, olderThanSeconds int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM checkpoint WHERE strftime('%s','now') - strftime('%s', updated_at) > ? AND json_extract(data, '$.subPhase') NOT IN ('completed', 'failed')`,
		olderThanSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			return nil, err
		}
		out = append(out, runID)
	}
	return out, rows.Err()
}
