// Package audit persists boundary events to SQLite for after-the-fact
// inspection: which accessors crossed the boundary, which wrappers were
// synthesized, and which contracts failed with what blame.
//
// The recorder is optional. The engine works identically without one; a
// recorder only observes, it never influences dispatch.
package audit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/boundary/internal/contract"
	"github.com/funvibe/boundary/internal/dispatch"
)

const schema = `
CREATE TABLE IF NOT EXISTS violations (
	id        TEXT PRIMARY KEY,
	accessor  TEXT NOT NULL,
	param     TEXT NOT NULL,
	want      TEXT NOT NULL,
	got       TEXT NOT NULL,
	arg_index INTEGER NOT NULL,
	blame     TEXT NOT NULL,
	at        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS syntheses (
	wrapper_id    TEXT PRIMARY KEY,
	accessor      TEXT NOT NULL,
	instantiation TEXT NOT NULL,
	checks        INTEGER NOT NULL,
	at            TIMESTAMP NOT NULL
);
`

// Recorder writes audit records to a SQLite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit db %s: %w", path, err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordViolation stores one contract violation.
func (r *Recorder) RecordViolation(v *contract.Violation) error {
	_, err := r.db.Exec(
		`INSERT INTO violations (id, accessor, param, want, got, arg_index, blame, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), v.Accessor, v.Param, v.Want.String(), v.Got, v.ArgIndex, v.Blame.String(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording violation: %w", err)
	}
	return nil
}

// RecordSynthesis stores one wrapper synthesis.
func (r *Recorder) RecordSynthesis(w *contract.Wrapper) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO syntheses (wrapper_id, accessor, instantiation, checks, at)
		 VALUES (?, ?, ?, ?, ?)`,
		w.ID.String(), w.Accessor.Name, w.Inst.String(), w.Checks(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording synthesis: %w", err)
	}
	return nil
}

// Hook adapts the recorder to a dispatcher hook: wrapper syntheses and
// contract violations are persisted, other transitions are ignored.
// Recording failures are dropped: auditing must never change dispatch
// outcomes.
func (r *Recorder) Hook() dispatch.Hook {
	return func(e dispatch.Event) {
		switch e.State {
		case dispatch.StateSynthesize:
			if e.Wrapper != nil {
				_ = r.RecordSynthesis(e.Wrapper)
			}
		case dispatch.StateFailed:
			var v *contract.Violation
			if errors.As(e.Err, &v) {
				_ = r.RecordViolation(v)
			}
		}
	}
}

// ViolationRecord is one stored violation row.
type ViolationRecord struct {
	ID       string
	Accessor string
	Param    string
	Want     string
	Got      string
	ArgIndex int
	Blame    string
	At       time.Time
}

// Violations returns the stored violations for an accessor, oldest first.
// An empty accessor name returns everything.
func (r *Recorder) Violations(accessor string) ([]ViolationRecord, error) {
	query := `SELECT id, accessor, param, want, got, arg_index, blame, at FROM violations`
	var args []any
	if accessor != "" {
		query += ` WHERE accessor = ?`
		args = append(args, accessor)
	}
	query += ` ORDER BY at ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying violations: %w", err)
	}
	defer rows.Close()

	var out []ViolationRecord
	for rows.Next() {
		var rec ViolationRecord
		if err := rows.Scan(&rec.ID, &rec.Accessor, &rec.Param, &rec.Want, &rec.Got, &rec.ArgIndex, &rec.Blame, &rec.At); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SynthesisRecord is one stored wrapper synthesis row.
type SynthesisRecord struct {
	WrapperID     string
	Accessor      string
	Instantiation string
	Checks        int
	At            time.Time
}

// Syntheses returns the stored wrapper syntheses for an accessor, oldest
// first. An empty accessor name returns everything.
func (r *Recorder) Syntheses(accessor string) ([]SynthesisRecord, error) {
	query := `SELECT wrapper_id, accessor, instantiation, checks, at FROM syntheses`
	var args []any
	if accessor != "" {
		query += ` WHERE accessor = ?`
		args = append(args, accessor)
	}
	query += ` ORDER BY at ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying syntheses: %w", err)
	}
	defer rows.Close()

	var out []SynthesisRecord
	for rows.Next() {
		var rec SynthesisRecord
		if err := rows.Scan(&rec.WrapperID, &rec.Accessor, &rec.Instantiation, &rec.Checks, &rec.At); err != nil {
			return nil, fmt.Errorf("scanning synthesis: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
