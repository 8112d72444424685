package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kinbridge/internal/attach"
)

const (
	attemptColumns = "id, record_id, file_name, mode, backend, state, file_key, error, created_at, updated_at"

	// DefaultListLimit bounds List when no limit is given.
	DefaultListLimit = 50
	// MaxListLimit is the largest accepted list limit.
	MaxListLimit = 500
)

// ErrAttemptNotFound is returned by Transition and Get for unknown ids.
var ErrAttemptNotFound = errors.New("attempt not found")

// Filter narrows List.
type Filter struct {
	State    attach.State
	RecordID string
	Limit    int
}

// Begin inserts a new attempt row.
func (j *Journal) Begin(ctx context.Context, attempt attach.Attempt) error {
	if strings.TrimSpace(attempt.ID) == "" {
		return fmt.Errorf("attempt id is required")
	}
	now := j.now().UTC()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = attempt.CreatedAt
	}
	if attempt.State == "" {
		attempt.State = attach.StateReceived
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attach_attempts (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.RecordID,
		attempt.FileName,
		attempt.Mode,
		attempt.Backend,
		string(attempt.State),
		nullable(attempt.FileKey),
		nullable(attempt.Error),
		formatTime(attempt.CreatedAt),
		formatTime(attempt.UpdatedAt),
	)
	return err
}

// Transition moves an attempt to state. Empty fileKey and errMsg leave the
// stored values untouched.
func (j *Journal) Transition(ctx context.Context, id string, state attach.State, fileKey, errMsg string) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE attach_attempts
		 SET state = ?, file_key = COALESCE(?, file_key), error = COALESCE(?, error), updated_at = ?
		 WHERE id = ?`,
		string(state), nullable(fileKey), nullable(errMsg), formatTime(j.now()), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return nil
}

// Get returns one attempt.
func (j *Journal) Get(ctx context.Context, id string) (attach.Attempt, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attach_attempts WHERE id = ?`, id)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return attach.Attempt{}, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return attempt, err
}

// List returns attempts ordered by most recent update first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]attach.Attempt, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.RecordID != "" {
		clauses = append(clauses, "record_id = ?")
		args = append(args, filter.RecordID)
	}

	query := `SELECT ` + attemptColumns + ` FROM attach_attempts`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY updated_at DESC, id ASC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []attach.Attempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// Prune deletes attached attempts last updated before cutoff. Failed attempts
// are kept because they may reference orphaned uploads.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM attach_attempts WHERE state = ? AND updated_at < ?`,
		string(attach.StateAttached), formatTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func scanAttempt(scanner interface {
	Scan(dest ...any) error
}) (attach.Attempt, error) {
	var (
		attempt              attach.Attempt
		state                string
		fileKey, errMsg      sql.NullString
		createdAt, updatedAt string
	)
	if err := scanner.Scan(
		&attempt.ID,
		&attempt.RecordID,
		&attempt.FileName,
		&attempt.Mode,
		&attempt.Backend,
		&state,
		&fileKey,
		&errMsg,
		&createdAt,
		&updatedAt,
	); err != nil {
		return attach.Attempt{}, err
	}

	attempt.State = attach.State(state)
	attempt.FileKey = fileKey.String
	attempt.Error = errMsg.String

	var err error
	if attempt.CreatedAt, err = parseTime(createdAt); err != nil {
		return attach.Attempt{}, fmt.Errorf("parse created_at: %w", err)
	}
	if attempt.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return attach.Attempt{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return attempt, nil
}
