package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome classifies how a registration attempt ended.
type Outcome string

// Attempt outcomes. These match the CHECK constraint on
// registration_attempts.outcome.
const (
	OutcomeSuccess        Outcome = "success"
	OutcomeNotFound       Outcome = "not_found"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	OutcomeValidation     Outcome = "validation"
	OutcomeStoreError     Outcome = "store_error"
)

// Attempt is a single entry in the registration audit trail.
// Every registration call leaves one, successful or not, so support can
// reconstruct what a field technician saw.
type Attempt struct {
	ID        int64          `json:"id"`
	DeviceID  string         `json:"device_id"`
	OwnerID   string         `json:"owner_id,omitempty"`
	Outcome   Outcome        `json:"outcome"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AttemptFilter controls which attempts to return.
type AttemptFilter struct {
	DeviceID string  // optional: filter by device
	Outcome  Outcome // optional: filter by outcome
	Limit    int     // default 50, max 200
	Offset   int     // pagination offset
}

// AttemptList contains paginated attempt results.
type AttemptList struct {
	Attempts []Attempt `json:"attempts"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// AttemptsRepository defines the interface for the registration audit trail.
type AttemptsRepository interface {
	Create(ctx context.Context, attempt *Attempt) error
	List(ctx context.Context, filter AttemptFilter) (*AttemptList, error)
}

// SQLiteAttempts stores registration attempts in SQLite.
type SQLiteAttempts struct {
	db *sql.DB
}

// NewSQLiteAttempts creates a new attempts repository.
func NewSQLiteAttempts(db *sql.DB) *SQLiteAttempts {
	return &SQLiteAttempts{db: db}
}

// Create inserts a new attempt. CreatedAt is generated if zero.
func (r *SQLiteAttempts) Create(ctx context.Context, attempt *Attempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	detailsJSON := "{}"
	if attempt.Details != nil {
		b, err := json.Marshal(attempt.Details)
		if err != nil {
			return fmt.Errorf("marshalling attempt details: %w", err)
		}
		detailsJSON = string(b)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO registration_attempts (device_id, owner_id, outcome, message, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.DeviceID, nullableString(attempt.OwnerID),
		string(attempt.Outcome), attempt.Message, detailsJSON,
		attempt.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting registration attempt: %w", err)
	}

	attempt.ID, _ = result.LastInsertId() //nolint:errcheck // always succeeds on SQLite

	return nil
}

// List returns attempts matching the filter, most recent first.
func (r *SQLiteAttempts) List(ctx context.Context, filter AttemptFilter) (*AttemptList, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM registration_attempts %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting registration attempts: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, device_id, owner_id, outcome, message, details, created_at FROM registration_attempts %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying registration attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var ownerID sql.NullString
		var outcome, detailsJSON, createdAt string

		if err := rows.Scan(&a.ID, &a.DeviceID, &ownerID, &outcome, &a.Message, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning registration attempt: %w", err)
		}

		a.Outcome = Outcome(outcome)
		if ownerID.Valid {
			a.OwnerID = ownerID.String
		}
		if detailsJSON != "" && detailsJSON != "{}" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON), &details) == nil {
				a.Details = details
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing attempt timestamp %q: %w", createdAt, err)
		}
		a.CreatedAt = t

		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating registration attempts: %w", err)
	}

	if attempts == nil {
		attempts = []Attempt{}
	}

	return &AttemptList{
		Attempts: attempts,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
