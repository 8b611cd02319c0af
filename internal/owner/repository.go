package owner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBTX is the subset of database/sql operations the repository needs.
// Both *sql.DB and *sql.Tx satisfy it, so the same repository code runs
// standalone or inside a registration transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository defines the interface for owner profile persistence.
type Repository interface {
	// Create inserts a new owner profile.
	// Returns ErrOwnerExists if the email is already registered.
	Create(ctx context.Context, o *Owner) error

	// GetByID retrieves an owner by their unique ID.
	// Returns ErrOwnerNotFound if no owner matches.
	GetByID(ctx context.Context, id string) (*Owner, error)

	// GetByEmail retrieves an owner by normalised email address.
	// Returns ErrOwnerNotFound if no owner matches.
	GetByEmail(ctx context.Context, email string) (*Owner, error)

	// List returns all owners ordered by creation date.
	List(ctx context.Context) ([]Owner, error)

	// Update modifies an owner's profile fields.
	// Returns ErrOwnerNotFound if the owner does not exist.
	Update(ctx context.Context, o *Owner) error

	// Delete removes an owner profile by ID.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db DBTX
}

// NewSQLiteRepository creates a new SQLite-backed owner repository.
// The db parameter may be an open connection or an active transaction.
func NewSQLiteRepository(db DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const ownerColumns = `id, email, first_name, middle_name, last_name, full_name, mobile, barangay, street, created_at, updated_at`

// Create inserts a new owner profile.
// The email is normalised before storage and the full name derived.
func (r *SQLiteRepository) Create(ctx context.Context, o *Owner) error {
	o.Email = NormalizeEmail(o.Email)
	if o.Email == "" {
		return ErrInvalidEmail
	}
	o.FullName = DeriveFullName(o.FirstName, o.MiddleName, o.LastName)

	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (id, email, first_name, middle_name, last_name, full_name, mobile, barangay, street, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Email, o.FirstName, o.MiddleName, o.LastName, o.FullName,
		o.Mobile, o.Address.Barangay, o.Address.Street,
		o.CreatedAt.Format(time.RFC3339), o.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOwnerExists
		}
		return fmt.Errorf("creating owner: %w", err)
	}

	return nil
}

// GetByID retrieves an owner by their unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Owner, error) {
	return r.getOwner(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = ?`, id)
}

// GetByEmail retrieves an owner by email address.
// The lookup value is normalised, so case and whitespace variants of the
// same address resolve to the same profile.
func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*Owner, error) {
	return r.getOwner(ctx, `SELECT `+ownerColumns+` FROM owners WHERE email = ?`, NormalizeEmail(email))
}

// List returns all owners ordered by creation date.
func (r *SQLiteRepository) List(ctx context.Context) ([]Owner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ownerColumns+` FROM owners ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		owners = append(owners, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owners: %w", err)
	}

	if owners == nil {
		owners = []Owner{}
	}
	return owners, nil
}

// Update modifies an owner's profile fields.
func (r *SQLiteRepository) Update(ctx context.Context, o *Owner) error {
	o.Email = NormalizeEmail(o.Email)
	o.FullName = DeriveFullName(o.FirstName, o.MiddleName, o.LastName)
	o.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE owners SET email = ?, first_name = ?, middle_name = ?, last_name = ?, full_name = ?, mobile = ?, barangay = ?, street = ?, updated_at = ? WHERE id = ?`,
		o.Email, o.FirstName, o.MiddleName, o.LastName, o.FullName,
		o.Mobile, o.Address.Barangay, o.Address.Street,
		o.UpdatedAt.Format(time.RFC3339), o.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOwnerExists
		}
		return fmt.Errorf("updating owner: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrOwnerNotFound
	}
	return nil
}

// Delete removes an owner profile by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM owners WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting owner: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrOwnerNotFound
	}
	return nil
}

// getOwner runs a single-row query and scans the result.
func (r *SQLiteRepository) getOwner(ctx context.Context, query string, arg any) (*Owner, error) {
	o, err := scanOwner(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("querying owner: %w", err)
	}
	return o, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanOwner scans a row or rows result into an Owner.
func scanOwner(scanner rowScanner) (*Owner, error) {
	var o Owner
	var createdAt, updatedAt string

	err := scanner.Scan(
		&o.ID,
		&o.Email,
		&o.FirstName,
		&o.MiddleName,
		&o.LastName,
		&o.FullName,
		&o.Mobile,
		&o.Address.Barangay,
		&o.Address.Street,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var parseErr error
	o.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	o.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &o, nil
}

// isUniqueViolation checks if an error is a SQLite unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
