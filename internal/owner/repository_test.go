package owner

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the owners table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE owners (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			middle_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			mobile TEXT NOT NULL DEFAULT '',
			barangay TEXT NOT NULL DEFAULT '',
			street TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE UNIQUE INDEX idx_owners_email ON owners(email);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testOwner(id, email string) *Owner {
	return &Owner{
		ID:        id,
		Email:     email,
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Mobile:    "+639170000000",
		Address:   Address{Barangay: "San Isidro", Street: "Mango St"},
	}
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates owner with derived full name", func(t *testing.T) {
		o := testOwner("user_1", "Juan@Example.com ")
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "user_1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Email != "juan@example.com" {
			t.Errorf("Email = %q, want normalised juan@example.com", got.Email)
		}
		if got.FullName != "Juan Dela Cruz" {
			t.Errorf("FullName = %q, want Juan Dela Cruz", got.FullName)
		}
	})

	t.Run("duplicate email returns ErrOwnerExists", func(t *testing.T) {
		o := testOwner("user_2", "JUAN@example.COM")
		err := repo.Create(ctx, o)
		if !errors.Is(err, ErrOwnerExists) {
			t.Errorf("Create() error = %v, want ErrOwnerExists", err)
		}
	})

	t.Run("empty email rejected", func(t *testing.T) {
		o := testOwner("user_3", "   ")
		err := repo.Create(ctx, o)
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Create() error = %v, want ErrInvalidEmail", err)
		}
	})
}

func TestSQLiteRepository_GetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testOwner("user_1", "juan@example.com")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Case and whitespace variants resolve to the same profile
	for _, email := range []string{
		"juan@example.com",
		"JUAN@EXAMPLE.COM",
		"  Juan@Example.com  ",
	} {
		got, err := repo.GetByEmail(ctx, email)
		if err != nil {
			t.Fatalf("GetByEmail(%q) error = %v", email, err)
		}
		if got.ID != "user_1" {
			t.Errorf("GetByEmail(%q) = %s, want user_1", email, got.ID)
		}
	}

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrOwnerNotFound", err)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	o := testOwner("user_1", "juan@example.com")
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	o.MiddleName = "Santos"
	o.Mobile = "+639179999999"
	if err := repo.Update(ctx, o); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "user_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.FullName != "Juan Santos Dela Cruz" {
		t.Errorf("FullName = %q, want re-derived name", got.FullName)
	}
	if got.Mobile != "+639179999999" {
		t.Errorf("Mobile = %q, want updated number", got.Mobile)
	}

	missing := testOwner("user_missing", "ghost@example.com")
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("Update() error = %v, want ErrOwnerNotFound", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	owners, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(owners) != 0 {
		t.Errorf("List() on empty table = %v, want empty slice", owners)
	}

	if err := repo.Create(ctx, testOwner("user_1", "a@example.com")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, testOwner("user_2", "b@example.com")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	owners, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(owners) != 2 {
		t.Errorf("List() returned %d owners, want 2", len(owners))
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testOwner("user_1", "juan@example.com")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, "user_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "user_1"); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("Delete() error = %v, want ErrOwnerNotFound", err)
	}
}
