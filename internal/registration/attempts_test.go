package registration

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteAttempts_Create(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteAttempts(db.DB)
	ctx := context.Background()

	attempt := &Attempt{
		DeviceID: testMAC,
		OwnerID:  "user_1700000000000",
		Outcome:  OutcomeSuccess,
		Details:  map[string]any{"source": "api"},
	}
	if err := repo.Create(ctx, attempt); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if attempt.ID == 0 {
		t.Error("expected ID to be assigned")
	}
	if attempt.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	list, err := repo.List(ctx, AttemptFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total = %d, want 1", list.Total)
	}

	got := list.Attempts[0]
	if got.DeviceID != testMAC {
		t.Errorf("device = %q, want %q", got.DeviceID, testMAC)
	}
	if got.OwnerID != attempt.OwnerID {
		t.Errorf("owner = %q, want %q", got.OwnerID, attempt.OwnerID)
	}
	if got.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q, want %q", got.Outcome, OutcomeSuccess)
	}
	if got.Details["source"] != "api" {
		t.Errorf("details = %v, want source=api", got.Details)
	}
}

func TestSQLiteAttempts_List(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteAttempts(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	seed := []Attempt{
		{DeviceID: "AA:BB:CC:DD:EE:01", Outcome: OutcomeNotFound, CreatedAt: base},
		{DeviceID: "AA:BB:CC:DD:EE:02", Outcome: OutcomeSuccess, OwnerID: "user_1", CreatedAt: base.Add(time.Minute)},
		{DeviceID: "AA:BB:CC:DD:EE:02", Outcome: OutcomeAlreadyClaimed, CreatedAt: base.Add(2 * time.Minute)},
		{DeviceID: "AA:BB:CC:DD:EE:03", Outcome: OutcomeValidation, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seeding attempt %d: %v", i, err)
		}
	}

	t.Run("returns most recent first", func(t *testing.T) {
		list, err := repo.List(ctx, AttemptFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Total != 4 {
			t.Fatalf("total = %d, want 4", list.Total)
		}
		if list.Attempts[0].Outcome != OutcomeValidation {
			t.Errorf("first outcome = %q, want %q", list.Attempts[0].Outcome, OutcomeValidation)
		}
		if list.Attempts[3].Outcome != OutcomeNotFound {
			t.Errorf("last outcome = %q, want %q", list.Attempts[3].Outcome, OutcomeNotFound)
		}
	})

	t.Run("filters by device", func(t *testing.T) {
		list, err := repo.List(ctx, AttemptFilter{DeviceID: "AA:BB:CC:DD:EE:02"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Total != 2 {
			t.Errorf("total = %d, want 2", list.Total)
		}
		for _, a := range list.Attempts {
			if a.DeviceID != "AA:BB:CC:DD:EE:02" {
				t.Errorf("unexpected device %q in filtered list", a.DeviceID)
			}
		}
	})

	t.Run("filters by outcome", func(t *testing.T) {
		list, err := repo.List(ctx, AttemptFilter{Outcome: OutcomeSuccess})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Total != 1 {
			t.Fatalf("total = %d, want 1", list.Total)
		}
		if list.Attempts[0].OwnerID != "user_1" {
			t.Errorf("owner = %q, want user_1", list.Attempts[0].OwnerID)
		}
	})

	t.Run("paginates", func(t *testing.T) {
		list, err := repo.List(ctx, AttemptFilter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Total != 4 {
			t.Errorf("total = %d, want 4", list.Total)
		}
		if len(list.Attempts) != 2 {
			t.Errorf("page size = %d, want 2", len(list.Attempts))
		}
		if list.Limit != 2 || list.Offset != 2 {
			t.Errorf("echo limit/offset = %d/%d, want 2/2", list.Limit, list.Offset)
		}
	})

	t.Run("clamps an oversized limit", func(t *testing.T) {
		list, err := repo.List(ctx, AttemptFilter{Limit: 1000})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Limit != 200 {
			t.Errorf("limit = %d, want 200", list.Limit)
		}
	})

	t.Run("no matches returns empty slice", func(t *testing.T) {
		list, err := repo.List(ctx, AttemptFilter{DeviceID: "FF:FF:FF:FF:FF:FF"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if list.Total != 0 {
			t.Errorf("total = %d, want 0", list.Total)
		}
		if list.Attempts == nil {
			t.Error("attempts should be an empty slice, not nil")
		}
	})
}
