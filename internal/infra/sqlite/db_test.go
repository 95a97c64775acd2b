package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:        uuid.New(),
		Name:      string(role),
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := db.InsertUser(context.Background(), u); err != nil {
		t.Fatalf("InsertUser() error: %v", err)
	}
	return u
}

func seedAccount(t *testing.T, db *DB, owner *uuid.UUID) domain.Account {
	t.Helper()
	kind := domain.OwnerUser
	if owner == nil {
		kind = domain.OwnerPlatform
	}
	a := domain.Account{ID: uuid.New(), OwnerID: owner, OwnerKind: kind, Currency: "KES", CreatedAt: time.Now()}
	if err := db.InsertAccount(context.Background(), a); err != nil {
		t.Fatalf("InsertAccount() error: %v", err)
	}
	return a
}

// ─── Migration Tests ────────────────────────────────────────────────────────

func TestMigrations_TablesExist(t *testing.T) {
	db := newTestDB(t)

	tables := []string{"users", "accounts", "transactions", "entries", "orders", "order_items", "notifications", "audit_logs"}
	for _, table := range tables {
		var count int
		err := db.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found in database", table)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "soko.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	seedUser(t, db, domain.RoleBuyer)
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("users after reopen = %d, want 1", n)
	}
}

// ─── Unit of Work Tests ─────────────────────────────────────────────────────

func TestWithTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := domain.User{ID: uuid.New(), Name: "x", Email: "x@example.com", Role: domain.RoleBuyer, CreatedAt: time.Now()}

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(q domain.Queries) error {
		if err := q.InsertUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}
	if _, err := db.GetUser(ctx, u.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetUser after rollback error = %v, want ErrNotFound", err)
	}
}

func TestWithTx_Commit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := domain.User{ID: uuid.New(), Name: "y", Email: "y@example.com", Role: domain.RoleSeller, CreatedAt: time.Now()}

	if err := db.WithTx(ctx, func(q domain.Queries) error { return q.InsertUser(ctx, u) }); err != nil {
		t.Fatalf("WithTx() error: %v", err)
	}
	got, err := db.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	if got.Email != u.Email || got.Role != domain.RoleSeller {
		t.Errorf("GetUser() = %+v", got)
	}
}

func TestSnapshot_Reads(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, domain.RoleBuyer)

	err := db.Snapshot(ctx, func(q domain.Queries) error {
		_, err := q.GetUser(ctx, u.ID)
		return err
	})
	if err != nil {
		t.Errorf("Snapshot() error: %v", err)
	}
}

// ─── User Tests ─────────────────────────────────────────────────────────────

func TestInsertUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, domain.RoleBuyer)

	dup := domain.User{ID: uuid.New(), Name: "dup", Email: u.Email, Role: domain.RoleBuyer, CreatedAt: time.Now()}
	if err := db.InsertUser(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("InsertUser(duplicate email) error = %v, want ErrConflict", err)
	}
}

func TestNotifications_InsertList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, domain.RoleBuyer)

	for i, title := range []string{"first", "second"} {
		n := domain.Notification{
			ID: uuid.New(), UserID: u.ID, Title: title, Message: "m",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := db.InsertNotification(ctx, n); err != nil {
			t.Fatalf("InsertNotification() error: %v", err)
		}
	}
	got, err := db.ListNotifications(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("ListNotifications() error: %v", err)
	}
	if len(got) != 2 || got[0].Title != "second" {
		t.Errorf("ListNotifications() = %+v, want newest first", got)
	}

	orphan := domain.Notification{ID: uuid.New(), UserID: uuid.New(), Title: "t", Message: "m", CreatedAt: time.Now()}
	if err := db.InsertNotification(ctx, orphan); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("InsertNotification(unknown user) error = %v, want ErrValidation", err)
	}
}

func TestTimestamps_SortAsText(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	tests := []struct {
		name         string
		early, later time.Time
	}{
		{"whole second before fraction", base, base.Add(500 * time.Millisecond)},
		{"trailing zeros", base.Add(100 * time.Millisecond), base.Add(120 * time.Millisecond)},
		{"nanoseconds", base.Add(time.Nanosecond), base.Add(10 * time.Nanosecond)},
		{"next second", base.Add(999 * time.Millisecond), base.Add(time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := ts(tt.early), ts(tt.later)
			if len(a) != len(b) {
				t.Errorf("len(%q) = %d, len(%q) = %d, want equal", a, len(a), b, len(b))
			}
			if a >= b {
				t.Errorf("ts(%v) = %q, not before ts(%v) = %q", tt.early, a, tt.later, b)
			}
			if got := parseTS(a); !got.Equal(tt.early) {
				t.Errorf("parseTS(%q) = %v, want %v", a, got, tt.early)
			}
		})
	}
}

func TestNotifications_OrderWithWholeSeconds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, domain.RoleBuyer)
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	// Under a trimming layout "…05Z" sorts after "…05.5Z".
	for _, n := range []domain.Notification{
		{ID: uuid.New(), UserID: u.ID, Title: "whole", Message: "m", CreatedAt: base},
		{ID: uuid.New(), UserID: u.ID, Title: "fraction", Message: "m", CreatedAt: base.Add(500 * time.Millisecond)},
	} {
		if err := db.InsertNotification(ctx, n); err != nil {
			t.Fatalf("InsertNotification() error: %v", err)
		}
	}
	got, err := db.ListNotifications(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("ListNotifications() error: %v", err)
	}
	if len(got) != 2 || got[0].Title != "fraction" || got[1].Title != "whole" {
		t.Errorf("ListNotifications() titles = %v, want [fraction whole]", titles(got))
	}
}

func titles(ns []domain.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Title
	}
	return out
}
