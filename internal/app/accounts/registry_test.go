package accounts

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
	"github.com/sokohub/soko/internal/infra/sqlite"
)

func newTestRegistry(t *testing.T) (*Registry, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("sqlite.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, nil), db
}

func TestCreateUser_CreatesAccount(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	u, acct, err := r.CreateUser(ctx, NewUser{Name: "Wanjiku", Email: " Wanjiku@Example.com ", Role: domain.RoleSeller}, "kes")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if u.Email != "wanjiku@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}
	if acct.OwnerID == nil || *acct.OwnerID != u.ID || acct.Currency != "KES" {
		t.Errorf("account = %+v, want owned by %s in KES", acct, u.ID)
	}

	got, err := r.FindAccount(ctx, u.ID, "KES")
	if err != nil || got.ID != acct.ID {
		t.Errorf("FindAccount() = %+v, %v", got, err)
	}
}

func TestCreateUser_DuplicateEmailCreatesNothing(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, _, err := r.CreateUser(ctx, NewUser{Name: "A", Email: "a@example.com"}, "KES"); err != nil {
		t.Fatal(err)
	}
	_, _, err := r.CreateUser(ctx, NewUser{Name: "B", Email: "A@example.com"}, "KES")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_WritesAuditRecord(t *testing.T) {
	r, db := newTestRegistry(t)
	ctx := context.Background()

	u, _, err := r.CreateUser(ctx, NewUser{Name: "A", Email: "a@example.com", Role: domain.RoleSeller}, "KES")
	if err != nil {
		t.Fatal(err)
	}
	// A rejected duplicate rolls its record back with the user.
	if _, _, err := r.CreateUser(ctx, NewUser{Name: "B", Email: "a@example.com"}, "KES"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}

	logs, err := db.ListAuditLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListAuditLogs() error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(logs))
	}
	l := logs[0]
	if l.Action != domain.AuditUserCreated || l.ActorID == nil || *l.ActorID != u.ID {
		t.Errorf("record = %+v, want %s by %s", l, domain.AuditUserCreated, u.ID)
	}
	if l.Metadata["email"] != "a@example.com" || l.Metadata["role"] != "seller" {
		t.Errorf("metadata = %v", l.Metadata)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	tests := []struct {
		name string
		in   NewUser
	}{
		{"missing name", NewUser{Email: "x@example.com"}},
		{"bad email", NewUser{Name: "x", Email: "nope"}},
		{"system role", NewUser{Name: "x", Email: "x@example.com", Role: domain.RoleSystem}},
		{"unknown role", NewUser{Name: "x", Email: "x@example.com", Role: "guest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.CreateUser(context.Background(), tt.in, "KES")
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
	if _, _, err := r.CreateUser(context.Background(), NewUser{Name: "x", Email: "y@example.com"}, "KSHS"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad currency err = %v, want ErrValidation", err)
	}
}

func TestGetOrCreateAccount_Idempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	u, first, err := r.CreateUser(ctx, NewUser{Name: "b", Email: "b@example.com"}, "KES")
	if err != nil {
		t.Fatal(err)
	}

	again, err := r.GetOrCreateAccount(ctx, &u.ID, domain.OwnerUser, "KES")
	if err != nil {
		t.Fatalf("GetOrCreateAccount() error: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("GetOrCreateAccount() = %s, want existing %s", again.ID, first.ID)
	}

	usd, err := r.GetOrCreateAccount(ctx, &u.ID, domain.OwnerUser, "USD")
	if err != nil {
		t.Fatalf("GetOrCreateAccount(USD) error: %v", err)
	}
	if usd.ID == first.ID || usd.Currency != "USD" {
		t.Errorf("USD account = %+v", usd)
	}

	if _, err := r.GetOrCreateAccount(ctx, nil, domain.OwnerUser, "KES"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("user account without owner err = %v, want ErrValidation", err)
	}
}

func TestPlatformAccount(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.PlatformAccount(ctx, "KES"); !errors.Is(err, domain.ErrLedgerConfiguration) {
		t.Fatalf("PlatformAccount before bootstrap err = %v, want ErrLedgerConfiguration", err)
	}

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := r.EnsurePlatformAccount(ctx, "KES")
			if err != nil {
				t.Errorf("EnsurePlatformAccount() error: %v", err)
				return
			}
			ids[i] = a.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Errorf("EnsurePlatformAccount returned %s and %s", ids[0], id)
		}
	}

	p, err := r.PlatformAccount(ctx, "kes")
	if err != nil || p.ID != ids[0] || p.OwnerKind != domain.OwnerPlatform {
		t.Errorf("PlatformAccount() = %+v, %v", p, err)
	}
}

func TestFindAccount_NotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.FindAccount(context.Background(), uuid.New(), "KES"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindAccount(unknown) err = %v, want ErrNotFound", err)
	}
}
