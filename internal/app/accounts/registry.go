// Package accounts is the account registry: one ledger account per
// (owner, currency), plus the platform singleton per currency.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// Registry resolves and creates ledger accounts.
type Registry struct {
	store domain.Store
	log   *slog.Logger
}

// New creates an account registry.
func New(store domain.Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, log: log.With("component", "accounts")}
}

// GetOrCreate returns the owner's account in currency, creating it when absent.
// It runs on q, so callers may use it inside their own unit of work.
func GetOrCreate(ctx context.Context, q domain.Queries, ownerID *uuid.UUID, kind domain.OwnerKind, currency string) (domain.Account, error) {
	const op = "get or create account"
	cur, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return domain.Account{}, err
	}
	switch kind {
	case domain.OwnerUser:
		if ownerID == nil || *ownerID == uuid.Nil {
			return domain.Account{}, domain.Errorf(domain.ErrValidation, op, "user account needs an owner")
		}
	case domain.OwnerPlatform:
		ownerID = nil
	default:
		return domain.Account{}, domain.Errorf(domain.ErrValidation, op, "unknown owner kind %q", kind)
	}

	a, err := q.FindAccount(ctx, kind, ownerID, cur)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, err
	}
	a = domain.Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		OwnerKind: kind,
		Currency:  cur,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.InsertAccount(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// GetOrCreateAccount is GetOrCreate in its own unit of work. A concurrent
// creator that wins the unique index race is resolved by reading its row.
func (r *Registry) GetOrCreateAccount(ctx context.Context, ownerID *uuid.UUID, kind domain.OwnerKind, currency string) (domain.Account, error) {
	var a domain.Account
	err := r.store.WithTx(ctx, func(q domain.Queries) error {
		var err error
		a, err = GetOrCreate(ctx, q, ownerID, kind, currency)
		return err
	})
	if errors.Is(err, domain.ErrConflict) {
		cur, _ := domain.NormalizeCurrency(currency)
		return r.store.FindAccount(ctx, kind, ownerID, cur)
	}
	return a, err
}

// FindAccount returns the owner's account, or ErrNotFound.
func (r *Registry) FindAccount(ctx context.Context, ownerID uuid.UUID, currency string) (domain.Account, error) {
	cur, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return domain.Account{}, err
	}
	return r.store.FindAccount(ctx, domain.OwnerUser, &ownerID, cur)
}

// PlatformAccount returns the platform account for currency. Its absence is a
// deployment error, not a caller error.
func (r *Registry) PlatformAccount(ctx context.Context, currency string) (domain.Account, error) {
	return Platform(ctx, r.store, currency)
}

// Platform is PlatformAccount on an arbitrary Queries.
func Platform(ctx context.Context, q domain.Queries, currency string) (domain.Account, error) {
	cur, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return domain.Account{}, err
	}
	a, err := q.FindAccount(ctx, domain.OwnerPlatform, nil, cur)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, domain.Errorf(domain.ErrLedgerConfiguration, "platform account",
			"no platform account for %s; run `soko migrate`", cur)
	}
	return a, err
}

// EnsurePlatformAccount creates the platform account for currency if needed.
func (r *Registry) EnsurePlatformAccount(ctx context.Context, currency string) (domain.Account, error) {
	a, err := r.GetOrCreateAccount(ctx, nil, domain.OwnerPlatform, currency)
	if err != nil {
		return domain.Account{}, err
	}
	r.log.Info("platform account ready", "account_id", a.ID, "currency", a.Currency)
	return a, nil
}

// ─── Users ──────────────────────────────────────────────────────────────────

// NewUser describes a user to register.
type NewUser struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// CreateUser stores the user and its ledger account in one unit of work.
// A duplicate email returns ErrConflict and creates nothing.
func (r *Registry) CreateUser(ctx context.Context, in NewUser, currency string) (domain.User, domain.Account, error) {
	const op = "create user"
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Name == "":
		return domain.User{}, domain.Account{}, domain.Errorf(domain.ErrValidation, op, "name is required")
	case !strings.Contains(in.Email, "@"):
		return domain.User{}, domain.Account{}, domain.Errorf(domain.ErrValidation, op, "email %q is invalid", in.Email)
	case in.Role == "":
		in.Role = domain.RoleBuyer
	case in.Role == domain.RoleSystem || !in.Role.Valid():
		return domain.User{}, domain.Account{}, domain.Errorf(domain.ErrValidation, op, "role %q cannot be registered", in.Role)
	}

	u := domain.User{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		CreatedAt: time.Now().UTC(),
	}
	var acct domain.Account
	err := r.store.WithTx(ctx, func(q domain.Queries) error {
		if err := q.InsertUser(ctx, u); err != nil {
			return err
		}
		var err error
		if acct, err = GetOrCreate(ctx, q, &u.ID, domain.OwnerUser, currency); err != nil {
			return err
		}
		return q.InsertAuditLog(ctx, domain.NewAuditLog(&u.ID, u.Role, domain.AuditUserCreated,
			map[string]string{"email": u.Email, "role": string(u.Role)}))
	})
	if err != nil {
		return domain.User{}, domain.Account{}, err
	}
	r.log.Info("user created", "user_id", u.ID, "role", u.Role, "account_id", acct.ID)
	return u, acct, nil
}
