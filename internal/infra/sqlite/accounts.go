package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

const accountCols = `id, owner_id, owner_kind, currency, created_at`

func scanAccount(r rowScanner) (domain.Account, error) {
	var a domain.Account
	var owner sql.NullString
	var kind, created string
	if err := r.Scan(&a.ID, &owner, &kind, &a.Currency, &created); err != nil {
		return domain.Account{}, err
	}
	if owner.Valid {
		id, err := uuid.Parse(owner.String)
		if err != nil {
			return domain.Account{}, err
		}
		a.OwnerID = &id
	}
	a.OwnerKind = domain.OwnerKind(kind)
	a.CreatedAt = parseTS(created)
	return a, nil
}

// InsertAccount stores a new ledger account. A second account for the same
// (owner, currency) returns ErrConflict.
func (q queries) InsertAccount(ctx context.Context, a domain.Account) error {
	_, err := q.c.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, owner_kind, currency, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID.String(), nullUUID(a.OwnerID), string(a.OwnerKind), a.Currency, ts(a.CreatedAt))
	return mapErr("insert account", err)
}

// GetAccount retrieves an account by ID.
func (q queries) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	a, err := scanAccount(q.c.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, notFound("get account", "account", id)
	}
	return a, mapErr("get account", err)
}

// FindAccount looks an account up by owner and currency. ownerID is ignored
// for the platform kind.
func (q queries) FindAccount(ctx context.Context, kind domain.OwnerKind, ownerID *uuid.UUID, currency string) (domain.Account, error) {
	var row *sql.Row
	if kind == domain.OwnerPlatform {
		row = q.c.QueryRowContext(ctx, `
			SELECT `+accountCols+` FROM accounts
			WHERE owner_kind = 'platform' AND currency = ?
		`, currency)
	} else {
		if ownerID == nil {
			return domain.Account{}, domain.Errorf(domain.ErrValidation, "find account", "user account needs an owner")
		}
		row = q.c.QueryRowContext(ctx, `
			SELECT `+accountCols+` FROM accounts
			WHERE owner_kind = 'user' AND owner_id = ? AND currency = ?
		`, ownerID.String(), currency)
	}
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, notFound("find account", string(kind)+" account in", currency)
	}
	return a, mapErr("find account", err)
}
