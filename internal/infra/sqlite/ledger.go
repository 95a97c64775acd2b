package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────

// InsertTransaction writes the transaction header and every entry. Callers run
// it inside WithTx so a failure on any entry leaves nothing behind.
func (q queries) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := q.c.ExecContext(ctx, `
		INSERT INTO transactions (id, reference, description, created_at)
		VALUES (?, ?, ?, ?)
	`, tx.ID.String(), tx.Reference, tx.Description, ts(tx.CreatedAt))
	if err != nil {
		return mapErr("insert transaction", err)
	}
	for _, e := range tx.Entries {
		_, err := q.c.ExecContext(ctx, `
			INSERT INTO entries (id, transaction_id, account_id, amount, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID.String(), tx.ID.String(), e.AccountID.String(), e.Amount, ts(e.CreatedAt))
		if err != nil {
			return mapErr("insert entry", err)
		}
	}
	return nil
}

// GetTransactionByReference loads a transaction and its entries.
func (q queries) GetTransactionByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	var t domain.Transaction
	var created string
	err := q.c.QueryRowContext(ctx, `
		SELECT id, reference, description, created_at FROM transactions WHERE reference = ?
	`, reference).Scan(&t.ID, &t.Reference, &t.Description, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, notFound("get transaction", "transaction", reference)
	}
	if err != nil {
		return domain.Transaction{}, mapErr("get transaction", err)
	}
	t.CreatedAt = parseTS(created)

	rows, err := q.c.QueryContext(ctx, `
		SELECT `+entryCols+` FROM entries WHERE transaction_id = ? ORDER BY seq
	`, t.ID.String())
	if err != nil {
		return domain.Transaction{}, mapErr("get transaction entries", err)
	}
	t.Entries, err = scanEntries(rows)
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

// AccountBalance sums an account's entries in a single statement.
func (q queries) AccountBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var id string
	var balance int64
	err := q.c.QueryRowContext(ctx, `
		SELECT a.id, COALESCE((SELECT SUM(e.amount) FROM entries e WHERE e.account_id = a.id), 0)
		FROM accounts a WHERE a.id = ?
	`, accountID.String()).Scan(&id, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("account balance", "account", accountID)
	}
	if err != nil {
		return 0, mapErr("account balance", err)
	}
	return balance, nil
}

// ListEntries returns up to limit entries of an account with seq below
// beforeSeq, newest first.
func (q queries) ListEntries(ctx context.Context, accountID uuid.UUID, beforeSeq int64, limit int) ([]domain.Entry, error) {
	var rows *sql.Rows
	var err error
	if beforeSeq > 0 {
		rows, err = q.c.QueryContext(ctx, `
			SELECT `+entryCols+` FROM entries
			WHERE account_id = ? AND seq < ? ORDER BY seq DESC LIMIT ?
		`, accountID.String(), beforeSeq, limit)
	} else {
		rows, err = q.c.QueryContext(ctx, `
			SELECT `+entryCols+` FROM entries
			WHERE account_id = ? ORDER BY seq DESC LIMIT ?
		`, accountID.String(), limit)
	}
	if err != nil {
		return nil, mapErr("list entries", err)
	}
	return scanEntries(rows)
}

const entryCols = `seq, id, transaction_id, account_id, amount, created_at`

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	defer rows.Close()
	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var created string
		if err := rows.Scan(&e.Seq, &e.ID, &e.TransactionID, &e.AccountID, &e.Amount, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTS(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
