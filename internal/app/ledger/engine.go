// Package ledger is the double-entry ledger engine. It validates and posts
// balanced transactions and derives balances from entries. Balances are never
// stored; an account's balance is the sum of its entries.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
	"github.com/sokohub/soko/internal/infra/observability"
)

// Engine posts transactions and answers balance queries.
type Engine struct {
	store       domain.Store
	log         *slog.Logger
	afterCommit []func()
}

// New creates a ledger engine.
func New(store domain.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, log: log.With("component", "ledger")}
}

// AfterCommit registers fn to run after every committed posting.
// Not safe to call concurrently with PostTransaction.
func (e *Engine) AfterCommit(fn func()) {
	e.afterCommit = append(e.afterCommit, fn)
}

// Post validates lines and writes the transaction on q. It does not commit;
// callers compose it into their own unit of work.
func Post(ctx context.Context, q domain.Queries, reference, description string, lines []domain.EntryLine) (domain.Transaction, error) {
	const op = "post transaction"
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.Transaction{}, domain.Errorf(domain.ErrValidation, op, "reference is required")
	}
	if err := domain.ValidateLines(lines); err != nil {
		return domain.Transaction{}, err
	}

	currency := ""
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if seen[l.AccountID] {
			continue
		}
		seen[l.AccountID] = true
		a, err := q.GetAccount(ctx, l.AccountID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if currency == "" {
			currency = a.Currency
		} else if a.Currency != currency {
			return domain.Transaction{}, domain.Errorf(domain.ErrValidation, op,
				"entries mix currencies %s and %s", currency, a.Currency)
		}
	}

	now := time.Now().UTC()
	tx := domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		Description: description,
		CreatedAt:   now,
		Entries:     make([]domain.Entry, 0, len(lines)),
	}
	for _, l := range lines {
		tx.Entries = append(tx.Entries, domain.Entry{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			AccountID:     l.AccountID,
			Amount:        l.Amount,
			CreatedAt:     now,
		})
	}
	if err := q.InsertTransaction(ctx, tx); err != nil {
		if domain.KindOf(err) == domain.ErrConflict {
			return domain.Transaction{}, domain.Errorf(domain.ErrConflict, op,
				"reference %q was already posted", reference)
		}
		return domain.Transaction{}, err
	}
	return tx, nil
}

// PostTransaction posts a balanced transaction in its own unit of work.
// Either every entry is written or none is.
func (e *Engine) PostTransaction(ctx context.Context, reference, description string, lines []domain.EntryLine) (domain.Transaction, error) {
	start := time.Now()
	var tx domain.Transaction
	err := e.store.WithTx(ctx, func(q domain.Queries) error {
		var err error
		tx, err = Post(ctx, q, reference, description, lines)
		return err
	})
	observability.ObservePost(start, len(lines), err)
	if err != nil {
		e.log.Warn("post rejected", "reference", reference, "error", err)
		return domain.Transaction{}, err
	}
	e.log.Info("transaction posted", "reference", tx.Reference, "entries", len(tx.Entries))
	e.Committed()
	return tx, nil
}

// Committed runs the after-commit hooks. Other services that post through
// Post inside their own unit of work call it once they have committed.
func (e *Engine) Committed() {
	for _, fn := range e.afterCommit {
		fn()
	}
}

// GetBalance returns the account balance, read in one statement.
func (e *Engine) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return e.store.AccountBalance(ctx, accountID)
}

// GetBalances reads several balances from one consistent snapshot.
func (e *Engine) GetBalances(ctx context.Context, accountIDs ...uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(accountIDs))
	err := e.store.Snapshot(ctx, func(q domain.Queries) error {
		for _, id := range accountIDs {
			b, err := q.AccountBalance(ctx, id)
			if err != nil {
				return err
			}
			out[id] = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction loads a posted transaction by reference.
func (e *Engine) GetTransaction(ctx context.Context, reference string) (domain.Transaction, error) {
	return e.store.GetTransactionByReference(ctx, reference)
}

// ListEntries pages through an account's entries, newest first.
func (e *Engine) ListEntries(ctx context.Context, accountID uuid.UUID, page Page) (EntryPage, error) {
	before, err := decodeCursor(page.Cursor)
	if err != nil {
		return EntryPage{}, err
	}
	limit := page.limit()

	var out EntryPage
	err = e.store.Snapshot(ctx, func(q domain.Queries) error {
		if _, err := q.GetAccount(ctx, accountID); err != nil {
			return err
		}
		// One extra row tells us whether another page exists.
		entries, err := q.ListEntries(ctx, accountID, before, limit+1)
		if err != nil {
			return err
		}
		if len(entries) > limit {
			entries = entries[:limit]
			out.NextCursor = encodeCursor(entries[limit-1].Seq)
		}
		out.Entries = entries
		return nil
	})
	if err != nil {
		return EntryPage{}, err
	}
	if out.Entries == nil {
		out.Entries = []domain.Entry{}
	}
	return out, nil
}
