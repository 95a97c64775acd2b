package domain

import (
	"time"

	"github.com/google/uuid"
)

// ─── Ledger Types ───────────────────────────────────────────────────────────
// Amounts are signed int64 minor units (cents). Positive credits an account,
// negative debits it. Every transaction's entries sum to exactly zero.

// OwnerKind says who owns a ledger account.
type OwnerKind string

const (
	OwnerUser     OwnerKind = "user"
	OwnerPlatform OwnerKind = "platform"
)

// Account is a ledger account, one per (owner, currency). OwnerID is nil for the
// platform account.
type Account struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	OwnerKind OwnerKind  `json:"owner_kind"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
}

// EntryType represents the accounting side of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Transaction is one atomic economic event. It owns its entries.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Entries     []Entry   `json:"entries"`
}

// Entry is a single signed movement on one account.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"`
	Seq           int64     `json:"-"` // store insertion sequence, used for paging
	CreatedAt     time.Time `json:"created_at"`
}

// Type returns the accounting side of the entry.
func (e Entry) Type() EntryType {
	if e.Amount < 0 {
		return EntryDebit
	}
	return EntryCredit
}

// EntryLine is a requested movement before it is posted.
type EntryLine struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
}

// ValidateLines checks the structural rules of a transaction: at least two
// lines, no zero or missing-account lines, and an exact zero sum.
func ValidateLines(lines []EntryLine) error {
	const op = "validate entries"
	if len(lines) < 2 {
		return Errorf(ErrValidation, op, "a transaction needs at least 2 entries, got %d", len(lines))
	}
	var sum int64
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return Errorf(ErrValidation, op, "entry %d has no account", i)
		}
		if l.Amount == 0 {
			return Errorf(ErrValidation, op, "entry %d has a zero amount", i)
		}
		next := sum + l.Amount
		// Signed overflow flips the sign against the addend.
		if (l.Amount > 0 && next < sum) || (l.Amount < 0 && next > sum) {
			return Errorf(ErrValidation, op, "entry amounts overflow")
		}
		sum = next
	}
	if sum != 0 {
		return Errorf(ErrValidation, op, "entries must sum to zero, got %d", sum)
	}
	return nil
}
