package domain

import (
	"context"

	"github.com/google/uuid"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Queries is the set of fixed-shape reads and writes the application needs.
// Implementations return ErrNotFound, ErrConflict (unique violations) and
// ErrValidation (foreign key violations) as *Error values.
type Queries interface {
	InsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id uuid.UUID) (User, error)

	InsertAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	FindAccount(ctx context.Context, kind OwnerKind, ownerID *uuid.UUID, currency string) (Account, error)

	// InsertTransaction writes the transaction row and all its entries.
	// A duplicate reference returns ErrConflict.
	InsertTransaction(ctx context.Context, tx Transaction) error
	GetTransactionByReference(ctx context.Context, reference string) (Transaction, error)
	AccountBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
	// ListEntries returns entries with seq < beforeSeq, newest first. beforeSeq <= 0 means from the top.
	ListEntries(ctx context.Context, accountID uuid.UUID, beforeSeq int64, limit int) ([]Entry, error)

	InsertOrder(ctx context.Context, o Order) error
	// GetOrder loads the order with its items. lock takes a row lock where the store supports one.
	GetOrder(ctx context.Context, id uuid.UUID, lock bool) (Order, error)
	// UpdateOrder writes status, payout status and total when o.Version still matches,
	// then bumps o.Version and o.UpdatedAt. A stale version returns ErrConflict.
	UpdateOrder(ctx context.Context, o *Order) error
	FindCart(ctx context.Context, buyerID uuid.UUID) (Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	InsertOrderItem(ctx context.Context, it OrderItem) error
	UpdateOrderItem(ctx context.Context, it OrderItem) error
	ListOrdersByStatus(ctx context.Context, status OrderStatus, limit int) ([]Order, error)
	CountOrdersByStatus(ctx context.Context) (map[OrderStatus]int64, error)
	SumOrderTotals(ctx context.Context, status OrderStatus) (int64, error)

	InsertNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)

	InsertAuditLog(ctx context.Context, l AuditLog) error
	// ListAuditLogs returns the most recent records, newest first.
	ListAuditLogs(ctx context.Context, limit int) ([]AuditLog, error)
}

// Store is a Queries bound to a database, plus units of work.
type Store interface {
	Queries

	// WithTx runs fn in one write transaction. Any error rolls everything back.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	// Snapshot runs fn in one read transaction so multiple reads see the same state.
	Snapshot(ctx context.Context, fn func(q Queries) error) error

	Close() error
}

// Notifier delivers a user notification. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
