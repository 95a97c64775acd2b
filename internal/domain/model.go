// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture. It depends on nothing
// but identifiers and time.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ─── Users ──────────────────────────────────────────────────────────────────

// Role is the marketplace role of a user or of the caller of an operation.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
	// RoleSystem is used by internal callers such as the payment webhook.
	RoleSystem Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// User is a marketplace participant. Every user owns one ledger account per currency.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an in-app message for a user. Written after commit, never inside
// a ledger unit of work.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Audit ──────────────────────────────────────────────────────────────────

// AuditAction names a privileged change recorded in the audit log.
type AuditAction string

const (
	AuditUserCreated        AuditAction = "USER_CREATED"
	AuditOrderStatusUpdated AuditAction = "ORDER_STATUS_UPDATED"
	AuditOrderRefunded      AuditAction = "ORDER_REFUNDED"
)

// AuditLog is one audit record. It is written in the same unit of work as the
// change it describes, so a rolled-back change leaves no record.
type AuditLog struct {
	ID uuid.UUID `json:"id"`
	// ActorID is nil when the caller is only known by role.
	ActorID   *uuid.UUID        `json:"actor_id,omitempty"`
	ActorRole Role              `json:"actor_role"`
	Action    AuditAction       `json:"action"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewAuditLog stamps a record with a fresh ID and the current time.
func NewAuditLog(actorID *uuid.UUID, role Role, action AuditAction, metadata map[string]string) AuditLog {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return AuditLog{
		ID:        uuid.New(),
		ActorID:   actorID,
		ActorRole: role,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// ─── Orders ─────────────────────────────────────────────────────────────────

// OrderStatus is a node of the order state machine.
type OrderStatus string

const (
	StatusCart       OrderStatus = "cart"
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusDisputed   OrderStatus = "disputed"
	StatusRefunded   OrderStatus = "refunded"
)

// AllStatuses lists every order status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusCart, StatusPending, StatusProcessing, StatusShipped,
	StatusCompleted, StatusCancelled, StatusDisputed, StatusRefunded,
}

// ParseStatus converts a string into an OrderStatus.
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", Errorf(ErrValidation, "parse status", "unknown order status %q", s)
}

// PayoutStatus tracks whether the seller side of an order has been paid.
// It is distinct from OrderStatus: a disputed order may or may not have been paid out.
type PayoutStatus string

const (
	PayoutNone     PayoutStatus = "none"
	PayoutPaid     PayoutStatus = "paid"
	PayoutReversed PayoutStatus = "reversed"
)

// Order is a buyer's purchase. Seller attribution is derived from its items.
type Order struct {
	ID           uuid.UUID    `json:"id"`
	BuyerID      uuid.UUID    `json:"buyer_id"`
	Currency     string       `json:"currency"`
	Total        int64        `json:"total"`
	Status       OrderStatus  `json:"status"`
	PayoutStatus PayoutStatus `json:"payout_status"`
	Version      int64        `json:"version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Items        []OrderItem  `json:"items,omitempty"`
}

// OrderItem is a line of an order. SellerID is copied from the catalog product
// when the line is added, so attribution survives later catalog edits.
type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Quantity  int64     `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	Subtotal  int64     `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductLine is what the external catalog hands us for one product: who sells
// it and at what price, plus the requested quantity.
type ProductLine struct {
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Quantity  int64     `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}

// Validate checks a product line before it becomes an order item.
func (l ProductLine) Validate() error {
	switch {
	case l.ProductID == uuid.Nil:
		return Errorf(ErrValidation, "product line", "product_id is required")
	case l.SellerID == uuid.Nil:
		return Errorf(ErrValidation, "product line", "seller_id is required")
	case l.Quantity < 1:
		return Errorf(ErrValidation, "product line", "quantity must be at least 1")
	case l.UnitPrice < 0:
		return Errorf(ErrValidation, "product line", "unit_price must not be negative")
	}
	return nil
}

// ItemsTotal sums item subtotals.
func ItemsTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal
	}
	return total
}

// SellerTotals returns the gross amount attributed to each seller, in first-seen order.
func SellerTotals(items []OrderItem) []SellerAmount {
	idx := make(map[uuid.UUID]int)
	var out []SellerAmount
	for _, it := range items {
		i, ok := idx[it.SellerID]
		if !ok {
			i = len(out)
			idx[it.SellerID] = i
			out = append(out, SellerAmount{SellerID: it.SellerID})
		}
		out[i].Amount += it.Subtotal
	}
	return out
}

// SellerAmount is an amount attributed to one seller.
type SellerAmount struct {
	SellerID uuid.UUID `json:"seller_id"`
	Amount   int64     `json:"amount"`
}

// ─── Misc ───────────────────────────────────────────────────────────────────

// NormalizeCurrency upper-cases and validates an ISO-4217 style code.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", Errorf(ErrValidation, "currency", "currency must be 3 letters, got %q", code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", Errorf(ErrValidation, "currency", "currency must be 3 letters, got %q", code)
		}
	}
	return c, nil
}

// OrderReference is the idempotency reference of an order's payout transaction.
func OrderReference(orderID uuid.UUID) string { return fmt.Sprintf("ORDER-%s", orderID) }

// RefundReference is the idempotency reference of an order's refund transaction.
func RefundReference(orderID uuid.UUID) string { return fmt.Sprintf("REFUND-%s", orderID) }
