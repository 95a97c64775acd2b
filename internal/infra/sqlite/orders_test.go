package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

func seedOrder(t *testing.T, db *DB, buyer, seller uuid.UUID, status domain.OrderStatus) domain.Order {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	o := domain.Order{
		ID: uuid.New(), BuyerID: buyer, Currency: "KES", Total: 1000,
		Status: status, PayoutStatus: domain.PayoutNone, Version: 1,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.InsertOrder(ctx, o); err != nil {
		t.Fatalf("InsertOrder() error: %v", err)
	}
	it := domain.OrderItem{
		ID: uuid.New(), OrderID: o.ID, ProductID: uuid.New(), SellerID: seller,
		Quantity: 2, UnitPrice: 500, Subtotal: 1000, CreatedAt: now,
	}
	if err := db.InsertOrderItem(ctx, it); err != nil {
		t.Fatalf("InsertOrderItem() error: %v", err)
	}
	o.Items = []domain.OrderItem{it}
	return o
}

func TestOrders_GetWithItems(t *testing.T) {
	db := newTestDB(t)
	b, s := seedUser(t, db, domain.RoleBuyer), seedUser(t, db, domain.RoleSeller)
	o := seedOrder(t, db, b.ID, s.ID, domain.StatusShipped)

	got, err := db.GetOrder(context.Background(), o.ID, false)
	if err != nil {
		t.Fatalf("GetOrder() error: %v", err)
	}
	if got.Status != domain.StatusShipped || got.Total != 1000 || got.Version != 1 {
		t.Errorf("GetOrder() = %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].SellerID != s.ID {
		t.Errorf("GetOrder().Items = %+v", got.Items)
	}
	if _, err := db.GetOrder(context.Background(), uuid.New(), false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetOrder(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestOrders_UpdateVersionCheck(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b, s := seedUser(t, db, domain.RoleBuyer), seedUser(t, db, domain.RoleSeller)
	o := seedOrder(t, db, b.ID, s.ID, domain.StatusPending)

	stale := o
	o.Status = domain.StatusProcessing
	if err := db.UpdateOrder(ctx, &o); err != nil {
		t.Fatalf("UpdateOrder() error: %v", err)
	}
	if o.Version != 2 {
		t.Errorf("Version after update = %d, want 2", o.Version)
	}

	stale.Status = domain.StatusCancelled
	if err := db.UpdateOrder(ctx, &stale); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("stale UpdateOrder() error = %v, want ErrConflict", err)
	}
	got, _ := db.GetOrder(ctx, o.ID, false)
	if got.Status != domain.StatusProcessing {
		t.Errorf("Status = %s, want processing", got.Status)
	}
}

func TestOrders_OneCartPerBuyer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b, s := seedUser(t, db, domain.RoleBuyer), seedUser(t, db, domain.RoleSeller)
	cart := seedOrder(t, db, b.ID, s.ID, domain.StatusCart)

	dup := domain.Order{ID: uuid.New(), BuyerID: b.ID, Currency: "KES", Status: domain.StatusCart,
		CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.InsertOrder(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second cart error = %v, want ErrConflict", err)
	}

	got, err := db.FindCart(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindCart() error: %v", err)
	}
	if got.ID != cart.ID || len(got.Items) != 1 {
		t.Errorf("FindCart() = %+v", got)
	}
}

func TestOrders_UpdateItem(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b, s := seedUser(t, db, domain.RoleBuyer), seedUser(t, db, domain.RoleSeller)
	o := seedOrder(t, db, b.ID, s.ID, domain.StatusCart)

	it := o.Items[0]
	it.Quantity, it.Subtotal = 3, 1500
	if err := db.UpdateOrderItem(ctx, it); err != nil {
		t.Fatalf("UpdateOrderItem() error: %v", err)
	}
	items, _ := db.ListOrderItems(ctx, o.ID)
	if len(items) != 1 || items[0].Quantity != 3 || items[0].Subtotal != 1500 {
		t.Errorf("items = %+v", items)
	}

	dup := o.Items[0]
	dup.ID = uuid.New()
	if err := db.InsertOrderItem(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate product line error = %v, want ErrConflict", err)
	}
}

func TestOrders_StatsQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b, s := seedUser(t, db, domain.RoleBuyer), seedUser(t, db, domain.RoleSeller)
	seedOrder(t, db, b.ID, s.ID, domain.StatusCompleted)
	seedOrder(t, db, b.ID, s.ID, domain.StatusCompleted)
	seedOrder(t, db, b.ID, s.ID, domain.StatusDisputed)

	counts, err := db.CountOrdersByStatus(ctx)
	if err != nil {
		t.Fatalf("CountOrdersByStatus() error: %v", err)
	}
	if counts[domain.StatusCompleted] != 2 || counts[domain.StatusDisputed] != 1 {
		t.Errorf("counts = %v", counts)
	}

	gmv, err := db.SumOrderTotals(ctx, domain.StatusCompleted)
	if err != nil || gmv != 2000 {
		t.Errorf("SumOrderTotals(completed) = %d, %v; want 2000", gmv, err)
	}

	disputed, err := db.ListOrdersByStatus(ctx, domain.StatusDisputed, 10)
	if err != nil || len(disputed) != 1 {
		t.Errorf("ListOrdersByStatus(disputed) = %d orders, %v", len(disputed), err)
	}
}
