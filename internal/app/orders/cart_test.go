package orders

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

func TestAddToCart_MergesSameProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()

	cart, err := f.svc.AddToCart(ctx, f.buyer.user.ID, domain.ProductLine{
		ProductID: product, SellerID: f.seller.user.ID, Quantity: 1, UnitPrice: 300,
	})
	if err != nil {
		t.Fatalf("AddToCart() error: %v", err)
	}
	if cart.Status != domain.StatusCart || cart.Total != 300 {
		t.Errorf("cart = %s total %d, want cart total 300", cart.Status, cart.Total)
	}

	again, err := f.svc.AddToCart(ctx, f.buyer.user.ID, domain.ProductLine{
		ProductID: product, SellerID: f.seller.user.ID, Quantity: 2, UnitPrice: 250,
	})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != cart.ID {
		t.Errorf("second add opened cart %s, want %s", again.ID, cart.ID)
	}
	if len(again.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(again.Items))
	}
	if it := again.Items[0]; it.Quantity != 3 || it.UnitPrice != 250 || it.Subtotal != 750 {
		t.Errorf("item = %d x %d = %d, want 3 x 250 = 750", it.Quantity, it.UnitPrice, it.Subtotal)
	}
	if again.Total != 750 {
		t.Errorf("Total = %d, want 750", again.Total)
	}

	stored, err := f.svc.GetOrder(ctx, cart.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Total != 750 || len(stored.Items) != 1 || stored.Items[0].Quantity != 3 {
		t.Errorf("stored cart = %+v", stored)
	}
}

func TestAddToCart_Rejections(t *testing.T) {
	f := newFixture(t)
	seller := f.seller.user.ID
	tests := []struct {
		name  string
		buyer uuid.UUID
		line  domain.ProductLine
		want  error
	}{
		{"zero quantity", f.buyer.user.ID, domain.ProductLine{ProductID: uuid.New(), SellerID: seller, Quantity: 0, UnitPrice: 1}, domain.ErrValidation},
		{"negative price", f.buyer.user.ID, domain.ProductLine{ProductID: uuid.New(), SellerID: seller, Quantity: 1, UnitPrice: -1}, domain.ErrValidation},
		{"no seller", f.buyer.user.ID, domain.ProductLine{ProductID: uuid.New(), Quantity: 1, UnitPrice: 1}, domain.ErrValidation},
		{"overflow", f.buyer.user.ID, domain.ProductLine{ProductID: uuid.New(), SellerID: seller, Quantity: math.MaxInt64, UnitPrice: 2}, domain.ErrValidation},
		{"unknown buyer", uuid.New(), domain.ProductLine{ProductID: uuid.New(), SellerID: seller, Quantity: 1, UnitPrice: 1}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddToCart(context.Background(), tt.buyer, tt.line)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Checkout(ctx, f.buyer.user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("checkout without cart err = %v, want ErrNotFound", err)
	}

	cart, err := f.svc.AddToCart(ctx, f.buyer.user.ID, domain.ProductLine{
		ProductID: uuid.New(), SellerID: f.seller.user.ID, Quantity: 4, UnitPrice: 25,
	})
	if err != nil {
		t.Fatal(err)
	}
	o, err := f.svc.Checkout(ctx, f.buyer.user.ID)
	if err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}
	if o.ID != cart.ID || o.Status != domain.StatusPending || o.Total != 100 {
		t.Errorf("order = %s %s total %d, want %s pending total 100", o.ID, o.Status, o.Total, cart.ID)
	}

	// The buyer may open a new cart once the old one is checked out.
	next, err := f.svc.AddToCart(ctx, f.buyer.user.ID, domain.ProductLine{
		ProductID: uuid.New(), SellerID: f.seller.user.ID, Quantity: 1, UnitPrice: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if next.ID == cart.ID {
		t.Error("new cart reused the checked-out order")
	}
}

func TestCheckPlaceable(t *testing.T) {
	item := domain.OrderItem{ID: uuid.New(), SellerID: uuid.New(), Quantity: 2, UnitPrice: 50, Subtotal: 100}
	tests := []struct {
		name    string
		order   domain.Order
		wantErr bool
	}{
		{"empty", domain.Order{}, true},
		{"total mismatch", domain.Order{Total: 90, Items: []domain.OrderItem{item}}, true},
		{"ok", domain.Order{Total: 100, Items: []domain.OrderItem{item}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPlaceable(tt.order)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkPlaceable() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()

	o, err := f.svc.PlaceOrder(ctx, f.buyer.user.ID, []domain.ProductLine{
		{ProductID: product, SellerID: f.seller.user.ID, Quantity: 1, UnitPrice: 200},
		{ProductID: uuid.New(), SellerID: f.seller.user.ID, Quantity: 1, UnitPrice: 50},
		{ProductID: product, SellerID: f.seller.user.ID, Quantity: 2, UnitPrice: 200},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}
	if o.Status != domain.StatusPending || o.Total != 650 || len(o.Items) != 2 {
		t.Errorf("order = %s total %d items %d, want pending 650 2", o.Status, o.Total, len(o.Items))
	}
	if titles := f.notes.titlesFor(f.buyer.user.ID); len(titles) != 1 || titles[0] != "Order pending" {
		t.Errorf("buyer notifications = %v", titles)
	}

	if _, err := f.svc.PlaceOrder(ctx, f.buyer.user.ID, nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty order err = %v, want ErrValidation", err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{0, "KES 0.00"},
		{1250, "KES 12.50"},
		{-5, "KES -0.05"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.minor, "KES"); got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.minor, got, tt.want)
		}
	}
}
