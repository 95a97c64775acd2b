package orders

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Cart & Order Placement ─────────────────────────────────────────────────
// Product price and seller come from the catalog as domain.ProductLine values;
// the catalog itself lives outside this service.

// AddToCart adds line to the buyer's open cart, creating the cart if needed.
// Adding a product already in the cart raises its quantity and takes the
// latest price.
func (s *Service) AddToCart(ctx context.Context, buyerID uuid.UUID, line domain.ProductLine) (domain.Order, error) {
	if err := line.Validate(); err != nil {
		return domain.Order{}, err
	}
	var cart domain.Order
	err := s.store.WithTx(ctx, func(q domain.Queries) error {
		if _, err := q.GetUser(ctx, buyerID); err != nil {
			return err
		}
		var err error
		cart, err = q.FindCart(ctx, buyerID)
		if errors.Is(err, domain.ErrNotFound) {
			cart, err = s.newOrder(ctx, q, buyerID, domain.StatusCart)
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		merged := false
		for i, it := range cart.Items {
			if it.ProductID != line.ProductID {
				continue
			}
			it.Quantity += line.Quantity
			it.UnitPrice = line.UnitPrice
			if it.Subtotal, err = subtotal(it.Quantity, it.UnitPrice); err != nil {
				return err
			}
			if err := q.UpdateOrderItem(ctx, it); err != nil {
				return err
			}
			cart.Items[i] = it
			merged = true
			break
		}
		if !merged {
			it, err := itemFromLine(cart.ID, line, now)
			if err != nil {
				return err
			}
			if err := q.InsertOrderItem(ctx, it); err != nil {
				return err
			}
			cart.Items = append(cart.Items, it)
		}

		cart.Total = domain.ItemsTotal(cart.Items)
		return q.UpdateOrder(ctx, &cart)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Debug("cart updated", "order_id", cart.ID, "buyer_id", buyerID, "total", cart.Total)
	s.committed()
	return cart, nil
}

// Checkout moves the buyer's cart to pending. An empty cart is a validation error.
func (s *Service) Checkout(ctx context.Context, buyerID uuid.UUID) (domain.Order, error) {
	cart, err := s.store.FindCart(ctx, buyerID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.TransitionOrder(ctx, cart.ID, domain.StatusPending, domain.RoleBuyer)
}

// PlaceOrder creates a pending order straight from lines, bypassing the cart.
func (s *Service) PlaceOrder(ctx context.Context, buyerID uuid.UUID, lines []domain.ProductLine) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, domain.Errorf(domain.ErrValidation, "place order", "order has no items")
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return domain.Order{}, err
		}
	}

	var o domain.Order
	err := s.store.WithTx(ctx, func(q domain.Queries) error {
		if _, err := q.GetUser(ctx, buyerID); err != nil {
			return err
		}
		var err error
		if o, err = s.newOrder(ctx, q, buyerID, domain.StatusPending); err != nil {
			return err
		}
		now := time.Now().UTC()
		byProduct := make(map[uuid.UUID]int)
		for _, l := range lines {
			if i, ok := byProduct[l.ProductID]; ok {
				it := &o.Items[i]
				it.Quantity += l.Quantity
				it.UnitPrice = l.UnitPrice
				if it.Subtotal, err = subtotal(it.Quantity, it.UnitPrice); err != nil {
					return err
				}
				continue
			}
			it, err := itemFromLine(o.ID, l, now)
			if err != nil {
				return err
			}
			byProduct[l.ProductID] = len(o.Items)
			o.Items = append(o.Items, it)
		}
		for _, it := range o.Items {
			if err := q.InsertOrderItem(ctx, it); err != nil {
				return err
			}
		}
		o.Total = domain.ItemsTotal(o.Items)
		return q.UpdateOrder(ctx, &o)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order placed", "order_id", o.ID, "buyer_id", buyerID, "total", o.Total)
	s.afterCommit(ctx, outcome{order: o})
	return o, nil
}

func (s *Service) newOrder(ctx context.Context, q domain.Queries, buyerID uuid.UUID, status domain.OrderStatus) (domain.Order, error) {
	now := time.Now().UTC()
	o := domain.Order{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		Currency:     s.cfg.Currency,
		Status:       status,
		PayoutStatus: domain.PayoutNone,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := q.InsertOrder(ctx, o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func itemFromLine(orderID uuid.UUID, l domain.ProductLine, now time.Time) (domain.OrderItem, error) {
	sub, err := subtotal(l.Quantity, l.UnitPrice)
	if err != nil {
		return domain.OrderItem{}, err
	}
	return domain.OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: l.ProductID,
		SellerID:  l.SellerID,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Subtotal:  sub,
		CreatedAt: now,
	}, nil
}

func subtotal(qty, price int64) (int64, error) {
	if price != 0 && qty > math.MaxInt64/price {
		return 0, domain.Errorf(domain.ErrValidation, "order item", "subtotal of %d x %d overflows", qty, price)
	}
	return qty * price, nil
}

// checkPlaceable guards cart → pending.
func checkPlaceable(o domain.Order) error {
	if len(o.Items) == 0 {
		return domain.Errorf(domain.ErrValidation, "checkout", "cart %s is empty", o.ID)
	}
	if sum := domain.ItemsTotal(o.Items); sum != o.Total {
		return domain.Errorf(domain.ErrValidation, "checkout", "order total %d does not match item subtotals %d", o.Total, sum)
	}
	return nil
}
