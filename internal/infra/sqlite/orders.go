package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Order Operations ───────────────────────────────────────────────────────

const orderCols = `id, buyer_id, currency, total, status, payout_status, version, created_at, updated_at`

func scanOrder(r rowScanner) (domain.Order, error) {
	var o domain.Order
	var status, payout, created, updated string
	if err := r.Scan(&o.ID, &o.BuyerID, &o.Currency, &o.Total, &status, &payout,
		&o.Version, &created, &updated); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.PayoutStatus = domain.PayoutStatus(payout)
	o.CreatedAt = parseTS(created)
	o.UpdatedAt = parseTS(updated)
	return o, nil
}

// InsertOrder stores a new order header. Items are inserted separately.
func (q queries) InsertOrder(ctx context.Context, o domain.Order) error {
	if o.Version == 0 {
		o.Version = 1
	}
	if o.PayoutStatus == "" {
		o.PayoutStatus = domain.PayoutNone
	}
	_, err := q.c.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, currency, total, status, payout_status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID.String(), o.BuyerID.String(), o.Currency, o.Total, string(o.Status),
		string(o.PayoutStatus), o.Version, ts(o.CreatedAt), ts(o.UpdatedAt))
	return mapErr("insert order", err)
}

// GetOrder loads an order with its items. SQLite has no row locks; the
// IMMEDIATE write transaction already holds the database lock, so lock is a no-op.
func (q queries) GetOrder(ctx context.Context, id uuid.UUID, lock bool) (domain.Order, error) {
	o, err := scanOrder(q.c.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, notFound("get order", "order", id)
	}
	if err != nil {
		return domain.Order{}, mapErr("get order", err)
	}
	if o.Items, err = q.ListOrderItems(ctx, o.ID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// UpdateOrder writes the mutable order fields if the version still matches.
func (q queries) UpdateOrder(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	res, err := q.c.ExecContext(ctx, `
		UPDATE orders SET
			status        = ?,
			payout_status = ?,
			total         = ?,
			version       = version + 1,
			updated_at    = ?
		WHERE id = ? AND version = ?
	`, string(o.Status), string(o.PayoutStatus), o.Total, ts(now), o.ID.String(), o.Version)
	if err != nil {
		return mapErr("update order", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("update order", err)
	}
	if n == 0 {
		return domain.Errorf(domain.ErrConflict, "update order", "order %s was modified concurrently", o.ID)
	}
	o.Version++
	o.UpdatedAt = now
	return nil
}

// FindCart returns the buyer's open cart with its items.
func (q queries) FindCart(ctx context.Context, buyerID uuid.UUID) (domain.Order, error) {
	o, err := scanOrder(q.c.QueryRowContext(ctx, `
		SELECT `+orderCols+` FROM orders WHERE buyer_id = ? AND status = 'cart'
	`, buyerID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, notFound("find cart", "cart of buyer", buyerID)
	}
	if err != nil {
		return domain.Order{}, mapErr("find cart", err)
	}
	if o.Items, err = q.ListOrderItems(ctx, o.ID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// ListOrderItems returns an order's items in insertion order.
func (q queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := q.c.QueryContext(ctx, `
		SELECT id, order_id, product_id, seller_id, quantity, unit_price, subtotal, created_at
		FROM order_items WHERE order_id = ? ORDER BY created_at, id
	`, orderID.String())
	if err != nil {
		return nil, mapErr("list order items", err)
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var created string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SellerID,
			&it.Quantity, &it.UnitPrice, &it.Subtotal, &created); err != nil {
			return nil, err
		}
		it.CreatedAt = parseTS(created)
		out = append(out, it)
	}
	return out, rows.Err()
}

// InsertOrderItem adds a line to an order.
func (q queries) InsertOrderItem(ctx context.Context, it domain.OrderItem) error {
	_, err := q.c.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, seller_id, quantity, unit_price, subtotal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ID.String(), it.OrderID.String(), it.ProductID.String(), it.SellerID.String(),
		it.Quantity, it.UnitPrice, it.Subtotal, ts(it.CreatedAt))
	return mapErr("insert order item", err)
}

// UpdateOrderItem rewrites the quantity, price and subtotal of a line.
func (q queries) UpdateOrderItem(ctx context.Context, it domain.OrderItem) error {
	res, err := q.c.ExecContext(ctx, `
		UPDATE order_items SET quantity = ?, unit_price = ?, subtotal = ? WHERE id = ?
	`, it.Quantity, it.UnitPrice, it.Subtotal, it.ID.String())
	if err != nil {
		return mapErr("update order item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("update order item", "order item", it.ID)
	}
	return nil
}

// ListOrdersByStatus returns orders in a status, oldest first, without items.
func (q queries) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	rows, err := q.c.QueryContext(ctx, `
		SELECT `+orderCols+` FROM orders WHERE status = ? ORDER BY created_at LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, mapErr("list orders", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountOrdersByStatus returns the number of orders per status.
func (q queries) CountOrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := q.c.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, mapErr("count orders", err)
	}
	defer rows.Close()

	out := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var s string
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[domain.OrderStatus(s)] = n
	}
	return out, rows.Err()
}

// SumOrderTotals sums the totals of every order in a status.
func (q queries) SumOrderTotals(ctx context.Context, status domain.OrderStatus) (int64, error) {
	var sum int64
	err := q.c.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = ?
	`, string(status)).Scan(&sum)
	return sum, mapErr("sum orders", err)
}
