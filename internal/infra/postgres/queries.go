package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Users & Notifications ──────────────────────────────────────────────────

func (q queries) InsertUser(ctx context.Context, u domain.User) error {
	_, err := q.c.Exec(ctx, `
		INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt)
	return mapErr("insert user", err)
}

func (q queries) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	var role string
	err := q.c.QueryRow(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, notFound("get user", "user", id)
	}
	u.Role = domain.Role(role)
	return u, mapErr("get user", err)
}

func (q queries) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := q.c.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, created_at) VALUES ($1, $2, $3, $4, $5)
	`, n.ID, n.UserID, n.Title, n.Message, n.CreatedAt)
	return mapErr("insert notification", err)
}

func (q queries) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	rows, err := q.c.Query(ctx, `
		SELECT id, user_id, title, message, created_at FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, mapErr("list notifications", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Notification, error) {
		var n domain.Notification
		err := r.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.CreatedAt)
		return n, err
	})
	return out, mapErr("list notifications", err)
}

// ─── Accounts ───────────────────────────────────────────────────────────────

const accountCols = `id, owner_id, owner_kind, currency, created_at`

func scanAccount(r pgx.Row) (domain.Account, error) {
	var a domain.Account
	var kind string
	if err := r.Scan(&a.ID, &a.OwnerID, &kind, &a.Currency, &a.CreatedAt); err != nil {
		return domain.Account{}, err
	}
	a.OwnerKind = domain.OwnerKind(kind)
	return a, nil
}

func (q queries) InsertAccount(ctx context.Context, a domain.Account) error {
	_, err := q.c.Exec(ctx, `
		INSERT INTO accounts (id, owner_id, owner_kind, currency, created_at) VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.OwnerID, string(a.OwnerKind), a.Currency, a.CreatedAt)
	return mapErr("insert account", err)
}

func (q queries) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	a, err := scanAccount(q.c.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, notFound("get account", "account", id)
	}
	return a, mapErr("get account", err)
}

func (q queries) FindAccount(ctx context.Context, kind domain.OwnerKind, ownerID *uuid.UUID, currency string) (domain.Account, error) {
	var row pgx.Row
	if kind == domain.OwnerPlatform {
		row = q.c.QueryRow(ctx, `
			SELECT `+accountCols+` FROM accounts WHERE owner_kind = 'platform' AND currency = $1
		`, currency)
	} else {
		if ownerID == nil {
			return domain.Account{}, domain.Errorf(domain.ErrValidation, "find account", "user account needs an owner")
		}
		row = q.c.QueryRow(ctx, `
			SELECT `+accountCols+` FROM accounts WHERE owner_kind = 'user' AND owner_id = $1 AND currency = $2
		`, *ownerID, currency)
	}
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, notFound("find account", string(kind)+" account in", currency)
	}
	return a, mapErr("find account", err)
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// InsertTransaction writes the header, then every entry.
func (q queries) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	if _, err := q.c.Exec(ctx, `
		INSERT INTO transactions (id, reference, description, created_at) VALUES ($1, $2, $3, $4)
	`, tx.ID, tx.Reference, tx.Description, tx.CreatedAt); err != nil {
		return mapErr("insert transaction", err)
	}
	for _, e := range tx.Entries {
		if _, err := q.c.Exec(ctx, `
			INSERT INTO entries (id, transaction_id, account_id, amount, created_at) VALUES ($1, $2, $3, $4, $5)
		`, e.ID, tx.ID, e.AccountID, e.Amount, e.CreatedAt); err != nil {
			return mapErr("insert entry", err)
		}
	}
	return nil
}

const entryCols = `seq, id, transaction_id, account_id, amount, created_at`

func collectEntries(rows pgx.Rows) ([]domain.Entry, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Entry, error) {
		var e domain.Entry
		err := r.Scan(&e.Seq, &e.ID, &e.TransactionID, &e.AccountID, &e.Amount, &e.CreatedAt)
		return e, err
	})
}

func (q queries) GetTransactionByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	var t domain.Transaction
	err := q.c.QueryRow(ctx, `
		SELECT id, reference, description, created_at FROM transactions WHERE reference = $1
	`, reference).Scan(&t.ID, &t.Reference, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, notFound("get transaction", "transaction", reference)
	}
	if err != nil {
		return domain.Transaction{}, mapErr("get transaction", err)
	}
	rows, err := q.c.Query(ctx, `SELECT `+entryCols+` FROM entries WHERE transaction_id = $1 ORDER BY seq`, t.ID)
	if err != nil {
		return domain.Transaction{}, mapErr("get transaction entries", err)
	}
	if t.Entries, err = collectEntries(rows); err != nil {
		return domain.Transaction{}, mapErr("get transaction entries", err)
	}
	return t, nil
}

func (q queries) AccountBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := q.c.QueryRow(ctx, `
		SELECT COALESCE((SELECT SUM(e.amount) FROM entries e WHERE e.account_id = a.id), 0)::BIGINT
		FROM accounts a WHERE a.id = $1
	`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, notFound("account balance", "account", accountID)
	}
	return balance, mapErr("account balance", err)
}

func (q queries) ListEntries(ctx context.Context, accountID uuid.UUID, beforeSeq int64, limit int) ([]domain.Entry, error) {
	var rows pgx.Rows
	var err error
	if beforeSeq > 0 {
		rows, err = q.c.Query(ctx, `
			SELECT `+entryCols+` FROM entries WHERE account_id = $1 AND seq < $2 ORDER BY seq DESC LIMIT $3
		`, accountID, beforeSeq, limit)
	} else {
		rows, err = q.c.Query(ctx, `
			SELECT `+entryCols+` FROM entries WHERE account_id = $1 ORDER BY seq DESC LIMIT $2
		`, accountID, limit)
	}
	if err != nil {
		return nil, mapErr("list entries", err)
	}
	out, err := collectEntries(rows)
	return out, mapErr("list entries", err)
}

// ─── Orders ─────────────────────────────────────────────────────────────────

const orderCols = `id, buyer_id, currency, total, status, payout_status, version, created_at, updated_at`

func scanOrder(r pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status, payout string
	err := r.Scan(&o.ID, &o.BuyerID, &o.Currency, &o.Total, &status, &payout, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	o.Status = domain.OrderStatus(status)
	o.PayoutStatus = domain.PayoutStatus(payout)
	return o, err
}

func (q queries) InsertOrder(ctx context.Context, o domain.Order) error {
	if o.Version == 0 {
		o.Version = 1
	}
	if o.PayoutStatus == "" {
		o.PayoutStatus = domain.PayoutNone
	}
	_, err := q.c.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, currency, total, status, payout_status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.BuyerID, o.Currency, o.Total, string(o.Status), string(o.PayoutStatus), o.Version, o.CreatedAt, o.UpdatedAt)
	return mapErr("insert order", err)
}

// GetOrder loads an order and its items. With lock the row stays locked
// FOR UPDATE until the surrounding transaction ends.
func (q queries) GetOrder(ctx context.Context, id uuid.UUID, lock bool) (domain.Order, error) {
	sql := `SELECT ` + orderCols + ` FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.c.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
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

func (q queries) UpdateOrder(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	tag, err := q.c.Exec(ctx, `
		UPDATE orders SET status = $1, payout_status = $2, total = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6
	`, string(o.Status), string(o.PayoutStatus), o.Total, now, o.ID, o.Version)
	if err != nil {
		return mapErr("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrConflict, "update order", "order %s was modified concurrently", o.ID)
	}
	o.Version++
	o.UpdatedAt = now
	return nil
}

func (q queries) FindCart(ctx context.Context, buyerID uuid.UUID) (domain.Order, error) {
	o, err := scanOrder(q.c.QueryRow(ctx, `
		SELECT `+orderCols+` FROM orders WHERE buyer_id = $1 AND status = 'cart' FOR UPDATE
	`, buyerID))
	if errors.Is(err, pgx.ErrNoRows) {
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

func (q queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := q.c.Query(ctx, `
		SELECT id, order_id, product_id, seller_id, quantity, unit_price, subtotal, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, mapErr("list order items", err)
	}
	items, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.OrderItem, error) {
		var it domain.OrderItem
		err := r.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SellerID, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CreatedAt)
		return it, err
	})
	return items, mapErr("list order items", err)
}

func (q queries) InsertOrderItem(ctx context.Context, it domain.OrderItem) error {
	_, err := q.c.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, seller_id, quantity, unit_price, subtotal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, it.ID, it.OrderID, it.ProductID, it.SellerID, it.Quantity, it.UnitPrice, it.Subtotal, it.CreatedAt)
	return mapErr("insert order item", err)
}

func (q queries) UpdateOrderItem(ctx context.Context, it domain.OrderItem) error {
	tag, err := q.c.Exec(ctx, `
		UPDATE order_items SET quantity = $1, unit_price = $2, subtotal = $3 WHERE id = $4
	`, it.Quantity, it.UnitPrice, it.Subtotal, it.ID)
	if err != nil {
		return mapErr("update order item", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("update order item", "order item", it.ID)
	}
	return nil
}

func (q queries) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	rows, err := q.c.Query(ctx, `
		SELECT `+orderCols+` FROM orders WHERE status = $1 ORDER BY created_at LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, mapErr("list orders", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(r)
	})
	return out, mapErr("list orders", err)
}

func (q queries) CountOrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := q.c.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
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

func (q queries) SumOrderTotals(ctx context.Context, status domain.OrderStatus) (int64, error) {
	var sum int64
	err := q.c.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)::BIGINT FROM orders WHERE status = $1
	`, string(status)).Scan(&sum)
	return sum, mapErr("sum orders", err)
}
