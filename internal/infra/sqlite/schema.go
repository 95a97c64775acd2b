package sqlite

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements, one per string (SQLite executes
// one at a time). All statements are idempotent.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL CHECK (role IN ('buyer', 'seller', 'admin')),
			created_at TEXT NOT NULL
		)`,

		// Ledger accounts. Platform accounts have no owner.
		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT REFERENCES users(id),
			owner_kind TEXT NOT NULL CHECK (owner_kind IN ('user', 'platform')),
			currency   TEXT NOT NULL,
			created_at TEXT NOT NULL,
			CHECK ((owner_kind = 'platform' AND owner_id IS NULL)
			    OR (owner_kind = 'user' AND owner_id IS NOT NULL))
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_user ON accounts(owner_id, currency) WHERE owner_kind = 'user'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_platform ON accounts(currency) WHERE owner_kind = 'platform'`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id          TEXT PRIMARY KEY,
			reference   TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		)`,

		// Entries are append-only. seq orders them for paging.
		`CREATE TABLE IF NOT EXISTS entries (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			id             TEXT NOT NULL UNIQUE,
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			account_id     TEXT NOT NULL REFERENCES accounts(id),
			amount         INTEGER NOT NULL CHECK (amount <> 0),
			created_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_account ON entries(account_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_tx ON entries(transaction_id)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id            TEXT PRIMARY KEY,
			buyer_id      TEXT NOT NULL REFERENCES users(id),
			currency      TEXT NOT NULL,
			total         INTEGER NOT NULL DEFAULT 0 CHECK (total >= 0),
			status        TEXT NOT NULL,
			payout_status TEXT NOT NULL DEFAULT 'none',
			version       INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at)`,
		// One open cart per buyer.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_cart ON orders(buyer_id) WHERE status = 'cart'`,

		`CREATE TABLE IF NOT EXISTS order_items (
			id         TEXT PRIMARY KEY,
			order_id   TEXT NOT NULL REFERENCES orders(id),
			product_id TEXT NOT NULL,
			seller_id  TEXT NOT NULL REFERENCES users(id),
			quantity   INTEGER NOT NULL CHECK (quantity >= 1),
			unit_price INTEGER NOT NULL CHECK (unit_price >= 0),
			subtotal   INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(order_id, product_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,

		// Audit records are written inside the unit of work they describe.
		`CREATE TABLE IF NOT EXISTS audit_logs (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			actor_id   TEXT REFERENCES users(id),
			actor_role TEXT NOT NULL,
			action     TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`,
	}
}
