package postgres

// Migrations returns the idempotent schema statements.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL CHECK (role IN ('buyer', 'seller', 'admin')),
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id         UUID PRIMARY KEY,
			owner_id   UUID REFERENCES users(id),
			owner_kind TEXT NOT NULL CHECK (owner_kind IN ('user', 'platform')),
			currency   CHAR(3) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			CHECK ((owner_kind = 'platform' AND owner_id IS NULL)
			    OR (owner_kind = 'user' AND owner_id IS NOT NULL))
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_user ON accounts(owner_id, currency) WHERE owner_kind = 'user'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_platform ON accounts(currency) WHERE owner_kind = 'platform'`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id          UUID PRIMARY KEY,
			reference   TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			seq            BIGSERIAL PRIMARY KEY,
			id             UUID NOT NULL UNIQUE,
			transaction_id UUID NOT NULL REFERENCES transactions(id),
			account_id     UUID NOT NULL REFERENCES accounts(id),
			amount         BIGINT NOT NULL CHECK (amount <> 0),
			created_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_account ON entries(account_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_tx ON entries(transaction_id)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id            UUID PRIMARY KEY,
			buyer_id      UUID NOT NULL REFERENCES users(id),
			currency      CHAR(3) NOT NULL,
			total         BIGINT NOT NULL DEFAULT 0 CHECK (total >= 0),
			status        TEXT NOT NULL,
			payout_status TEXT NOT NULL DEFAULT 'none',
			version       BIGINT NOT NULL DEFAULT 1,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_cart ON orders(buyer_id) WHERE status = 'cart'`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id         UUID PRIMARY KEY,
			order_id   UUID NOT NULL REFERENCES orders(id),
			product_id UUID NOT NULL,
			seller_id  UUID NOT NULL REFERENCES users(id),
			quantity   BIGINT NOT NULL CHECK (quantity >= 1),
			unit_price BIGINT NOT NULL CHECK (unit_price >= 0),
			subtotal   BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (order_id, product_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         UUID PRIMARY KEY,
			user_id    UUID NOT NULL REFERENCES users(id),
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			seq        BIGSERIAL PRIMARY KEY,
			id         UUID NOT NULL UNIQUE,
			actor_id   UUID REFERENCES users(id),
			actor_role TEXT NOT NULL,
			action     TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
}
