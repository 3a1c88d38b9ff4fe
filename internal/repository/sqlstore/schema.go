package sqlstore

// schemas holds the idempotent DDL of each supported driver, applied one statement at a time.
// Emails are compared byte for byte on every driver, so MySQL pins a binary collation on the column.
var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			status       TEXT NOT NULL,
			total_amount REAL NOT NULL,
			metadata     TEXT,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users (created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_created_at ON orders (user_id, created_at, id)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id            VARCHAR(36)  NOT NULL PRIMARY KEY,
			email         VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			name          VARCHAR(255) NOT NULL,
			role          VARCHAR(16)  NOT NULL,
			created_at    VARCHAR(40)  NOT NULL,
			updated_at    VARCHAR(40)  NOT NULL,
			INDEX idx_users_created_at (created_at, id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id      VARCHAR(36) NOT NULL,
			status       VARCHAR(16) NOT NULL,
			total_amount DOUBLE      NOT NULL,
			metadata     TEXT        NULL,
			created_at   VARCHAR(40) NOT NULL,
			updated_at   VARCHAR(40) NOT NULL,
			INDEX idx_orders_user_created_at (user_id, created_at, id)
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			status       TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			metadata     TEXT,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users (created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_created_at ON orders (user_id, created_at, id)`,
	},
}
