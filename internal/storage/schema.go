package storage

// DDL per driver. SQLite gets rowid-backed keys, postgres gets BIGSERIAL.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(254) NOT NULL UNIQUE,
		phone VARCHAR(20) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		quantity INTEGER NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		order_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id BIGINT NOT NULL REFERENCES orders(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		PRIMARY KEY (order_id, product_id)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price NUMERIC NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		quantity INTEGER NOT NULL,
		total_amount NUMERIC NOT NULL,
		order_date TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id INTEGER NOT NULL REFERENCES orders(id),
		product_id INTEGER NOT NULL REFERENCES products(id),
		PRIMARY KEY (order_id, product_id)
	)`,
}

func schemaFor(driver string) []string {
	if driver == DriverPostgres {
		return postgresSchema
	}
	return sqliteSchema
}
