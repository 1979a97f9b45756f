package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"crm/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// SQLStore implements Store on database/sql. Queries are written with `?`
// placeholders and rebound to $N for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects a store for the configured driver. The memory driver needs
// no DSN and is meant for local runs and tests.
func Open(driver, dsn string) (Store, error) {
	if driver == DriverMemory {
		return NewMemory(), nil
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewSQL(db, driver), nil
}

func NewSQL(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaFor(s.driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLStore) Close() error                   { return s.db.Close() }

func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

// insertID runs an INSERT and returns the generated key. lib/pq has no
// LastInsertId, so postgres goes through RETURNING.
func (s *SQLStore) insertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	exec := func(q string, a ...any) (sql.Result, error) { return s.db.ExecContext(ctx, q, a...) }
	queryRow := func(q string, a ...any) *sql.Row { return s.db.QueryRowContext(ctx, q, a...) }
	if tx != nil {
		exec = func(q string, a ...any) (sql.Result, error) { return tx.ExecContext(ctx, q, a...) }
		queryRow = func(q string, a ...any) *sql.Row { return tx.QueryRowContext(ctx, q, a...) }
	}
	if s.driver == DriverPostgres {
		var id int64
		err := queryRow(s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	id, err := s.insertID(ctx, nil,
		`INSERT INTO customers (name, email, phone) VALUES (?, ?, ?)`,
		c.Name, c.Email, c.Phone)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	c.ID = id
	return nil
}

func (s *SQLStore) CustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, email, phone FROM customers WHERE id = ?`), id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customer by id: %w", err)
	}
	return &c, nil
}

func (s *SQLStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM customers WHERE email = ?`), email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("email taken: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteInactiveCustomers removes every customer without an order dated at or
// after cutoff, together with their orders and order_products rows. The
// cascade runs inside one transaction, children first, so the customer delete
// never trips the foreign keys. An inactive customer's orders all predate the
// cutoff, so dropping them cannot change who counts as active.
func (s *SQLStore) DeleteInactiveCustomers(ctx context.Context, cutoff time.Time) (int64, error) {
	const inactive = `SELECT id FROM customers WHERE id NOT IN (
			SELECT DISTINCT customer_id FROM orders WHERE order_date >= ?
		)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete inactive customers: %w", err)
	}
	for _, q := range []string{
		`DELETE FROM order_products WHERE order_id IN (
			SELECT id FROM orders WHERE customer_id IN (` + inactive + `))`,
		`DELETE FROM orders WHERE customer_id IN (` + inactive + `)`,
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(q), cutoff); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("delete inactive customers: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM customers WHERE id IN (`+inactive+`)`), cutoff)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("delete inactive customers: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete inactive customers: %w", err)
	}
	return deleted, nil
}

func (s *SQLStore) CreateProduct(ctx context.Context, p *models.Product) error {
	id, err := s.insertID(ctx, nil,
		`INSERT INTO products (name, price, stock) VALUES (?, ?, ?)`,
		p.Name, p.Price, p.Stock)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = id
	return nil
}

func (s *SQLStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.selectProducts(ctx, `SELECT id, name, price, stock FROM products ORDER BY id`)
}

func (s *SQLStore) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT id, name, price, stock FROM products WHERE id IN (%s) ORDER BY id`, placeholders)
	return s.selectProducts(ctx, query, args...)
}

func (s *SQLStore) LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	return s.selectProducts(ctx,
		`SELECT id, name, price, stock FROM products WHERE stock < ? ORDER BY id`, threshold)
}

func (s *SQLStore) selectProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	out := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetStock(ctx context.Context, id int64, stock int) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE products SET stock = ? WHERE id = ?`), stock, id)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CreateOrder(ctx context.Context, o *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	id, err := s.insertID(ctx, tx,
		`INSERT INTO orders (customer_id, quantity, total_amount, order_date) VALUES (?, ?, ?, ?)`,
		o.Customer.ID, o.Quantity, o.TotalAmount, o.OrderDate)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("create order: %w", err)
	}

	for _, p := range o.Products {
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO order_products (order_id, product_id) VALUES (?, ?)`),
			id, p.ID)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("create order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.ID = id
	return nil
}

const orderJoinQuery = `
	SELECT
		o.id, o.quantity, o.total_amount, o.order_date,
		c.id, c.name, c.email, c.phone,
		p.id, p.name, p.price, p.stock
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	JOIN order_products op ON op.order_id = o.id
	JOIN products p ON p.id = op.product_id`

func (s *SQLStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.selectOrders(ctx, orderJoinQuery+` ORDER BY o.id`)
}

func (s *SQLStore) OrdersSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	return s.selectOrders(ctx, orderJoinQuery+` WHERE o.order_date >= ? ORDER BY o.id`, since)
}

// selectOrders folds the joined rows back into orders, one product row at a
// time.
func (s *SQLStore) selectOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	byID := map[int64]*models.Order{}
	ids := []int64{}
	for rows.Next() {
		var (
			o models.Order
			c models.Customer
			p models.Product
		)
		err := rows.Scan(
			&o.ID, &o.Quantity, &o.TotalAmount, &o.OrderDate,
			&c.ID, &c.Name, &c.Email, &c.Phone,
			&p.ID, &p.Name, &p.Price, &p.Stock)
		if err != nil {
			return nil, err
		}
		if existing, ok := byID[o.ID]; ok {
			existing.Products = append(existing.Products, p)
			continue
		}
		o.Customer = c
		o.Products = []models.Product{p}
		byID[o.ID] = &o
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders)`).
		Scan(&st.Customers, &st.Orders, &st.Revenue)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
