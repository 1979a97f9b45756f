package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/models"
)

func newMockStore(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQL(db, driver), mock
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM customers WHERE id = $1 AND email = $2",
		pg.rebind("SELECT * FROM customers WHERE id = ? AND email = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "SELECT * FROM customers WHERE id = ?",
		lite.rebind("SELECT * FROM customers WHERE id = ?"))
}

func TestListCustomers(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "phone"}).
		AddRow(1, "Alice", "alice@example.com", "+1234567890").
		AddRow(2, "Bob", "bob@example.com", "")
	mock.ExpectQuery("^SELECT (.+) FROM customers").WillReturnRows(rows)

	got, err := s.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "bob@example.com", got[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCustomerAssignsID(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectExec("^INSERT INTO customers").
		WithArgs("Alice", "alice@example.com", "").
		WillReturnResult(sqlmock.NewResult(7, 1))

	customer := &models.Customer{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, s.CreateCustomer(context.Background(), customer))
	assert.Equal(t, int64(7), customer.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	rows := sqlmock.NewRows([]string{"customers", "orders", "revenue"}).
		AddRow(3, 5, "1300.00")
	mock.ExpectQuery("^\\s*SELECT").WillReturnRows(rows)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Customers)
	assert.Equal(t, 5, stats.Orders)
	assert.True(t, stats.Revenue.Equal(decimal.RequireFromString("1300.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInactiveCustomersCascades(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("^DELETE FROM order_products").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("^DELETE FROM orders").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("^DELETE FROM customers").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	deleted, err := s.DeleteInactiveCustomers(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInactiveCustomersRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("^DELETE FROM order_products").
		WithArgs(cutoff).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := s.DeleteInactiveCustomers(context.Background(), cutoff)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersFoldsJoinedRows(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)
	orderDate := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"o_id", "quantity", "total_amount", "order_date",
		"c_id", "c_name", "c_email", "c_phone",
		"p_id", "p_name", "p_price", "p_stock",
	}).
		AddRow(1, 2, "2600.00", orderDate, 1, "Alice", "alice@example.com", "", 1, "Phone", "500.00", 5).
		AddRow(1, 2, "2600.00", orderDate, 1, "Alice", "alice@example.com", "", 2, "Tablet", "800.00", 2)
	mock.ExpectQuery("FROM orders o").WillReturnRows(rows)

	got, err := s.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	order := got[0]
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, "Alice", order.Customer.Name)
	require.Len(t, order.Products, 2)
	assert.Equal(t, "Phone", order.Products[0].Name)
	assert.Equal(t, "Tablet", order.Products[1].Name)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("2600.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTransaction(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)
	orderDate := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("^INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec("^INSERT INTO order_products").
		WithArgs(int64(4), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order := &models.Order{
		Customer:    models.Customer{ID: 1},
		Products:    []models.Product{{ID: 1}},
		Quantity:    2,
		TotalAmount: decimal.RequireFromString("1000.00"),
		OrderDate:   orderDate,
	}
	require.NoError(t, s.CreateOrder(context.Background(), order))
	assert.Equal(t, int64(4), order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}

func TestOpenMemoryNeedsNoDSN(t *testing.T) {
	store, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}
