package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"crm/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Stats holds the aggregate numbers the report task needs in one fetch.
type Stats struct {
	Customers int
	Orders    int
	Revenue   decimal.Decimal
}

// Store is the persistence surface for the CRM. Orders returned by list
// methods carry their customer and product details.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreateCustomer(ctx context.Context, c *models.Customer) error
	CustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	// DeleteInactiveCustomers removes customers with no order dated on or
	// after cutoff and reports how many rows went away.
	DeleteInactiveCustomers(ctx context.Context, cutoff time.Time) (int64, error)

	CreateProduct(ctx context.Context, p *models.Product) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error)
	SetStock(ctx context.Context, id int64, stock int) error

	CreateOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)
	OrdersSince(ctx context.Context, since time.Time) ([]models.Order, error)

	Stats(ctx context.Context) (Stats, error)
}
