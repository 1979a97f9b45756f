// Package service holds the CRM mutation and query handlers. Each mutation
// takes a typed input, validates it, and either persists or returns a list
// of field errors. Validation failures are data, not Go errors; the error
// return is reserved for storage trouble.
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crm/internal/models"
	"crm/internal/storage"
)

var phoneRE = regexp.MustCompile(`^(\+\d{10,15}|\d{3}-\d{3}-\d{4})$`)

const maxNameLen = 100

type Service struct {
	store             storage.Store
	lowStockThreshold int
	restockAmount     int
	now               func() time.Time
}

func New(store storage.Store, lowStockThreshold, restockAmount int) *Service {
	return &Service{
		store:             store,
		lowStockThreshold: lowStockThreshold,
		restockAmount:     restockAmount,
		now:               time.Now,
	}
}

type CreateCustomerInput struct {
	Name  string
	Email string
	Phone string
}

func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*models.Customer, []string, error) {
	var errs []string
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" {
		errs = append(errs, "Name is required")
	} else if len(name) > maxNameLen {
		errs = append(errs, "Name is too long")
	}
	if email == "" {
		errs = append(errs, "Email is required")
	}
	if in.Phone != "" && !phoneRE.MatchString(in.Phone) {
		errs = append(errs, "Invalid phone format")
	}
	if email != "" {
		taken, err := s.store.EmailTaken(ctx, email)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			errs = append(errs, "Email already exists")
		}
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	c := &models.Customer{Name: name, Email: email, Phone: in.Phone}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, nil, err
	}
	return c, nil, nil
}

type CreateProductInput struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, []string, error) {
	var errs []string
	name := strings.TrimSpace(in.Name)

	if name == "" {
		errs = append(errs, "Name is required")
	} else if len(name) > maxNameLen {
		errs = append(errs, "Name is too long")
	}
	if !in.Price.IsPositive() {
		errs = append(errs, "Price must be positive")
	}
	if in.Stock < 0 {
		errs = append(errs, "Stock cannot be negative")
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	p := &models.Product{Name: name, Price: in.Price, Stock: in.Stock}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, nil, err
	}
	return p, nil, nil
}

type CreateOrderInput struct {
	CustomerID int64
	ProductIDs []int64
	Quantity   int
	OrderDate  time.Time
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, []string, error) {
	if in.Quantity <= 0 {
		return nil, []string{"Quantity must be greater than 0"}, nil
	}
	if len(in.ProductIDs) == 0 {
		return nil, []string{"At least one valid product is required"}, nil
	}

	customer, err := s.store.CustomerByID(ctx, in.CustomerID)
	if err == storage.ErrNotFound {
		return nil, []string{"Invalid customer ID"}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	productIDs := dedupe(in.ProductIDs)
	products, err := s.store.ProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(products) == 0 {
		return nil, []string{"At least one valid product is required"}, nil
	}
	if len(products) != len(productIDs) {
		return nil, []string{"One or more product IDs are invalid"}, nil
	}

	// Total is fixed here. Future price changes never touch stored orders.
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price)
	}
	total = total.Mul(decimal.NewFromInt(int64(in.Quantity)))

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now().UTC()
	}

	o := &models.Order{
		Customer:    *customer,
		Products:    products,
		Quantity:    in.Quantity,
		TotalAmount: total,
		OrderDate:   orderDate,
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, nil, err
	}
	return o, nil, nil
}

// StockUpdate records one restocked product for logging and the GraphQL
// payload.
type StockUpdate struct {
	ID       int64
	Name     string
	OldStock int
	NewStock int
}

// UpdateLowStock restocks every product below the threshold by the restock
// amount.
func (s *Service) UpdateLowStock(ctx context.Context) ([]StockUpdate, string, error) {
	low, err := s.store.LowStockProducts(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, "", err
	}
	updates := []StockUpdate{}
	for _, p := range low {
		newStock := p.Stock + s.restockAmount
		if err := s.store.SetStock(ctx, p.ID, newStock); err != nil {
			return nil, "", err
		}
		updates = append(updates, StockUpdate{ID: p.ID, Name: p.Name, OldStock: p.Stock, NewStock: newStock})
	}
	msg := fmt.Sprintf("Successfully updated %d low-stock products", len(updates))
	return updates, msg, nil
}

func (s *Service) Customers(ctx context.Context) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx)
}

func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) Orders(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}

func dedupe(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
