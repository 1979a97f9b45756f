package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crm/internal/models"
)

// Memory is an in-process Store for local runs and tests. Reads return
// copies so callers cannot mutate stored state.
type Memory struct {
	mu             sync.RWMutex
	nextCustomerID int64
	nextProductID  int64
	nextOrderID    int64
	customers      map[int64]models.Customer
	products       map[int64]models.Product
	orders         map[int64]models.Order
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		nextCustomerID: 1,
		nextProductID:  1,
		nextOrderID:    1,
		customers:      make(map[int64]models.Customer),
		products:       make(map[int64]models.Product),
		orders:         make(map[int64]models.Order),
	}
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func (m *Memory) CreateCustomer(ctx context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextCustomerID
	m.nextCustomerID++
	m.customers[c.ID] = *c
	return nil
}

func (m *Memory) CustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (m *Memory) EmailTaken(ctx context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteInactiveCustomers(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := map[int64]bool{}
	for _, o := range m.orders {
		if !o.OrderDate.Before(cutoff) {
			active[o.Customer.ID] = true
		}
	}
	var deleted int64
	for id := range m.customers {
		if !active[id] {
			delete(m.customers, id)
			deleted++
		}
	}
	// Orders go with their customer, or Stats and ListOrders would disagree.
	for id, o := range m.orders {
		if _, ok := m.customers[o.Customer.ID]; !ok {
			delete(m.orders, id)
		}
	}
	return deleted, nil
}

func (m *Memory) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextProductID
	m.nextProductID++
	m.products[p.ID] = *p
	return nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Product{}
	for _, p := range m.products {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SetStock(ctx context.Context, id int64, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock = stock
	m.products[id] = p
	return nil
}

func (m *Memory) CreateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextOrderID
	m.nextOrderID++
	m.orders[o.ID] = *o
	return nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]models.Order, error) {
	return m.ordersWhere(func(models.Order) bool { return true })
}

func (m *Memory) OrdersSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	return m.ordersWhere(func(o models.Order) bool { return !o.OrderDate.Before(since) })
}

func (m *Memory) ordersWhere(keep func(models.Order) bool) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Customers: len(m.customers), Orders: len(m.orders), Revenue: decimal.Zero}
	for _, o := range m.orders {
		st.Revenue = st.Revenue.Add(o.TotalAmount)
	}
	return st, nil
}
