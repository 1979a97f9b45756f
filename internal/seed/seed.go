// Package seed populates the store with sample data for local development.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"crm/internal/models"
	"crm/internal/storage"
)

// Run inserts the sample customer and products. Re-running against a store
// that already holds the sample customer is a no-op.
func Run(ctx context.Context, store storage.Store) error {
	taken, err := store.EmailTaken(ctx, "test@example.com")
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if taken {
		return nil
	}

	customer := &models.Customer{
		Name:  "Test User",
		Email: "test@example.com",
		Phone: "+1234567890",
	}
	if err := store.CreateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}

	products := []*models.Product{
		{Name: "Phone", Price: decimal.NewFromInt(500), Stock: 5},
		{Name: "Tablet", Price: decimal.NewFromInt(800), Stock: 2},
	}
	for _, p := range products {
		if err := store.CreateProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}
	return nil
}
