package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Order keeps its total as computed at creation time. Later product price
// changes never recompute stored totals.
type Order struct {
	ID          int64           `json:"id"`
	Customer    Customer        `json:"customer"`
	Products    []Product       `json:"products"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderDate   time.Time       `json:"order_date"`
}
