package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crm/internal/gqlclient"
	"crm/internal/joblog"
	"crm/internal/storage"
)

// Reminders logs one reminder line per order placed inside the reminder
// window. The GraphQL branch fetches all orders and filters locally, since
// the schema exposes no date filter; the fallback filters in storage.
type Reminders struct {
	client       *gqlclient.Client
	store        storage.Store
	log          *joblog.Writer
	logger       *slog.Logger
	reminderDays int
	now          func() time.Time
}

func NewReminders(endpoint string, store storage.Store, log *joblog.Writer, logger *slog.Logger, reminderDays int) *Reminders {
	return &Reminders{
		client:       gqlclient.New(endpoint),
		store:        store,
		log:          log,
		logger:       logger,
		reminderDays: reminderDays,
		now:          time.Now,
	}
}

type reminder struct {
	orderID   string
	customer  string
	email     string
	amount    string
	orderDate string
}

func (r *Reminders) Run(ctx context.Context) error {
	ts := r.now().Format(timestampFormat)
	cutoff := r.now().UTC().AddDate(0, 0, -r.reminderDays)

	recent, err := r.viaGraphQL(ctx, cutoff)
	if err != nil {
		appendOrLog(r.logger, r.log, fmt.Sprintf("[%s] Error processing order reminders: %v", ts, err))
		return r.viaStorage(ctx, ts, cutoff)
	}
	return r.writeLines(ts, "", recent)
}

func (r *Reminders) viaGraphQL(ctx context.Context, cutoff time.Time) ([]reminder, error) {
	var data struct {
		Orders []struct {
			ID       string `json:"id"`
			Customer struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"customer"`
			TotalAmount float64   `json:"totalAmount"`
			OrderDate   time.Time `json:"orderDate"`
		} `json:"orders"`
	}
	query := `query {
		orders {
			id
			customer { name email }
			totalAmount
			orderDate
		}
	}`
	if err := r.client.Do(ctx, query, &data); err != nil {
		return nil, err
	}

	recent := []reminder{}
	for _, o := range data.Orders {
		if o.OrderDate.Before(cutoff) {
			continue
		}
		recent = append(recent, reminder{
			orderID:   o.ID,
			customer:  o.Customer.Name,
			email:     o.Customer.Email,
			amount:    fmt.Sprintf("%.2f", o.TotalAmount),
			orderDate: o.OrderDate.Format(time.RFC3339),
		})
	}
	return recent, nil
}

func (r *Reminders) viaStorage(ctx context.Context, ts string, cutoff time.Time) error {
	orders, err := r.store.OrdersSince(ctx, cutoff)
	if err != nil {
		appendOrLog(r.logger, r.log, fmt.Sprintf("[%s] [FALLBACK] Database approach also failed: %v", ts, err))
		return fmt.Errorf("reminders fallback: %w", err)
	}
	recent := make([]reminder, 0, len(orders))
	for _, o := range orders {
		recent = append(recent, reminder{
			orderID:   fmt.Sprintf("%d", o.ID),
			customer:  o.Customer.Name,
			email:     o.Customer.Email,
			amount:    o.TotalAmount.StringFixed(2),
			orderDate: o.OrderDate.Format(time.RFC3339),
		})
	}
	return r.writeLines(ts, "[FALLBACK] ", recent)
}

func (r *Reminders) writeLines(ts, prefix string, recent []reminder) error {
	lines := []string{fmt.Sprintf("[%s] %sOrder reminders processing started", ts, prefix)}
	if len(recent) > 0 {
		lines = append(lines, fmt.Sprintf("[%s] %sFound %d recent orders", ts, prefix, len(recent)))
		for _, rem := range recent {
			lines = append(lines, fmt.Sprintf(
				"[%s] %sOrder Reminder - Order ID: %s, Customer: %s (%s), Amount: $%s, Date: %s",
				ts, prefix, rem.orderID, rem.customer, rem.email, rem.amount, rem.orderDate))
		}
	} else {
		lines = append(lines, fmt.Sprintf("[%s] %sNo recent orders found for reminders", ts, prefix))
	}
	lines = append(lines, fmt.Sprintf("[%s] %sOrder reminders processing completed", ts, prefix), "")
	return r.log.Append(lines...)
}
