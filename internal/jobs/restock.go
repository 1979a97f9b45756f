package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crm/internal/gqlclient"
	"crm/internal/joblog"
	"crm/internal/service"
)

// Restock tops up low-stock products. It drives the updateLowStockProducts
// mutation through the GraphQL endpoint first and falls back to the service
// directly when the endpoint cannot be reached.
type Restock struct {
	client *gqlclient.Client
	svc    *service.Service
	log    *joblog.Writer
	logger *slog.Logger
	now    func() time.Time
}

func NewRestock(endpoint string, svc *service.Service, log *joblog.Writer, logger *slog.Logger) *Restock {
	return &Restock{
		client: gqlclient.New(endpoint),
		svc:    svc,
		log:    log,
		logger: logger,
		now:    time.Now,
	}
}

func (r *Restock) Run(ctx context.Context) error {
	ts := r.now().Format(heartbeatFormat)
	if err := r.viaGraphQL(ctx, ts); err != nil {
		appendOrLog(r.logger, r.log, fmt.Sprintf("%s Request failed: %v", ts, err))
		return r.viaService(ctx, ts)
	}
	return nil
}

func (r *Restock) viaGraphQL(ctx context.Context, ts string) error {
	var data struct {
		UpdateLowStockProducts struct {
			UpdatedProducts []struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Stock int    `json:"stock"`
			} `json:"updatedProducts"`
			SuccessMessage string   `json:"successMessage"`
			Errors         []string `json:"errors"`
		} `json:"updateLowStockProducts"`
	}
	mutation := `mutation {
		updateLowStockProducts {
			updatedProducts { id name stock }
			successMessage
			errors
		}
	}`
	if err := r.client.Do(ctx, mutation, &data); err != nil {
		return err
	}
	payload := data.UpdateLowStockProducts
	if len(payload.Errors) > 0 {
		return fmt.Errorf("mutation errors: %s", strings.Join(payload.Errors, "; "))
	}

	lines := []string{fmt.Sprintf("%s %s", ts, payload.SuccessMessage)}
	if len(payload.UpdatedProducts) > 0 {
		lines = append(lines, fmt.Sprintf("%s Updated products:", ts))
		for _, p := range payload.UpdatedProducts {
			lines = append(lines, fmt.Sprintf("%s   - %s (ID: %s) - New stock: %d", ts, p.Name, p.ID, p.Stock))
		}
	}
	lines = append(lines, "")
	return r.log.Append(lines...)
}

func (r *Restock) viaService(ctx context.Context, ts string) error {
	updates, _, err := r.svc.UpdateLowStock(ctx)
	if err != nil {
		appendOrLog(r.logger, r.log, fmt.Sprintf("%s [Database Fallback] Failed: %v", ts, err))
		return fmt.Errorf("restock fallback: %w", err)
	}
	if len(updates) == 0 {
		return r.log.Append(fmt.Sprintf("%s [Database Fallback] No low-stock products found.", ts), "")
	}

	lines := []string{
		fmt.Sprintf("%s [Database Fallback] Successfully updated %d low-stock products.", ts, len(updates)),
		fmt.Sprintf("%s [Database Fallback] Updated products:", ts),
	}
	for _, u := range updates {
		lines = append(lines, fmt.Sprintf("%s   - %s (ID: %d) - Stock: %d -> %d", ts, u.Name, u.ID, u.OldStock, u.NewStock))
	}
	lines = append(lines, "")
	return r.log.Append(lines...)
}
