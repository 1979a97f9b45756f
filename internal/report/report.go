// Package report implements the weekly CRM report. It prefers the GraphQL
// endpoint and falls back to direct storage access when the endpoint is
// unreachable or misbehaving; either way one report block is appended to the
// report log and the task completes without propagating fetch failures.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"crm/internal/gqlclient"
	"crm/internal/joblog"
	"crm/internal/notify"
	"crm/internal/storage"
)

const timestampFormat = "2006-01-02 15:04:05"

// Source tags which branch produced the report numbers.
type Source string

const (
	SourceGraphQL  Source = "graphql"
	SourceDatabase Source = "database"
)

// Result is the outcome of one report run.
type Result struct {
	Timestamp time.Time
	Source    Source
	Customers int
	Orders    int
	Revenue   decimal.Decimal
}

type Generator struct {
	client   *gqlclient.Client
	store    storage.Store
	log      *joblog.Writer
	logger   *slog.Logger
	notifier notify.Publisher
	queue    string
	now      func() time.Time
}

func New(endpoint string, store storage.Store, log *joblog.Writer, logger *slog.Logger) *Generator {
	return &Generator{
		client: gqlclient.New(endpoint),
		store:  store,
		log:    log,
		logger: logger,
		now:    time.Now,
	}
}

// WithNotifier publishes each report summary to the given queue.
func (g *Generator) WithNotifier(pub notify.Publisher, queue string) *Generator {
	g.notifier = pub
	g.queue = queue
	return g
}

// Run generates one report. Fetch failures switch to the database branch;
// only a failure of both branches returns an error.
func (g *Generator) Run(ctx context.Context) (Result, error) {
	ts := g.now().Format(timestampFormat)

	hello, err := g.healthCheck(ctx)
	if err != nil {
		g.appendLog(fmt.Sprintf("%s GraphQL endpoint check failed: %v", ts, err))
		return g.fallback(ctx, ts)
	}
	g.appendLog(fmt.Sprintf("%s GraphQL endpoint responsive: %s", ts, hello))

	res, err := g.viaGraphQL(ctx, ts)
	if err != nil {
		g.appendLog(fmt.Sprintf("%s GraphQL report generation failed: %v", ts, err))
		return g.fallback(ctx, ts)
	}
	g.publish(ctx, res)
	return res, nil
}

func (g *Generator) healthCheck(ctx context.Context) (string, error) {
	var data struct {
		Hello string `json:"hello"`
	}
	if err := g.client.Do(ctx, `query { hello }`, &data); err != nil {
		return "", err
	}
	return data.Hello, nil
}

func (g *Generator) viaGraphQL(ctx context.Context, ts string) (Result, error) {
	var data struct {
		Customers []struct {
			ID string `json:"id"`
		} `json:"customers"`
		Orders []struct {
			ID          string  `json:"id"`
			TotalAmount float64 `json:"totalAmount"`
		} `json:"orders"`
	}
	query := `query {
		customers { id }
		orders { id totalAmount }
	}`
	if err := g.client.Do(ctx, query, &data); err != nil {
		return Result{}, err
	}

	revenue := decimal.Zero
	for _, o := range data.Orders {
		revenue = revenue.Add(decimal.NewFromFloat(o.TotalAmount))
	}
	res := Result{
		Timestamp: g.now(),
		Source:    SourceGraphQL,
		Customers: len(data.Customers),
		Orders:    len(data.Orders),
		Revenue:   revenue.Round(2),
	}

	lines := []string{
		reportLine(ts, res),
		fmt.Sprintf("%s CRM report generated successfully via GraphQL", ts),
	}
	lines = append(lines, detailLines(ts, "", res)...)
	lines = append(lines, "")
	g.appendLog(lines...)
	return res, nil
}

func (g *Generator) fallback(ctx context.Context, ts string) (Result, error) {
	stats, err := g.store.Stats(ctx)
	if err != nil {
		g.appendLog(fmt.Sprintf("%s [FALLBACK] Database report generation also failed: %v", ts, err))
		return Result{}, fmt.Errorf("report fallback: %w", err)
	}
	res := Result{
		Timestamp: g.now(),
		Source:    SourceDatabase,
		Customers: stats.Customers,
		Orders:    stats.Orders,
		Revenue:   stats.Revenue.Round(2),
	}

	lines := []string{
		fmt.Sprintf("%s [FALLBACK] Using direct database access", ts),
		reportLine(ts, res),
		fmt.Sprintf("%s [FALLBACK] CRM report generated successfully via database", ts),
	}
	lines = append(lines, detailLines(ts, "[FALLBACK] ", res)...)
	lines = append(lines, "")
	g.appendLog(lines...)
	g.publish(ctx, res)
	return res, nil
}

// appendLog writes report lines and surfaces a failed append on the process
// log, so a broken log file never masks the report outcome.
func (g *Generator) appendLog(lines ...string) {
	if err := g.log.Append(lines...); err != nil {
		g.logger.Error("report log append failed", "err", err)
	}
}

func reportLine(ts string, res Result) string {
	return fmt.Sprintf("%s - Report: %d customers, %d orders, $%s revenue",
		ts, res.Customers, res.Orders, res.Revenue.StringFixed(2))
}

func detailLines(ts, prefix string, res Result) []string {
	var lines []string
	if res.Customers > 0 {
		lines = append(lines, fmt.Sprintf("%s %sCustomer details: %d total customers", ts, prefix, res.Customers))
	}
	if res.Orders > 0 {
		avg := res.Revenue.Div(decimal.NewFromInt(int64(res.Orders))).Round(2)
		lines = append(lines,
			fmt.Sprintf("%s %sOrder details: %d total orders", ts, prefix, res.Orders),
			fmt.Sprintf("%s %sAverage order value: $%s", ts, prefix, avg.StringFixed(2)))
	}
	return lines
}

// publish sends the summary to the broker when one is configured. Broker
// trouble never fails the report.
func (g *Generator) publish(ctx context.Context, res Result) {
	if g.notifier == nil {
		return
	}
	body, err := json.Marshal(map[string]any{
		"timestamp":       res.Timestamp.Format(timestampFormat),
		"source":          string(res.Source),
		"total_customers": res.Customers,
		"total_orders":    res.Orders,
		"total_revenue":   res.Revenue.InexactFloat64(),
	})
	if err != nil {
		g.logger.Error("report summary marshal failed", "err", err)
		return
	}
	if err := g.notifier.Publish(ctx, g.queue, body); err != nil {
		g.logger.Error("report summary publish failed", "queue", g.queue, "err", err)
	}
}
