package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/gql"
	"crm/internal/joblog"
	"crm/internal/models"
	"crm/internal/service"
	"crm/internal/storage"
)

var testTime = time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)

// seedStore loads 2 customers, 2 orders, and $1300 revenue.
func seedStore(t *testing.T) *storage.Memory {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()

	alice := &models.Customer{Name: "Alice", Email: "alice@example.com"}
	bob := &models.Customer{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, store.CreateCustomer(ctx, alice))
	require.NoError(t, store.CreateCustomer(ctx, bob))

	require.NoError(t, store.CreateOrder(ctx, &models.Order{
		Customer: *alice, Quantity: 1,
		Products:    []models.Product{{ID: 1, Name: "Phone", Price: decimal.NewFromInt(500)}},
		TotalAmount: decimal.NewFromInt(500),
		OrderDate:   testTime.AddDate(0, 0, -1),
	}))
	require.NoError(t, store.CreateOrder(ctx, &models.Order{
		Customer: *bob, Quantity: 1,
		Products:    []models.Product{{ID: 2, Name: "Tablet", Price: decimal.NewFromInt(800)}},
		TotalAmount: decimal.NewFromInt(800),
		OrderDate:   testTime.AddDate(0, 0, -2),
	}))
	return store
}

func newGenerator(t *testing.T, endpoint string, store *storage.Memory) (*Generator, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "crm_report_log.txt")
	gen := New(endpoint, store, joblog.New(logPath, ""), slog.New(slog.NewTextHandler(io.Discard, nil)))
	gen.now = func() time.Time { return testTime }
	return gen, logPath
}

func graphqlServer(t *testing.T, store *storage.Memory) *httptest.Server {
	t.Helper()
	svc := service.New(store, 10, 10)
	schema, err := gql.NewSchema(svc)
	require.NoError(t, err)
	server := httptest.NewServer(gql.NewHandler(schema))
	t.Cleanup(server.Close)
	return server
}

func TestRunViaGraphQL(t *testing.T) {
	store := seedStore(t)
	server := graphqlServer(t, store)
	gen, logPath := newGenerator(t, server.URL, store)

	res, err := gen.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceGraphQL, res.Source)
	assert.Equal(t, 2, res.Customers)
	assert.Equal(t, 2, res.Orders)
	assert.True(t, res.Revenue.Equal(decimal.NewFromInt(1300)), "revenue = %s", res.Revenue)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	log := string(content)
	assert.Contains(t, log, "GraphQL endpoint responsive: Hello, GraphQL!")
	assert.Contains(t, log, "2025-06-02 06:00:00 - Report: 2 customers, 2 orders, $1300.00 revenue")
	assert.Contains(t, log, "CRM report generated successfully via GraphQL")
	assert.Contains(t, log, "Average order value: $650.00")
	assert.NotContains(t, log, "[FALLBACK]")
}

func TestRunFallsBackWhenEndpointUnreachable(t *testing.T) {
	store := seedStore(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // endpoint exists but refuses connections
	gen, logPath := newGenerator(t, server.URL, store)

	res, err := gen.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceDatabase, res.Source)
	assert.Equal(t, 2, res.Customers)
	assert.Equal(t, 2, res.Orders)
	assert.True(t, res.Revenue.Equal(decimal.NewFromInt(1300)))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	log := string(content)
	assert.Contains(t, log, "GraphQL endpoint check failed")
	assert.Contains(t, log, "[FALLBACK] Using direct database access")
	assert.Contains(t, log, "2025-06-02 06:00:00 - Report: 2 customers, 2 orders, $1300.00 revenue")
	assert.Contains(t, log, "[FALLBACK] CRM report generated successfully via database")
}

func TestRunEmptyStore(t *testing.T) {
	store := storage.NewMemory()
	server := graphqlServer(t, store)
	gen, logPath := newGenerator(t, server.URL, store)

	res, err := gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Customers)
	assert.Equal(t, 0, res.Orders)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	log := string(content)
	assert.Contains(t, log, "- Report: 0 customers, 0 orders, $0.00 revenue")
	assert.NotContains(t, log, "Customer details", "detail lines are skipped for empty data")
	assert.NotContains(t, log, "Average order value")
}

func TestRunSurfacesLogAppendFailure(t *testing.T) {
	store := seedStore(t)
	server := graphqlServer(t, store)

	// A regular file as the log directory makes every append fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	logPath := filepath.Join(blocker, "crm_report_log.txt")

	var buf bytes.Buffer
	gen := New(server.URL, store, joblog.New(logPath, ""), slog.New(slog.NewTextHandler(&buf, nil)))
	gen.now = func() time.Time { return testTime }

	res, err := gen.Run(context.Background())
	require.NoError(t, err, "a broken log file must not fail the report")
	assert.Equal(t, 2, res.Customers)
	assert.Contains(t, buf.String(), "report log append failed")
}

type fakePublisher struct {
	queue string
	body  []byte
}

func (f *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	f.queue = queue
	f.body = body
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestRunPublishesSummary(t *testing.T) {
	store := seedStore(t)
	server := graphqlServer(t, store)
	gen, _ := newGenerator(t, server.URL, store)

	pub := &fakePublisher{}
	gen.WithNotifier(pub, "crm_reports")

	_, err := gen.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "crm_reports", pub.queue)
	assert.Contains(t, string(pub.body), `"total_customers":2`)
	assert.Contains(t, string(pub.body), `"total_orders":2`)
	assert.Contains(t, string(pub.body), `"source":"graphql"`)
}
