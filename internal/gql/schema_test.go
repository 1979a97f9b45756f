package gql

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/models"
	"crm/internal/service"
	"crm/internal/storage"
)

func newTestSchema(t *testing.T) (graphql.Schema, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	svc := service.New(store, 10, 10)
	schema, err := NewSchema(svc)
	require.NoError(t, err)
	return schema, store
}

func execute(t *testing.T, schema graphql.Schema, query string) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       context.Background(),
	})
	require.Empty(t, result.Errors, "unexpected graphql errors: %v", result.Errors)
	return result.Data.(map[string]interface{})
}

func TestHelloQuery(t *testing.T) {
	schema, _ := newTestSchema(t)
	data := execute(t, schema, `query { hello }`)
	assert.Equal(t, "Hello, GraphQL!", data["hello"])
}

func TestCreateCustomerMutation(t *testing.T) {
	schema, _ := newTestSchema(t)

	data := execute(t, schema, `mutation {
		createCustomer(name: "Alice", email: "alice@example.com", phone: "+1234567890") {
			customer { id name email phone }
			errors
		}
	}`)
	payload := data["createCustomer"].(map[string]interface{})
	assert.Nil(t, payload["errors"])
	customer := payload["customer"].(map[string]interface{})
	assert.Equal(t, "Alice", customer["name"])
	assert.Equal(t, "alice@example.com", customer["email"])

	// The new customer shows up in the customers query.
	data = execute(t, schema, `query { customers { id email } }`)
	customers := data["customers"].([]interface{})
	require.Len(t, customers, 1)
}

func TestCreateCustomerDuplicateEmailReturnsErrors(t *testing.T) {
	schema, _ := newTestSchema(t)

	execute(t, schema, `mutation {
		createCustomer(name: "Alice", email: "alice@example.com") { customer { id } errors }
	}`)
	data := execute(t, schema, `mutation {
		createCustomer(name: "Clone", email: "alice@example.com") { customer { id } errors }
	}`)

	payload := data["createCustomer"].(map[string]interface{})
	assert.Nil(t, payload["customer"])
	errs := payload["errors"].([]interface{})
	require.NotEmpty(t, errs)
	assert.Equal(t, "Email already exists", errs[0])

	data = execute(t, schema, `query { customers { id } }`)
	assert.Len(t, data["customers"].([]interface{}), 1)
}

func TestCreateProductMutation(t *testing.T) {
	schema, _ := newTestSchema(t)

	data := execute(t, schema, `mutation {
		createProduct(name: "Phone", price: 500.0, stock: 5) {
			product { id name price stock }
			errors
		}
	}`)
	payload := data["createProduct"].(map[string]interface{})
	assert.Nil(t, payload["errors"])
	product := payload["product"].(map[string]interface{})
	assert.Equal(t, 500.0, product["price"])
	assert.Equal(t, 5, product["stock"])

	data = execute(t, schema, `mutation {
		createProduct(name: "Broken", price: -1.0) { product { id } errors }
	}`)
	payload = data["createProduct"].(map[string]interface{})
	assert.Nil(t, payload["product"])
	assert.Contains(t, payload["errors"].([]interface{}), "Price must be positive")
}

func TestCreateOrderMutation(t *testing.T) {
	schema, store := newTestSchema(t)
	ctx := context.Background()

	customer := &models.Customer{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, store.CreateCustomer(ctx, customer))
	phone := &models.Product{Name: "Phone", Price: decimal.NewFromInt(500), Stock: 5}
	tablet := &models.Product{Name: "Tablet", Price: decimal.NewFromInt(800), Stock: 2}
	require.NoError(t, store.CreateProduct(ctx, phone))
	require.NoError(t, store.CreateProduct(ctx, tablet))

	data := execute(t, schema, `mutation {
		createOrder(customerId: "1", productIds: ["1", "2"], quantity: 2) {
			order {
				id
				totalAmount
				customer { name }
				products { name }
			}
			errors
		}
	}`)
	payload := data["createOrder"].(map[string]interface{})
	assert.Nil(t, payload["errors"])
	order := payload["order"].(map[string]interface{})
	assert.Equal(t, 2600.0, order["totalAmount"], "total = 2 x (500 + 800)")
	assert.Equal(t, "Alice", order["customer"].(map[string]interface{})["name"])
	assert.Len(t, order["products"].([]interface{}), 2)
}

func TestCreateOrderUnknownIDs(t *testing.T) {
	schema, store := newTestSchema(t)
	ctx := context.Background()

	customer := &models.Customer{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	data := execute(t, schema, `mutation {
		createOrder(customerId: "99", productIds: ["1"]) { order { id } errors }
	}`)
	payload := data["createOrder"].(map[string]interface{})
	assert.Contains(t, payload["errors"].([]interface{}), "Invalid customer ID")

	data = execute(t, schema, `mutation {
		createOrder(customerId: "1", productIds: ["42"]) { order { id } errors }
	}`)
	payload = data["createOrder"].(map[string]interface{})
	assert.Contains(t, payload["errors"].([]interface{}), "At least one valid product is required")
}

func TestUpdateLowStockProductsMutation(t *testing.T) {
	schema, store := newTestSchema(t)
	ctx := context.Background()

	low := &models.Product{Name: "Phone", Price: decimal.NewFromInt(500), Stock: 5}
	fine := &models.Product{Name: "Tablet", Price: decimal.NewFromInt(800), Stock: 50}
	require.NoError(t, store.CreateProduct(ctx, low))
	require.NoError(t, store.CreateProduct(ctx, fine))

	data := execute(t, schema, `mutation {
		updateLowStockProducts {
			updatedProducts { id name stock }
			successMessage
			errors
		}
	}`)
	payload := data["updateLowStockProducts"].(map[string]interface{})
	assert.Equal(t, "Successfully updated 1 low-stock products", payload["successMessage"])
	updated := payload["updatedProducts"].([]interface{})
	require.Len(t, updated, 1)
	product := updated[0].(map[string]interface{})
	assert.Equal(t, "Phone", product["name"])
	assert.Equal(t, 15, product["stock"])
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = parseID(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = parseID("not-a-number")
	assert.Error(t, err)

	_, err = parseID(3.14)
	assert.Error(t, err)
}
