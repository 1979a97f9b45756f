// Package gql maps the CRM service onto a GraphQL schema. Mutations return
// payload objects carrying an errors list instead of surfacing validation
// failures as GraphQL errors.
package gql

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"crm/internal/models"
	"crm/internal/service"
)

const helloMessage = "Hello, GraphQL!"

type customerPayload struct {
	Customer *models.Customer `json:"customer"`
	Errors   []string         `json:"errors"`
}

type productPayload struct {
	Product *models.Product `json:"product"`
	Errors  []string        `json:"errors"`
}

type orderPayload struct {
	Order  *models.Order `json:"order"`
	Errors []string      `json:"errors"`
}

type lowStockPayload struct {
	UpdatedProducts []models.Product `json:"updatedProducts"`
	SuccessMessage  string           `json:"successMessage"`
	Errors          []string         `json:"errors"`
}

// NewSchema builds the query and mutation roots over the service.
func NewSchema(svc *service.Service) (graphql.Schema, error) {
	customerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"phone": &graphql.Field{Type: graphql.String},
		},
	})

	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"price": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					prod, ok := p.Source.(models.Product)
					if !ok {
						return nil, fmt.Errorf("unexpected source %T", p.Source)
					}
					return prod.Price.InexactFloat64(), nil
				},
			},
			"stock": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	orderType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"customer": &graphql.Field{
				Type: graphql.NewNonNull(customerType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Order).Customer, nil
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Order).Products, nil
				},
			},
			"quantity": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"totalAmount": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Order).TotalAmount.InexactFloat64(), nil
				},
			},
			"orderDate": &graphql.Field{
				Type: graphql.NewNonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Order).OrderDate, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return helloMessage, nil
				},
			},
			"customers": &graphql.Field{
				Type: graphql.NewList(customerType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return svc.Customers(p.Context)
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return svc.Products(p.Context)
				},
			},
			"orders": &graphql.Field{
				Type: graphql.NewList(orderType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return svc.Orders(p.Context)
				},
			},
		},
	})

	errorsField := &graphql.Field{Type: graphql.NewList(graphql.String)}

	createCustomerPayload := graphql.NewObject(graphql.ObjectConfig{
		Name: "CreateCustomerPayload",
		Fields: graphql.Fields{
			"customer": &graphql.Field{Type: customerType, Resolve: resolveCustomerField},
			"errors":   errorsField,
		},
	})

	createProductPayload := graphql.NewObject(graphql.ObjectConfig{
		Name: "CreateProductPayload",
		Fields: graphql.Fields{
			"product": &graphql.Field{Type: productType, Resolve: resolveProductField},
			"errors":  errorsField,
		},
	})

	createOrderPayload := graphql.NewObject(graphql.ObjectConfig{
		Name: "CreateOrderPayload",
		Fields: graphql.Fields{
			"order": &graphql.Field{
				Type: orderType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pl := p.Source.(*orderPayload)
					if pl.Order == nil {
						return nil, nil
					}
					return *pl.Order, nil
				},
			},
			"errors": errorsField,
		},
	})

	updateLowStockPayload := graphql.NewObject(graphql.ObjectConfig{
		Name: "UpdateLowStockPayload",
		Fields: graphql.Fields{
			"updatedProducts": &graphql.Field{Type: graphql.NewList(productType)},
			"successMessage":  &graphql.Field{Type: graphql.String},
			"errors":          errorsField,
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createCustomer": &graphql.Field{
				Type: createCustomerPayload,
				Args: graphql.FieldConfigArgument{
					"name":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"phone": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in := service.CreateCustomerInput{
						Name:  p.Args["name"].(string),
						Email: p.Args["email"].(string),
					}
					if phone, ok := p.Args["phone"].(string); ok {
						in.Phone = phone
					}
					customer, errs, err := svc.CreateCustomer(p.Context, in)
					if err != nil {
						return nil, err
					}
					return &customerPayload{Customer: customer, Errors: errs}, nil
				},
			},
			"createProduct": &graphql.Field{
				Type: createProductPayload,
				Args: graphql.FieldConfigArgument{
					"name":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"price": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"stock": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in := service.CreateProductInput{
						Name:  p.Args["name"].(string),
						Price: decimal.NewFromFloat(p.Args["price"].(float64)),
					}
					if stock, ok := p.Args["stock"].(int); ok {
						in.Stock = stock
					}
					product, errs, err := svc.CreateProduct(p.Context, in)
					if err != nil {
						return nil, err
					}
					return &productPayload{Product: product, Errors: errs}, nil
				},
			},
			"createOrder": &graphql.Field{
				Type: createOrderPayload,
				Args: graphql.FieldConfigArgument{
					"customerId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"productIds": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID)))},
					"quantity":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					customerID, err := parseID(p.Args["customerId"])
					if err != nil {
						return &orderPayload{Errors: []string{"Invalid customer ID"}}, nil
					}
					rawIDs, _ := p.Args["productIds"].([]interface{})
					productIDs := make([]int64, 0, len(rawIDs))
					for _, raw := range rawIDs {
						id, err := parseID(raw)
						if err != nil {
							return &orderPayload{Errors: []string{"One or more product IDs are invalid"}}, nil
						}
						productIDs = append(productIDs, id)
					}
					in := service.CreateOrderInput{
						CustomerID: customerID,
						ProductIDs: productIDs,
						Quantity:   1,
					}
					if q, ok := p.Args["quantity"].(int); ok {
						in.Quantity = q
					}
					order, errs, err := svc.CreateOrder(p.Context, in)
					if err != nil {
						return nil, err
					}
					return &orderPayload{Order: order, Errors: errs}, nil
				},
			},
			"updateLowStockProducts": &graphql.Field{
				Type: updateLowStockPayload,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					updates, msg, err := svc.UpdateLowStock(p.Context)
					if err != nil {
						return nil, err
					}
					products := make([]models.Product, 0, len(updates))
					for _, u := range updates {
						products = append(products, models.Product{ID: u.ID, Name: u.Name, Stock: u.NewStock})
					}
					return &lowStockPayload{UpdatedProducts: products, SuccessMessage: msg, Errors: []string{}}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func resolveCustomerField(p graphql.ResolveParams) (interface{}, error) {
	pl := p.Source.(*customerPayload)
	if pl.Customer == nil {
		return nil, nil
	}
	return *pl.Customer, nil
}

func resolveProductField(p graphql.ResolveParams) (interface{}, error) {
	pl := p.Source.(*productPayload)
	if pl.Product == nil {
		return nil, nil
	}
	return *pl.Product, nil
}

// parseID accepts the string or int forms GraphQL ID inputs arrive in.
func parseID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case string:
		return strconv.ParseInt(id, 10, 64)
	case int:
		return int64(id), nil
	case int64:
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}
