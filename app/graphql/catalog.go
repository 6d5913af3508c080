// Package graphql exposes a read-only view of the product catalogue.
package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/services"
	gql "github.com/shashiranjanraj/kisanmart/pkg/graphql"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
)

// Catalog is the part of services.CatalogService the schema reads from.
type Catalog interface {
	List(ctx context.Context, q services.ProductQuery) ([]models.Product, orm.Pagination, error)
	Featured(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
}

// productPage is the result of the products query.
type productPage struct {
	Items      []models.Product `json:"items"`
	Pagination orm.Pagination   `json:"pagination"`
}

var imageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Image",
	Fields: graphql.Fields{
		"url": &graphql.Field{Type: graphql.String},
		"alt": &graphql.Field{Type: graphql.String},
	},
})

var ratingsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Ratings",
	Fields: graphql.Fields{
		"average": &graphql.Field{Type: graphql.Float},
		"count":   &graphql.Field{Type: graphql.Int},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":                &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":              &graphql.Field{Type: graphql.String},
		"description":       &graphql.Field{Type: graphql.String},
		"price":             &graphql.Field{Type: graphql.Float},
		"category":          &graphql.Field{Type: graphql.String},
		"stock":             &graphql.Field{Type: graphql.Int},
		"inStock":           &graphql.Field{Type: graphql.Boolean},
		"images":            &graphql.Field{Type: graphql.NewList(imageType)},
		"safetyWarnings":    &graphql.Field{Type: graphql.String},
		"usageInstructions": &graphql.Field{Type: graphql.String},
		"activeIngredient":  &graphql.Field{Type: graphql.String},
		"packSize":          &graphql.Field{Type: graphql.String},
		"manufacturer":      &graphql.Field{Type: graphql.String},
		"ratings":           &graphql.Field{Type: ratingsType},
		"featured":          &graphql.Field{Type: graphql.Boolean},
		"createdAt":         &graphql.Field{Type: graphql.DateTime},
	},
})

var paginationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Pagination",
	Fields: graphql.Fields{
		"page":  &graphql.Field{Type: graphql.Int},
		"limit": &graphql.Field{Type: graphql.Int},
		"total": &graphql.Field{Type: graphql.Int},
		"pages": &graphql.Field{Type: graphql.Int},
	},
})

var productPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ProductPage",
	Fields: graphql.Fields{
		"items":      &graphql.Field{Type: graphql.NewList(productType)},
		"pagination": &graphql.Field{Type: paginationType},
	},
})

// NewSchema builds the catalogue schema:
//
//	products(category, minPrice, maxPrice, search, inStock, sort, page, limit): ProductPage
//	product(id: ID!): Product
//	featuredProducts: [Product]
func NewSchema(catalog Catalog) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: productPageType,
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"minPrice": &graphql.ArgumentConfig{Type: graphql.Float},
					"maxPrice": &graphql.ArgumentConfig{Type: graphql.Float},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"inStock":  &graphql.ArgumentConfig{Type: graphql.Boolean},
					"sort":     &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, page, err := catalog.List(p.Context, queryFromArgs(p.Args))
					if err != nil {
						return nil, err
					}
					return productPage{Items: items, Pagination: page}, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					return catalog.Get(p.Context, id)
				},
			},
			"featuredProducts": &graphql.Field{
				Type: graphql.NewList(productType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.Featured(p.Context)
				},
			},
		},
	})
	return gql.NewSchema(query)
}

func queryFromArgs(args map[string]any) services.ProductQuery {
	var q services.ProductQuery
	q.Category, _ = args["category"].(string)
	q.Search, _ = args["search"].(string)
	q.Sort, _ = args["sort"].(string)
	q.InStock, _ = args["inStock"].(bool)
	q.Page, _ = args["page"].(int)
	q.Limit, _ = args["limit"].(int)
	if v, ok := args["minPrice"].(float64); ok {
		q.MinPrice = &v
	}
	if v, ok := args["maxPrice"].(float64); ok {
		q.MaxPrice = &v
	}
	return q
}
