// Package services holds the shop's business operations. Every failure a
// caller should see is an *Error carrying a Kind; anything else is an
// unexpected error.
package services

import (
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/pkg/storage"
)

// Registry wires every service over one store.
type Registry struct {
	Catalog  *CatalogService
	Stock    *StockService
	Orders   *OrderService
	Payments *PaymentService
	Auth     *AuthService
	Admin    *AdminService
	Cart     *CartService
	Images   *ImageService
}

// Deps are the collaborators a Registry is built from. Notifier may be nil.
type Deps struct {
	Store        repositories.Store
	Gateway      PaymentGateway
	GatewayKeyID string
	Disk         storage.Disk
	Notifier     Notifier
	Pricing      Pricing
}

func NewRegistry(d Deps) *Registry {
	catalog := NewCatalogService(d.Store)
	stock := NewStockService(d.Store, catalog)
	return &Registry{
		Catalog:  catalog,
		Stock:    stock,
		Orders:   NewOrderService(d.Store, catalog, stock, d.Pricing, d.Gateway, d.Notifier),
		Payments: NewPaymentService(d.Gateway, d.GatewayKeyID),
		Auth:     NewAuthService(d.Store),
		Admin:    NewAdminService(d.Store),
		Cart:     NewCartService(catalog, d.Pricing),
		Images:   NewImageService(d.Disk),
	}
}
