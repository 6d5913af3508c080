// Package routes maps the /api surface onto controllers.
package routes

import (
	"github.com/shashiranjanraj/kisanmart/app/controllers"
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
	"github.com/shashiranjanraj/kisanmart/pkg/middleware"
	"github.com/shashiranjanraj/kisanmart/pkg/rbac"
	"github.com/shashiranjanraj/kisanmart/pkg/router"
)

func RegisterAPI(r *router.Router, svc *services.Registry) {
	products := controllers.NewProductController(svc.Catalog, svc.Images)
	orders := controllers.NewOrderController(svc.Orders, svc.Cart)
	payments := controllers.NewPaymentController(svc.Payments)
	authc := controllers.NewAuthController(svc.Auth)
	cart := controllers.NewCartController(svc.Cart)
	admin := controllers.NewAdminController(svc.Admin)

	api := r.Group("/api")
	protected := api.Group("", middleware.Authenticate)
	adminOnly := api.Group("", middleware.Authenticate, rbac.HasRole("admin"))

	// Products
	api.Get("/products", "products.index", ctx.Wrap(products.Index))
	api.Get("/products/featured", "products.featured", ctx.Wrap(products.Featured))
	api.Get("/products/{id}", "products.show", ctx.Wrap(products.Show))
	adminOnly.Post("/products/upload", "products.upload", ctx.Wrap(products.Upload))
	adminOnly.Post("/products", "products.store", ctx.Wrap(products.Store))
	adminOnly.Put("/products/{id}", "products.update", ctx.Wrap(products.Update))
	adminOnly.Delete("/products/{id}", "products.destroy", ctx.Wrap(products.Destroy))

	// Orders
	protected.Post("/orders", "orders.store", ctx.Wrap(orders.Store))
	adminOnly.Get("/orders", "orders.index", ctx.Wrap(orders.Index))
	protected.Get("/orders/user/myorders", "orders.mine", ctx.Wrap(orders.Mine))
	protected.Get("/orders/{id}", "orders.show", ctx.Wrap(orders.Show))
	adminOnly.Put("/orders/{id}/status", "orders.status", ctx.Wrap(orders.UpdateStatus))
	protected.Put("/orders/{id}/cancel", "orders.cancel", ctx.Wrap(orders.Cancel))

	// Payment
	protected.Post("/payment/create-order", "payment.create_order", ctx.Wrap(payments.CreateOrder))
	protected.Post("/payment/verify", "payment.verify", ctx.Wrap(payments.Verify))
	protected.Get("/payment/{paymentId}", "payment.show", ctx.Wrap(payments.Show))
	adminOnly.Post("/payment/refund", "payment.refund", ctx.Wrap(payments.Refund))

	// Auth
	api.Post("/auth/register", "auth.register", ctx.Wrap(authc.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(authc.Login))
	protected.Get("/auth/profile", "auth.profile", ctx.Wrap(authc.Profile))
	protected.Put("/auth/profile", "auth.profile.update", ctx.Wrap(authc.UpdateProfile))

	// Cart
	api.Get("/cart", "cart.show", ctx.Wrap(cart.Show))
	api.Post("/cart/items", "cart.add", ctx.Wrap(cart.Add))
	api.Put("/cart/items/{productId}", "cart.update", ctx.Wrap(cart.Update))
	api.Delete("/cart/items/{productId}", "cart.remove", ctx.Wrap(cart.Remove))
	api.Delete("/cart", "cart.clear", ctx.Wrap(cart.Clear))

	// Admin
	api.Post("/admin/login", "admin.login", ctx.Wrap(authc.AdminLogin))
	adminOnly.Get("/admin/users", "admin.users", ctx.Wrap(admin.Users))
	adminOnly.Get("/admin/users/{id}", "admin.users.show", ctx.Wrap(admin.User))
	adminOnly.Delete("/admin/users/{id}", "admin.users.destroy", ctx.Wrap(admin.DeleteUser))
	adminOnly.Get("/admin/stats", "admin.stats", ctx.Wrap(admin.Stats))
}
