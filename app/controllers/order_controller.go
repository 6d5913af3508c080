package controllers

import (
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/session"
)

type OrderController struct {
	orders *services.OrderService
	cart   *services.CartService
}

func NewOrderController(orders *services.OrderService, cart *services.CartService) *OrderController {
	return &OrderController{orders: orders, cart: cart}
}

// Store places an order. A repeated Razorpay submit answers 200 with the
// order created the first time. The order stands even when the emptied cart
// cannot be saved.
func (oc *OrderController) Store(c *ctx.Context) {
	var in services.CreateOrderInput
	if !c.DecodeJSON(&in) {
		return
	}
	order, created, err := oc.orders.Create(c.Context(), identity(c), in)
	if err != nil {
		fail(c, err)
		return
	}

	sess := session.FromCtx(c.Context())
	oc.cart.Clear(sess)
	if err := sess.Save(c.Context(), c.W); err != nil {
		logger.WithCtx(c.Context()).Warn("cart not cleared after order", "order_id", order.ID, "error", err)
	}

	if created {
		c.Created(order)
		return
	}
	c.Success(order)
}

func (oc *OrderController) Index(c *ctx.Context) {
	orders, page, err := oc.orders.All(c.Context(), c.QueryInt("page", 1), c.QueryInt("limit", 12))
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(orders, page)
}

func (oc *OrderController) Mine(c *ctx.Context) {
	orders, err := oc.orders.Mine(c.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

func (oc *OrderController) Show(c *ctx.Context) {
	order, err := oc.orders.Get(c.Context(), identity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	var upd services.StatusUpdate
	if !c.BindJSON(&upd) {
		return
	}
	order, err := oc.orders.SetStatus(c.Context(), identity(c), c.Param("id"), upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) Cancel(c *ctx.Context) {
	order, err := oc.orders.Cancel(c.Context(), identity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}
