package controllers

import (
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
	"github.com/shashiranjanraj/kisanmart/pkg/session"
)

// CartController serves the session cart. Every handler saves the session
// since reads may drop or clamp stale lines.
type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

func (cc *CartController) respond(c *ctx.Context, sess *session.Session, cart *services.Cart, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	if !saveSession(c, sess) {
		return
	}
	c.Success(cart)
}

func (cc *CartController) Show(c *ctx.Context) {
	sess := session.FromCtx(c.Context())
	cart, err := cc.cart.Get(c.Context(), sess)
	cc.respond(c, sess, cart, err)
}

func (cc *CartController) Add(c *ctx.Context) {
	var in services.CartItemInput
	if !c.BindJSON(&in) {
		return
	}
	sess := session.FromCtx(c.Context())
	cart, err := cc.cart.Add(c.Context(), sess, in)
	cc.respond(c, sess, cart, err)
}

func (cc *CartController) Update(c *ctx.Context) {
	var in services.CartQuantityInput
	if !c.BindJSON(&in) {
		return
	}
	sess := session.FromCtx(c.Context())
	cart, err := cc.cart.SetQuantity(c.Context(), sess, c.Param("productId"), in.Quantity)
	cc.respond(c, sess, cart, err)
}

func (cc *CartController) Remove(c *ctx.Context) {
	sess := session.FromCtx(c.Context())
	cart, err := cc.cart.Remove(c.Context(), sess, c.Param("productId"))
	cc.respond(c, sess, cart, err)
}

func (cc *CartController) Clear(c *ctx.Context) {
	sess := session.FromCtx(c.Context())
	cc.cart.Clear(sess)
	cart, err := cc.cart.Get(c.Context(), sess)
	cc.respond(c, sess, cart, err)
}
