package controllers

import (
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

func (pc *PaymentController) CreateOrder(c *ctx.Context) {
	var in services.CreatePaymentInput
	if !c.BindJSON(&in) {
		return
	}
	o, err := pc.payments.CreateOrder(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(o)
}

func (pc *PaymentController) Verify(c *ctx.Context) {
	var in services.VerifyPaymentInput
	if !c.BindJSON(&in) {
		return
	}
	v, err := pc.payments.Verify(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Payment verified successfully", v)
}

func (pc *PaymentController) Show(c *ctx.Context) {
	p, err := pc.payments.Payment(c.Context(), c.Param("paymentId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *PaymentController) Refund(c *ctx.Context) {
	var in services.RefundInput
	if !c.BindJSON(&in) {
		return
	}
	r, err := pc.payments.Refund(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Refund initiated successfully", r)
}
