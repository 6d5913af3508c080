package services

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/kisanmart/app/gateways/razorpay"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
)

// PaymentGateway is the subset of the Razorpay client the shop uses.
type PaymentGateway interface {
	PaymentVerifier
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	Refund(ctx context.Context, paymentID string, amount float64) (*razorpay.Refund, error)
}

type CreatePaymentInput struct {
	Amount   float64 `json:"amount"   validate:"required,gte=1"`
	Currency string  `json:"currency" validate:"nullable,in=INR"`
	Receipt  string  `json:"receipt"  validate:"nullable,max=40"`
}

// GatewayOrder is what the checkout widget needs to open a payment.
type GatewayOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

type VerifyPaymentInput struct {
	RazorpayOrderID   string `json:"razorpay_order_id"   validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature"  validate:"required"`
}

type VerifiedPayment struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

type RefundInput struct {
	PaymentID string  `json:"paymentId" validate:"required"`
	Amount    float64 `json:"amount"    validate:"gte=0"`
}

type PaymentService struct {
	gateway PaymentGateway
	keyID   string
}

func NewPaymentService(gateway PaymentGateway, keyID string) *PaymentService {
	return &PaymentService{gateway: gateway, keyID: keyID}
}

func (s *PaymentService) CreateOrder(ctx context.Context, in CreatePaymentInput) (*GatewayOrder, error) {
	o, err := s.gateway.CreateOrder(ctx, in.Amount, in.Currency, in.Receipt)
	if err != nil {
		return nil, s.gatewayError(ctx, "Failed to create payment order", err)
	}
	return &GatewayOrder{OrderID: o.ID, Amount: o.Amount, Currency: o.Currency, Key: s.keyID}, nil
}

// Verify checks the gateway signature of an order/payment pair.
func (s *PaymentService) Verify(ctx context.Context, in VerifyPaymentInput) (*VerifiedPayment, error) {
	if !s.gateway.VerifySignature(in.RazorpayOrderID, in.RazorpayPaymentID, in.RazorpaySignature) {
		metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
		logger.WithCtx(ctx).Warn("payment signature rejected", "razorpay_order_id", in.RazorpayOrderID, "razorpay_payment_id", in.RazorpayPaymentID)
		return nil, Invalid("Payment verification failed")
	}
	metrics.PaymentVerifications.WithLabelValues("authentic").Inc()
	return &VerifiedPayment{OrderID: in.RazorpayOrderID, PaymentID: in.RazorpayPaymentID}, nil
}

func (s *PaymentService) Payment(ctx context.Context, paymentID string) (*razorpay.Payment, error) {
	p, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		var apiErr *razorpay.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, NotFound("Payment not found")
		}
		return nil, s.gatewayError(ctx, "Failed to fetch payment details", err)
	}
	return p, nil
}

// Refund refunds amount rupees of a captured payment; zero refunds in full.
func (s *PaymentService) Refund(ctx context.Context, in RefundInput) (*razorpay.Refund, error) {
	r, err := s.gateway.Refund(ctx, in.PaymentID, in.Amount)
	if err != nil {
		return nil, s.gatewayError(ctx, "Failed to process refund", err)
	}
	logger.WithCtx(ctx).Info("refund initiated", "payment_id", in.PaymentID, "refund_id", r.ID, "amount", r.Amount)
	return r, nil
}

func (s *PaymentService) gatewayError(ctx context.Context, msg string, err error) error {
	logger.WithCtx(ctx).Error(msg, "error", err)
	return Gateway(msg, err)
}
