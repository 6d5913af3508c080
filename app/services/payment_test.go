package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shashiranjanraj/kisanmart/app/gateways/razorpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return m.Called(orderID, paymentID, signature).Bool(0)
}

func (m *mockGateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*razorpay.Order, error) {
	args := m.Called(amount, currency, receipt)
	o, _ := args.Get(0).(*razorpay.Order)
	return o, args.Error(1)
}

func (m *mockGateway) FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error) {
	args := m.Called(orderID)
	o, _ := args.Get(0).(*razorpay.Order)
	return o, args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error) {
	args := m.Called(paymentID)
	p, _ := args.Get(0).(*razorpay.Payment)
	return p, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, paymentID string, amount float64) (*razorpay.Refund, error) {
	args := m.Called(paymentID, amount)
	r, _ := args.Get(0).(*razorpay.Refund)
	return r, args.Error(1)
}

func TestPaymentCreateOrderReturnsWidgetFields(t *testing.T) {
	gw := &mockGateway{}
	gw.On("CreateOrder", 640.5, "", "").Return(&razorpay.Order{ID: "order_1", Amount: 64050, Currency: "INR"}, nil)
	svc := NewPaymentService(gw, "rzp_key")

	got, err := svc.CreateOrder(context.Background(), CreatePaymentInput{Amount: 640.5})
	require.NoError(t, err)
	assert.Equal(t, &GatewayOrder{OrderID: "order_1", Amount: 64050, Currency: "INR", Key: "rzp_key"}, got)
	gw.AssertExpectations(t)
}

func TestPaymentGatewayFailuresAreBadGateway(t *testing.T) {
	gw := &mockGateway{}
	boom := errors.New("connection refused")
	gw.On("CreateOrder", 10.0, "", "").Return(nil, boom)
	gw.On("FetchPayment", "pay_x").Return(nil, boom)
	gw.On("FetchPayment", "pay_missing").Return(nil, &razorpay.APIError{StatusCode: 404, Code: "BAD_REQUEST_ERROR"})
	gw.On("Refund", "pay_x", 0.0).Return(nil, boom)
	svc := NewPaymentService(gw, "rzp_key")
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreatePaymentInput{Amount: 10})
	requireKind(t, err, KindGateway, "Failed to create payment order")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Payment(ctx, "pay_x")
	requireKind(t, err, KindGateway, "Failed to fetch payment details")

	_, err = svc.Payment(ctx, "pay_missing")
	requireKind(t, err, KindNotFound, "Payment not found")

	_, err = svc.Refund(ctx, RefundInput{PaymentID: "pay_x"})
	requireKind(t, err, KindGateway, "Failed to process refund")
}

func TestPaymentVerify(t *testing.T) {
	gw := &razorpay.Client{KeySecret: testKeySecret}
	svc := NewPaymentService(gw, "")

	good := VerifyPaymentInput{
		RazorpayOrderID:   "order_A",
		RazorpayPaymentID: "pay_B",
		RazorpaySignature: razorpay.Signature(testKeySecret, "order_A", "pay_B"),
	}
	got, err := svc.Verify(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, &VerifiedPayment{OrderID: "order_A", PaymentID: "pay_B"}, got)

	bad := good
	bad.RazorpayPaymentID = "pay_C"
	_, err = svc.Verify(context.Background(), bad)
	requireKind(t, err, KindValidation, "Payment verification failed")
}
