// Package razorpay is a small client for the Razorpay REST API: orders,
// payments, refunds and checkout signature verification.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/kisanmart/config"
	kmhttp "github.com/shashiranjanraj/kisanmart/pkg/http"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
)

// DefaultCurrency is used when a caller does not name one.
const DefaultCurrency = "INR"

// ErrNotConfigured is returned when key id or secret are missing.
var ErrNotConfigured = errors.New("razorpay: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")

// APIError is a non-2xx answer from Razorpay.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Order is a gateway order. Amounts are in paise.
type Order struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// Payment is a gateway payment. Amount is in paise.
type Payment struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id"`
	Method    string `json:"method"`
	Captured  bool   `json:"captured"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
	CreatedAt int64  `json:"created_at"`
}

// Refund is a refund against a payment. Amount is in paise.
type Refund struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Speed     string `json:"speed_requested"`
	CreatedAt int64  `json:"created_at"`
}

// Client talks to one Razorpay account.
type Client struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
	Attempts  int
}

// NewFromConfig reads RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET and
// RAZORPAY_BASE_URL.
func NewFromConfig() *Client {
	return &Client{
		KeyID:     config.RazorpayKeyID(),
		KeySecret: config.RazorpayKeySecret(),
		BaseURL:   config.RazorpayBaseURL(),
		Timeout:   10 * time.Second,
		Attempts:  2,
	}
}

// ToPaise converts a rupee amount to integer paise, rounding half away
// from zero.
func ToPaise(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

// Signature is hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature authenticates the pair. The
// comparison runs in constant time.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c.KeySecret == "" || signature == "" {
		return false
	}
	expected := Signature(c.KeySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CreateOrder opens a gateway order for amount rupees with automatic
// capture. Empty currency means INR; empty receipt means receipt_<unix ms>.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*Order, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	if receipt == "" {
		receipt = "receipt_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	var out Order
	err := c.call(ctx, "create_order", kmhttp.Post(c.BaseURL+"/orders").Body(map[string]any{
		"amount":          ToPaise(amount),
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchOrder loads a gateway order by id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	if err := c.call(ctx, "fetch_order", kmhttp.Get(c.BaseURL+"/orders/"+url.PathEscape(orderID)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPayment loads a payment by id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.call(ctx, "fetch_payment", kmhttp.Get(c.BaseURL+"/payments/"+url.PathEscape(paymentID)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refund refunds amount rupees of a captured payment at normal speed.
// A zero amount refunds the full payment. Like CreateOrder it is sent
// once: a retried POST could refund twice.
func (c *Client) Refund(ctx context.Context, paymentID string, amount float64) (*Refund, error) {
	body := map[string]any{"speed": "normal"}
	if amount > 0 {
		body["amount"] = ToPaise(amount)
	}

	var out Refund
	req := kmhttp.Post(c.BaseURL + "/payments/" + url.PathEscape(paymentID) + "/refund").Body(body)
	if err := c.call(ctx, "refund", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, op string, req *kmhttp.Request, dest any) error {
	if c.KeyID == "" || c.KeySecret == "" {
		metrics.GatewayRequests.WithLabelValues(op, "not_configured").Inc()
		return ErrNotConfigured
	}

	resp, err := req.
		WithContext(ctx).
		BasicAuth(c.KeyID, c.KeySecret).
		Timeout(c.Timeout).
		Retry(c.Attempts, 300*time.Millisecond).
		Send()
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(op, "transport_error").Inc()
		return fmt.Errorf("razorpay: %s: %w", op, err)
	}
	if !resp.OK() {
		metrics.GatewayRequests.WithLabelValues(op, "rejected").Inc()
		return apiError(resp)
	}
	if err := resp.JSON(dest); err != nil {
		metrics.GatewayRequests.WithLabelValues(op, "bad_response").Inc()
		return fmt.Errorf("razorpay: %s: %w", op, err)
	}
	metrics.GatewayRequests.WithLabelValues(op, "ok").Inc()
	return nil
}

func apiError(resp *kmhttp.Response) error {
	var body struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	e := &APIError{StatusCode: resp.StatusCode}
	if resp.JSON(&body) == nil {
		e.Code = body.Error.Code
		e.Description = body.Error.Description
	}
	if e.Description == "" {
		e.Description = resp.Text()
	}
	return e
}
