package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{KeyID: "rzp_test_key", KeySecret: "s3cret", BaseURL: srv.URL, Timeout: time.Second, Attempts: 1}
}

func TestToPaise(t *testing.T) {
	assert.EqualValues(t, 50000, ToPaise(500))
	assert.EqualValues(t, 129999, ToPaise(1299.99))
	assert.EqualValues(t, 1, ToPaise(0.005))
	assert.EqualValues(t, 30, ToPaise(0.3))
}

func TestVerifySignature(t *testing.T) {
	c := &Client{KeySecret: "s3cret"}
	sig := Signature("s3cret", "order_1", "pay_1")

	assert.True(t, c.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, c.VerifySignature("order_1", "pay_2", sig))

	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.False(t, c.VerifySignature("order_1", "pay_1", string(flipped)))
	assert.False(t, c.VerifySignature("order_1", "pay_1", ""))
	assert.False(t, (&Client{}).VerifySignature("order_1", "pay_1", sig))
}

func TestCreateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, _ := r.BasicAuth()
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "s3cret", pass)

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.EqualValues(t, 59000, in["amount"])
		assert.Equal(t, "INR", in["currency"])
		assert.EqualValues(t, 1, in["payment_capture"])
		assert.True(t, strings.HasPrefix(in["receipt"].(string), "receipt_"))

		_, _ = w.Write([]byte(`{"id":"order_9","amount":59000,"currency":"INR","status":"created"}`))
	})

	o, err := c.CreateOrder(context.Background(), 590, "", "")
	require.NoError(t, err)
	assert.Equal(t, "order_9", o.ID)
	assert.EqualValues(t, 59000, o.Amount)
}

func TestRefundAndAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "normal", in["speed"])
		if r.URL.Path == "/payments/pay_bad/refund" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The payment has been fully refunded already"}}`))
			return
		}
		assert.EqualValues(t, 10050, in["amount"])
		_, _ = w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_ok","amount":10050,"status":"processed"}`))
	})

	r, err := c.Refund(context.Background(), "pay_ok", 100.5)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", r.ID)

	_, err = c.Refund(context.Background(), "pay_bad", 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
}

func TestFetchPaymentNotConfigured(t *testing.T) {
	_, err := (&Client{BaseURL: "http://unused"}).FetchPayment(context.Background(), "pay_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetchOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/order_7", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"order_7","amount":64000,"amount_paid":64000,"currency":"INR","status":"paid"}`))
	})

	o, err := c.FetchOrder(context.Background(), "order_7")
	require.NoError(t, err)
	assert.EqualValues(t, 64000, o.Amount)
	assert.EqualValues(t, 64000, o.AmountPaid)
	assert.Equal(t, "paid", o.Status)
}

func TestRefundIsSentOnceWhenReplyIsLost(t *testing.T) {
	var posts, gets int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var n int32
		if r.Method == http.MethodPost {
			n = atomic.AddInt32(&posts, 1)
		} else {
			n = atomic.AddInt32(&gets, 1)
		}
		if n == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_1","amount":10000,"status":"processed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"pay_1","amount":10000,"status":"captured"}`))
	})
	c.Timeout = 100 * time.Millisecond
	c.Attempts = 3

	_, err := c.Refund(context.Background(), "pay_1", 100)
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&posts))

	p, err := c.FetchPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "captured", p.Status)
	assert.EqualValues(t, 2, atomic.LoadInt32(&gets))
}
