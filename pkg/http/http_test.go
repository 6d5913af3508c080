package http

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSendsJSONBasicAuthAndQuery(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "1", r.URL.Query().Get("expand"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.EqualValues(t, 50000, in["amount"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_1"}`))
	}))
	defer srv.Close()

	resp, err := Post(srv.URL).
		BasicAuth("rzp_key", "rzp_secret").
		Query("expand", "1").
		Body(map[string]any{"amount": 50000}).
		Send()
	require.NoError(t, err)
	require.NoError(t, resp.Throw())

	var out struct{ ID string }
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "order_1", out.ID)
}

func TestRetriesServerErrorsOnly(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(gohttp.StatusBadGateway)
			return
		}
		w.WriteHeader(gohttp.StatusOK)
	}))
	defer srv.Close()

	resp, err := Get(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, gohttp.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	bad := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(gohttp.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer bad.Close()

	resp, err = Get(bad.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	var se *StatusError
	require.ErrorAs(t, resp.Throw(), &se)
	assert.Equal(t, gohttp.StatusBadRequest, se.StatusCode)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Get(srv.URL).WithContext(ctx).Retry(5, time.Hour).Send()
	assert.Error(t, err)
}

// slowFirst delays its first reply past a 100ms client timeout.
func slowFirst(calls *int32) *httptest.Server {
	return httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if atomic.AddInt32(calls, 1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"rfnd_1"}`))
	}))
}

func TestPostIsNotRetriedAfterTimeout(t *testing.T) {
	var calls int32
	srv := slowFirst(&calls)
	defer srv.Close()

	_, err := Post(srv.URL).
		Body(map[string]any{"amount": 100}).
		Timeout(100 * time.Millisecond).
		Retry(3, time.Millisecond).
		Send()
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestPostWithIdempotencyKeyIsRetried(t *testing.T) {
	var calls int32
	srv := slowFirst(&calls)
	defer srv.Close()

	resp, err := Post(srv.URL).
		IdempotencyKey("refund-pay_1").
		Body(map[string]any{"amount": 100}).
		Timeout(100 * time.Millisecond).
		Retry(3, time.Millisecond).
		Send()
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
