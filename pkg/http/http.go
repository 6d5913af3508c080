// Package http provides a fluent, retry-aware HTTP client for outgoing calls
// such as the payment gateway.
//
//	var out gatewayOrder
//	resp, err := http.Post(base + "/orders").
//	    WithContext(ctx).
//	    BasicAuth(keyID, keySecret).
//	    Body(payload).
//	    Timeout(10 * time.Second).
//	    Retry(3, 300*time.Millisecond).
//	    Send()
//	if err == nil {
//	    err = resp.Throw()
//	}
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"time"

	"github.com/shashiranjanraj/kisanmart/pkg/logger"
)

// defaultTransport is the pooled transport used in production. Tests swap
// DefaultClient.Transport to inject mocks.
var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is the shared client for all outgoing requests.
//
//	http.DefaultClient.Transport = mock
//	defer http.ResetTransport()
var DefaultClient = &gohttp.Client{Transport: defaultTransport}

// ResetTransport restores the production transport on DefaultClient.
func ResetTransport() {
	DefaultClient.Transport = defaultTransport
}

// ------------------- Request -------------------

// Request is a fluent HTTP request builder.
type Request struct {
	method    string
	url       string
	query     url.Values
	headers   gohttp.Header
	user      *url.Userinfo
	body      interface{}
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	ctx       context.Context
}

func Get(url string) *Request    { return newRequest(gohttp.MethodGet, url) }
func Post(url string) *Request   { return newRequest(gohttp.MethodPost, url) }
func Put(url string) *Request    { return newRequest(gohttp.MethodPut, url) }
func Delete(url string) *Request { return newRequest(gohttp.MethodDelete, url) }

func newRequest(method, u string) *Request {
	h := gohttp.Header{}
	h.Set("Accept", "application/json")
	return &Request{
		method:    method,
		url:       u,
		query:     url.Values{},
		headers:   h,
		timeout:   30 * time.Second,
		retries:   1,
		retryWait: 500 * time.Millisecond,
		ctx:       context.Background(),
	}
}

func (r *Request) Header(key, value string) *Request {
	r.headers.Set(key, value)
	return r
}

// Query adds a query-string parameter.
func (r *Request) Query(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// BasicAuth sets HTTP basic credentials.
func (r *Request) BasicAuth(user, password string) *Request {
	r.user = url.UserPassword(user, password)
	return r
}

// Body sets the request body. Values other than string and []byte are sent
// as JSON.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// Timeout sets the per-attempt timeout.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts (1 = no retry) and the initial
// backoff, which doubles after each failed attempt. Transport errors and 5xx
// responses are retried; 4xx responses are returned as-is. POST and PATCH
// requests are sent once unless they carry an Idempotency-Key header.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.retries = n
	r.retryWait = wait
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// ------------------- Send -------------------

// IdempotencyKey marks a POST or PATCH as safe to retry.
func (r *Request) IdempotencyKey(key string) *Request {
	return r.Header("Idempotency-Key", key)
}

// attempts is the retry budget; a non-idempotent request may have reached
// the server, so it is never repeated.
func (r *Request) attempts() int {
	switch r.method {
	case gohttp.MethodPost, gohttp.MethodPatch:
		if r.headers.Get("Idempotency-Key") == "" {
			return 1
		}
	}
	return r.retries
}

// Send executes the request, retrying as configured.
func (r *Request) Send() (*Response, error) {
	var (
		resp    *Response
		lastErr error
	)
	backoff := r.retryWait
	attempts := r.attempts()

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, lastErr = r.do()
		if lastErr == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == attempts {
			break
		}

		logger.WithCtx(r.ctx).Warn("http: request failed, retrying",
			"method", r.method, "url", r.url, "attempt", attempt, "backoff", backoff, "error", lastErr)

		timer := time.NewTimer(backoff)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, r.ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}

	if lastErr != nil {
		return nil, fmt.Errorf("http: all %d attempts failed for %s %s: %w", attempts, r.method, r.url, lastErr)
	}
	return resp, nil
}

func (r *Request) do() (*Response, error) {
	body, ct, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(r.url)
	if err != nil {
		return nil, fmt.Errorf("http: parse url: %w", err)
	}
	if len(r.query) > 0 {
		q := u.Query()
		for k, vs := range r.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	req.Header = r.headers.Clone()
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if r.user != nil {
		pw, _ := r.user.Password()
		req.SetBasicAuth(r.user.Username(), pw)
	}

	resp, err := DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Raw: raw}, nil
}

func (r *Request) buildBody() (io.Reader, string, error) {
	switch v := r.body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return bytes.NewBufferString(v), "text/plain", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// ------------------- Response -------------------

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into dest.
func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

func (r *Response) Text() string { return string(r.Raw) }

// StatusError is returned by Throw for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: request failed with status %d: %s", e.StatusCode, e.Body)
}

// Throw returns a *StatusError if the response status is not 2xx.
func (r *Response) Throw() error {
	if !r.OK() {
		return &StatusError{StatusCode: r.StatusCode, Body: string(r.Raw)}
	}
	return nil
}
