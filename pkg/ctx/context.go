// Package ctx provides a request context for shop handlers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context with helpers for params, binding and the JSON
// envelope:
//
//	func ShowProduct(c *ctx.Context) {
//	    p, err := catalog.Get(c.Context(), c.Param("id"))
//	    ...
//	    c.Success(p)
//	}
//
//	router.Get("/products/{id}", "products.show", ctx.Wrap(ShowProduct))
package ctx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shashiranjanraj/kisanmart/pkg/bind"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"github.com/shashiranjanraj/kisanmart/pkg/response"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int // 0 until a response is written
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R, c.status = w, r, 0
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a trimmed query-string value, "" if not present.
func (c *Context) Query(key string) string {
	return strings.TrimSpace(c.R.URL.Query().Get(key))
}

// QueryInt returns the query value as an int, or def when absent or
// malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// QueryFloat returns the query value as a float, or nil when absent or
// malformed.
func (c *Context) QueryFloat(key string) *float64 {
	f, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return nil
	}
	return &f
}

// QueryBool reports whether the query value is "true" or "1".
func (c *Context) QueryBool(key string) bool {
	v := strings.ToLower(c.Query(key))
	return v == "true" || v == "1"
}

// ClientIP returns the real client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes the JSON body into dest and runs validation. On failure it
// sends a 400 (with field errors when validation failed) and returns false.
//
//	var input RegisterInput
//	if !c.BindJSON(&input) {
//	    return // response already sent
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if len(errs) > 0 {
		c.ValidationError(errs)
		return false
	}
	return true
}

// DecodeJSON decodes the body without validating it. On failure it sends a
// 400 and returns false.
func (c *Context) DecodeJSON(dest any) bool {
	if err := bind.Decode(c.R, dest); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) write(status int, body response.Envelope) {
	c.status = status
	response.Write(c.W, status, body)
}

func (c *Context) Success(data any) {
	c.write(http.StatusOK, response.Envelope{Success: true, Data: data})
}

func (c *Context) Created(data any) {
	c.write(http.StatusCreated, response.Envelope{Success: true, Data: data})
}

// Message sends a 200 with a human-readable message and optional data.
func (c *Context) Message(message string, data any) {
	c.write(http.StatusOK, response.Envelope{Success: true, Message: message, Data: data})
}

// List sends a 200 with data and a count of its elements.
func (c *Context) List(data any, count int) {
	c.write(http.StatusOK, response.Envelope{Success: true, Data: data, Count: &count})
}

func (c *Context) Paginated(data any, p orm.Pagination) {
	c.write(http.StatusOK, response.Envelope{Success: true, Data: data, Pagination: &p})
}

// Error sends {"success": false, "message": ...} with the given status.
func (c *Context) Error(status int, message string) {
	c.write(status, response.Envelope{Message: message})
}

// ValidationError sends a 400 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.write(http.StatusBadRequest, response.Envelope{Message: "Validation failed", Errors: errs})
}

// WrittenStatus returns the status code written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
