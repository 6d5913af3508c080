// Package session provides cookie-identified HTTP sessions whose data lives
// in Redis, or in process memory when Redis is not connected.
//
// Usage (middleware):
//
//	r.Use(session.Middleware(session.DefaultOptions(), session.NewStore()))
//
// Usage (handler):
//
//	sess := session.FromCtx(r.Context())
//	_ = sess.Set("cart", cart)
//	_ = sess.Save(r.Context(), w)
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/kisanmart/pkg/cache"
)

// ------------------- Options -------------------

// Options configures session behaviour.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		CookieName: "kisanmart_session",
		TTL:        7 * 24 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

// ------------------- Session -------------------

type ctxKey struct{}

// Session is an in-request session handle. Values are kept as JSON so they
// decode back into their concrete types after a round trip through the store.
type Session struct {
	id      string
	data    map[string]json.RawMessage
	opts    Options
	store   Store
	changed bool
}

func newID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session: crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Set stores value under key.
func (s *Session) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session: marshal %s: %w", key, err)
	}
	s.data[key] = raw
	s.changed = true
	return nil
}

// Get decodes the value under key into dest and reports whether it existed.
func (s *Session) Get(key string, dest interface{}) (bool, error) {
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("session: decode %s: %w", key, err)
	}
	return true, nil
}

// GetString is a typed convenience getter.
func (s *Session) GetString(key string) (string, bool) {
	var v string
	ok, err := s.Get(key, &v)
	return v, ok && err == nil
}

// Delete removes a key from the session.
func (s *Session) Delete(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.changed = true
	}
}

// Invalidate destroys the session (logout).
func (s *Session) Invalidate() {
	s.data = map[string]json.RawMessage{}
	s.changed = true
}

// Save persists changed data and writes the cookie. It must run before the
// response body is written.
func (s *Session) Save(ctx context.Context, w http.ResponseWriter) error {
	if !s.changed {
		return nil
	}
	if s.store == nil {
		return fmt.Errorf("session: no store")
	}
	if err := s.store.Save(ctx, s.id, s.data, s.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    s.id,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: s.opts.HTTPOnly,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})
	s.changed = false
	return nil
}

// ------------------- Middleware -------------------

// Middleware loads (or creates) the session for every request and injects it
// into the request context.
func Middleware(opts Options, store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{opts: opts, store: store, data: map[string]json.RawMessage{}}

			if cookie, err := r.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				sess.id = cookie.Value
				if data, err := store.Load(r.Context(), sess.id); err == nil && data != nil {
					sess.data = data
				}
			} else {
				sess.id = newID()
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromCtx retrieves the session from the request context.
// Returns an empty session backed by a throwaway memory store if none is
// present.
func FromCtx(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{
		id:    newID(),
		data:  map[string]json.RawMessage{},
		opts:  DefaultOptions(),
		store: NewMemoryStore(),
	}
}

// ------------------- Stores -------------------

// Store persists session data by id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]json.RawMessage, error)
	Save(ctx context.Context, id string, data map[string]json.RawMessage, ttl time.Duration) error
}

// NewStore picks Redis when the cache is connected, memory otherwise.
func NewStore() Store {
	if cache.Available() {
		return RedisStore{}
	}
	return NewMemoryStore()
}

// RedisStore keeps sessions under kisanmart:session:<id>.
type RedisStore struct{}

func redisKey(id string) string { return "kisanmart:session:" + id }

func (RedisStore) Load(ctx context.Context, id string) (map[string]json.RawMessage, error) {
	var data map[string]json.RawMessage
	if cache.Get(ctx, redisKey(id), &data) {
		return data, nil
	}
	return map[string]json.RawMessage{}, nil
}

func (RedisStore) Save(ctx context.Context, id string, data map[string]json.RawMessage, ttl time.Duration) error {
	return cache.Set(ctx, redisKey(id), data, ttl)
}
