// Package queue runs background jobs (order emails) on an in-process or
// Redis-backed queue.
//
//	queue.Register(jobs.OrderPlacedMail{})
//	queue.Dispatch(ctx, jobs.OrderPlacedMail{OrderID: o.ID})
//
//	// in the serve command, alongside the HTTP server:
//	g.Go(func() error { return queue.Run(ctx, 2) })
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
)

// Job is a unit of background work. Jobs are serialised as JSON, so every
// field a job needs must be exported.
type Job interface {
	// JobName identifies the job type on the wire.
	JobName() string
	Handle(ctx context.Context) error
}

// FailedJob holds a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Payload  json.RawMessage
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available. A nil payload with a nil
	// error means the wait timed out.
	Pop(ctx context.Context) ([]byte, error)
}

// ------------------- Manager -------------------

// Manager owns a driver, the job registry and the failure log.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  time.Duration
	store    FailedStore
}

// New returns a Manager on driver with 3 attempts and a 1s base backoff.
func New(driver Driver) *Manager {
	return &Manager{
		driver:   driver,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
}

var defaultManager = New(NewMemoryDriver(1000))

// Default returns the process-wide manager.
func Default() *Manager { return defaultManager }

func SetDriver(d Driver)                          { defaultManager.SetDriver(d) }
func SetMaxRetry(n int)                           { defaultManager.SetMaxRetry(n) }
func Register(prototypes ...Job)                  { defaultManager.Register(prototypes...) }
func Dispatch(ctx context.Context, job Job) error { return defaultManager.Dispatch(ctx, job) }
func Run(ctx context.Context, workers int) error  { return defaultManager.Run(ctx, workers) }
func FailedJobs() []FailedJob                     { return defaultManager.FailedJobs() }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

func (m *Manager) SetMaxRetry(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.maxRetry = n
	m.mu.Unlock()
}

// SetBackoff sets the base delay between attempts; attempt n waits n×d.
func (m *Manager) SetBackoff(d time.Duration) {
	m.mu.Lock()
	m.backoff = d
	m.mu.Unlock()
}

// UseStore persists exhausted jobs in s in addition to the in-memory log.
func (m *Manager) UseStore(s FailedStore) {
	m.mu.Lock()
	m.store = s
	m.mu.Unlock()
}

// Register makes job types decodable by name. The prototype's concrete type
// is used as a template: a fresh zero value is decoded for every run.
func (m *Manager) Register(prototypes ...Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range prototypes {
		p := p
		m.registry[p.JobName()] = func() Job { return newLike(p) }
	}
}

// ------------------- Dispatch -------------------

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch serialises job and pushes it onto the driver.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", job.JobName(), err)
	}

	env, err := json.Marshal(envelope{Type: job.JobName(), Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	if err := d.Push(ctx, env); err != nil {
		return fmt.Errorf("queue: dispatch %s: %w", job.JobName(), err)
	}
	return nil
}

// ------------------- Worker -------------------

// Run processes jobs on n workers until ctx is cancelled, then waits for
// in-flight jobs to finish.
func (m *Manager) Run(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	wg.Wait()
	logger.Info("queue: workers stopped")
	return nil
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			if !sleep(ctx, 500*time.Millisecond) {
				return
			}
			continue
		}
		if raw == nil {
			continue
		}

		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	attempt := 0
	for attempt < maxRetry {
		attempt++
		lastErr = job.Handle(ctx)
		if lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			logger.Debug("queue: job processed", "type", env.Type, "attempt", attempt)
			return
		}
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", lastErr)
		if attempt < maxRetry && !sleep(ctx, time.Duration(attempt)*backoff) {
			lastErr = errors.Join(lastErr, ctx.Err())
			break
		}
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	m.persistFailed(ctx, FailedJob{
		Type:     env.Type,
		Payload:  env.Payload,
		Err:      lastErr,
		FailedAt: time.Now(),
		Attempts: attempt,
	})
	logger.Error("queue: job exhausted retries", "type", env.Type, "attempts", attempt, "error", lastErr)
}

// FailedJobs returns a snapshot of jobs that exhausted their retries.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// newLike returns a pointer to a fresh zero value of p's concrete type, so
// value and pointer prototypes both decode into something addressable.
func newLike(p Job) Job {
	t := reflect.TypeOf(p)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface().(Job)
}
