// Package schedule runs periodic background tasks next to the HTTP server.
//
//	s := schedule.New()
//	s.Every(5*time.Minute, "inventory.gauge", refreshInventory).WithoutOverlapping()
//	go s.Run(ctx)
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/kisanmart/pkg/logger"
)

// Task is one unit of scheduled work. It receives the scheduler's context.
type Task func(ctx context.Context) error

type entry struct {
	name      string
	interval  time.Duration
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Entry is returned by Every for chaining options.
type Entry struct{ e *entry }

// WithoutOverlapping skips a tick while the previous run is still going.
func (e Entry) WithoutOverlapping() Entry {
	e.e.noOverlap = true
	return e
}

// Scheduler dispatches due tasks once per tick.
type Scheduler struct {
	tick time.Duration

	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

// New returns a scheduler that checks for due tasks every second.
func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Every registers task to run every interval. The first run happens on the
// first tick after Run starts.
func (s *Scheduler) Every(interval time.Duration, name string, task Task) Entry {
	if interval <= 0 {
		interval = time.Minute
	}
	e := &entry{name: name, interval: interval, task: task}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return Entry{e: e}
}

// List describes the registered tasks.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [every %s]", e.name, e.interval))
	}
	return out
}

// Run blocks until ctx is cancelled, then waits for running tasks.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	logger.Info("schedule: started", "tasks", len(s.entries))

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return nil
		case now := <-ticker.C:
			s.mu.Lock()
			current := append([]*entry(nil), s.entries...)
			s.mu.Unlock()

			for _, e := range current {
				s.dispatch(ctx, e, now)
			}
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.interval {
		e.mu.Unlock()
		return
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "task", e.name)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "task", e.name, "panic", r)
			}
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "task", e.name, "error", err)
			return
		}
		logger.Debug("schedule: task done", "task", e.name, "duration", time.Since(start))
	}()
}
