// Package seeders fills a fresh store with the data a demo shop needs.
//
//	func init() {
//	    seeders.Register("products", seedProducts)
//	}
//
// Seeders must be safe to run twice.
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shashiranjanraj/kisanmart/app/repositories"
)

// SeederFunc writes seed data through store.
type SeederFunc func(ctx context.Context, store repositories.Store) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// RunAll executes every registered seeder in registration order and stops
// on the first error.
func RunAll(ctx context.Context, store repositories.Store, out io.Writer) error {
	mu.Lock()
	current := append([]seederEntry(nil), entries...)
	mu.Unlock()

	for _, e := range current {
		fmt.Fprintf(out, "Seeding: %s\n", e.name)
		if err := e.fn(ctx, store); err != nil {
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
	}
	return nil
}
