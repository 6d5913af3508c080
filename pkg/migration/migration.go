// Package migration runs versioned schema changes and records them in the
// schema_migrations table.
//
//	func init() {
//	    migration.Register("20260301000000_create_products_table", &CreateProductsTable{})
//	}
//
// Migrations run in name order, so prefix names with a timestamp.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"gorm.io/gorm"
)

// Migration is one reversible schema change.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null;index"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

type named struct {
	name string
	m    Migration
}

var registry []named

// Register adds m to the global set used by Default runners.
func Register(name string, m Migration) {
	registry = append(registry, named{name: name, m: m})
}

// ErrNotRegistered is returned when a recorded migration has no
// implementation to roll it back with.
var ErrNotRegistered = errors.New("migration: not registered")

// Status is one row of the status report.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner executes and tracks migrations against one database.
type Runner struct {
	db         *gorm.DB
	migrations []named
	out        io.Writer
}

// New creates a Runner over the globally registered migrations that
// reports progress on stdout.
func New(db *gorm.DB) *Runner {
	return &Runner{db: db, migrations: sorted(registry), out: os.Stdout}
}

// With returns a copy of r that also knows m. Used by tests and by callers
// that build their migration list at runtime.
func (r *Runner) With(name string, m Migration) *Runner {
	cp := *r
	cp.migrations = sorted(append(append([]named(nil), r.migrations...), named{name: name, m: m}))
	return &cp
}

// Output redirects progress lines.
func (r *Runner) Output(w io.Writer) *Runner {
	r.out = w
	return r
}

func sorted(ms []named) []named {
	out := append([]named(nil), ms...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (r *Runner) ensureTable() error {
	if err := r.db.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load history: %w", err)
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

func (r *Runner) lastBatch() (int, error) {
	var batch sql.NullInt64
	if err := r.db.Model(&record{}).Select("MAX(batch)").Row().Scan(&batch); err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	return int(batch.Int64), nil
}

// Run applies every pending migration as one new batch and returns how many
// ran.
func (r *Runner) Run() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}
	done, err := r.ran()
	if err != nil {
		return 0, err
	}
	batch, err := r.lastBatch()
	if err != nil {
		return 0, err
	}
	batch++

	count := 0
	for _, n := range r.migrations {
		if _, ok := done[n.name]; ok {
			continue
		}
		if err := n.m.Up(r.db); err != nil {
			return count, fmt.Errorf("migration: %s up: %w", n.name, err)
		}
		if err := r.db.Create(&record{Name: n.name, Batch: batch}).Error; err != nil {
			return count, fmt.Errorf("migration: record %s: %w", n.name, err)
		}
		logger.Info("migration: applied", "name", n.name, "batch", batch)
		fmt.Fprintf(r.out, "Migrated: %s\n", n.name)
		count++
	}
	if count == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
	}
	return count, nil
}

// Rollback reverts the most recent batch, newest first, and returns how many
// were reverted.
func (r *Runner) Rollback() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}
	batch, err := r.lastBatch()
	if err != nil {
		return 0, err
	}
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return 0, nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", batch).Order("name desc").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	byName := make(map[string]Migration, len(r.migrations))
	for _, n := range r.migrations {
		byName[n.name] = n.m
	}

	count := 0
	for _, rec := range rows {
		m, ok := byName[rec.Name]
		if !ok {
			return count, fmt.Errorf("%w: %s", ErrNotRegistered, rec.Name)
		}
		if err := m.Down(r.db); err != nil {
			return count, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := r.db.Delete(&record{}, rec.ID).Error; err != nil {
			return count, fmt.Errorf("migration: forget %s: %w", rec.Name, err)
		}
		logger.Info("migration: rolled back", "name", rec.Name, "batch", batch)
		fmt.Fprintf(r.out, "Rolled back: %s\n", rec.Name)
		count++
	}
	return count, nil
}

// Status reports every known migration in run order.
func (r *Runner) Status() ([]Status, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.ran()
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(r.migrations))
	for _, n := range r.migrations {
		rec, ok := done[n.name]
		out = append(out, Status{Name: n.name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}
