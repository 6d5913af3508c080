// Package kernel boots the shop: it connects the configured backends and
// wires services, queue jobs and the HTTP handler together.
package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kisanmart/app/gateways/razorpay"
	"github.com/shashiranjanraj/kisanmart/app/jobs"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/cache"
	"github.com/shashiranjanraj/kisanmart/pkg/database"
	"github.com/shashiranjanraj/kisanmart/pkg/grpc"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
	"github.com/shashiranjanraj/kisanmart/pkg/queue"
	"github.com/shashiranjanraj/kisanmart/pkg/schedule"
	"github.com/shashiranjanraj/kisanmart/pkg/storage"
)

// Kernel holds everything a running process needs.
type Kernel struct {
	Store    repositories.Store
	Services *services.Registry
	Queue    *queue.Manager

	closers []func(context.Context) error
}

// Boot connects the store, cache, storage disks and queue driver named by
// the configuration. Redis is optional: without it the cache is a no-op and
// sessions and jobs stay in memory.
func Boot(ctx context.Context) (*Kernel, error) {
	k, err := BootStore(ctx)
	if err != nil {
		return nil, err
	}

	if uri := config.LogMongoURI(); uri != "" {
		flush, err := logger.ShipToMongo(uri, config.MongoDatabase(), "logs")
		if err != nil {
			logger.Warn("kernel: mongo log sink disabled", "error", err)
		} else {
			k.onClose(func(context.Context) error { flush(); return nil })
		}
	}

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("kernel: redis unavailable, caching disabled", "error", err)
	} else {
		k.onClose(func(context.Context) error { return cache.Close() })
	}

	if err := storage.Connect(ctx); err != nil {
		_ = k.Shutdown(ctx)
		return nil, fmt.Errorf("kernel: storage: %w", err)
	}

	if config.QueueDriver() == "redis" {
		if cache.Available() {
			k.Queue.SetDriver(queue.NewRedisDriver(cache.RDB))
		} else {
			logger.Warn("kernel: QUEUE_DRIVER=redis without redis, using memory queue")
		}
	}
	jobs.Register()

	gateway := razorpay.NewFromConfig()
	k.Services = services.NewRegistry(services.Deps{
		Store:        k.Store,
		Gateway:      gateway,
		GatewayKeyID: gateway.KeyID,
		Disk:         storage.Default(),
		Notifier:     jobs.NewMailNotifier(k.Store.Users(), k.Queue),
		Pricing:      services.PricingFromConfig(),
	})
	return k, nil
}

// BootStore loads the configuration and connects only the store, for the
// database commands.
func BootStore(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("kernel: load config: %w", err)
	}
	k := &Kernel{Queue: queue.Default()}
	store, err := k.connectStore(ctx)
	if err != nil {
		_ = k.Shutdown(ctx)
		return nil, err
	}
	k.Store = store
	return k, nil
}

func (k *Kernel) connectStore(ctx context.Context) (repositories.Store, error) {
	if config.DatabaseDriver() == "mongo" {
		if err := database.ConnectMongo(ctx); err != nil {
			return nil, fmt.Errorf("kernel: %w", err)
		}
		k.onClose(database.DisconnectMongo)

		store := repositories.NewMongoStore(database.Mongo, config.MongoTransactions())
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("kernel: mongo indexes: %w", err)
		}
		return store, nil
	}

	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	k.onClose(func(context.Context) error { return database.Close() })
	k.Queue.UseStore(queue.GormFailedStore{DB: database.DB})
	return repositories.NewGormStore(database.DB), nil
}

func (k *Kernel) onClose(fn func(context.Context) error) {
	k.closers = append(k.closers, fn)
}

// Checks are the readiness probes shared by /health and the gRPC health
// service.
func (k *Kernel) Checks() map[string]grpc.Check {
	checks := map[string]grpc.Check{"database": database.Ping}
	if cache.Available() {
		checks["cache"] = cache.Ping
	}
	return checks
}

// Scheduler returns the periodic tasks a serving process runs.
func (k *Kernel) Scheduler() *schedule.Scheduler {
	s := schedule.New()
	s.Every(config.InventoryInterval(), "inventory.gauge", func(ctx context.Context) error {
		inv, err := k.Services.Admin.Inventory(ctx)
		if err != nil {
			return fmt.Errorf("kernel: inventory: %w", err)
		}
		metrics.CatalogProducts.WithLabelValues("in_stock").Set(float64(inv.InStock))
		metrics.CatalogProducts.WithLabelValues("out_of_stock").Set(float64(inv.OutOfStock))
		if inv.OutOfStock > 0 {
			logger.WithCtx(ctx).Warn("products out of stock", "count", inv.OutOfStock, "total", inv.Total)
		}
		return nil
	}).WithoutOverlapping()
	return s
}

// Shutdown releases connections in reverse order of acquisition.
func (k *Kernel) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(k.closers) - 1; i >= 0; i-- {
		if err := k.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	k.closers = nil
	return errors.Join(errs...)
}
