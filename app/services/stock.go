package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
)

// StockService reserves and releases product stock for order lines.
type StockService struct {
	store   repositories.Store
	catalog *CatalogService
}

func NewStockService(store repositories.Store, catalog *CatalogService) *StockService {
	return &StockService{store: store, catalog: catalog}
}

// Reserve takes stock for every item or for none.
func (s *StockService) Reserve(ctx context.Context, items []models.OrderItem) error {
	if err := s.reserve(ctx, s.store.Products(), items); err != nil {
		return err
	}
	s.catalog.Forget(ctx, productIDs(items)...)
	return nil
}

// Release returns stock for every item; unknown products are skipped.
func (s *StockService) Release(ctx context.Context, items []models.OrderItem) error {
	if err := s.release(ctx, s.store.Products(), items); err != nil {
		return err
	}
	s.catalog.Forget(ctx, productIDs(items)...)
	return nil
}

func (s *StockService) reserve(ctx context.Context, products repositories.ProductRepository, items []models.OrderItem) error {
	lines := make([]repositories.StockLine, 0, len(items))
	names := make(map[string]string, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return Invalid(fmt.Sprintf("Quantity must be at least 1 for %s", itemLabel(it)))
		}
		lines = append(lines, repositories.StockLine{ProductID: it.Product, Quantity: it.Quantity})
		names[it.Product] = itemLabel(it)
	}

	err := products.Reserve(ctx, lines)

	var short *repositories.InsufficientStockError
	var missing *repositories.MissingProductError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &short):
		metrics.StockReservationFailures.WithLabelValues("insufficient").Inc()
		return Invalid("Insufficient stock for " + short.Name)
	case errors.As(err, &missing):
		metrics.StockReservationFailures.WithLabelValues("not_found").Inc()
		return NotFound("Product not found: " + names[missing.ProductID])
	default:
		return fmt.Errorf("services: reserve stock: %w", err)
	}
}

func (s *StockService) release(ctx context.Context, products repositories.ProductRepository, items []models.OrderItem) error {
	lines := make([]repositories.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, repositories.StockLine{ProductID: it.Product, Quantity: it.Quantity})
	}
	if err := products.Release(ctx, lines); err != nil {
		return fmt.Errorf("services: release stock: %w", err)
	}
	return nil
}

func itemLabel(it models.OrderItem) string {
	if it.Name != "" {
		return it.Name
	}
	return it.Product
}

func productIDs(items []models.OrderItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it.Product] {
			seen[it.Product] = true
			ids = append(ids, it.Product)
		}
	}
	return ids
}
