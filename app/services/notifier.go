package services

import (
	"context"

	"github.com/shashiranjanraj/kisanmart/app/models"
)

// Notifier announces order events to the customer. Implementations should
// hand off quickly; failures are logged, never returned to the caller of
// the order operation.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *models.Order) error
	OrderStatusChanged(ctx context.Context, o *models.Order, from string) error
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, *models.Order) error                { return nil }
func (nopNotifier) OrderStatusChanged(context.Context, *models.Order, string) error { return nil }
