package jobs

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/pkg/queue"
)

// Dispatcher pushes a job onto a queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// MailNotifier turns order events into mail jobs for the order's owner.
type MailNotifier struct {
	users repositories.UserRepository
	queue Dispatcher
}

func NewMailNotifier(users repositories.UserRepository, q Dispatcher) *MailNotifier {
	return &MailNotifier{users: users, queue: q}
}

func (n *MailNotifier) OrderPlaced(ctx context.Context, o *models.Order) error {
	u, err := n.users.FindByID(ctx, o.User)
	if err != nil {
		return fmt.Errorf("jobs: order owner %s: %w", o.User, err)
	}
	return n.queue.Dispatch(ctx, &OrderPlacedMail{
		Email:         u.Email,
		Name:          u.Name,
		OrderID:       o.ID,
		Items:         o.OrderItems,
		ItemsPrice:    o.ItemsPrice,
		TaxPrice:      o.TaxPrice,
		ShippingPrice: o.ShippingPrice,
		TotalPrice:    o.TotalPrice,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
	})
}

func (n *MailNotifier) OrderStatusChanged(ctx context.Context, o *models.Order, from string) error {
	u, err := n.users.FindByID(ctx, o.User)
	if err != nil {
		return fmt.Errorf("jobs: order owner %s: %w", o.User, err)
	}
	return n.queue.Dispatch(ctx, &OrderStatusMail{
		Email:   u.Email,
		Name:    u.Name,
		OrderID: o.ID,
		From:    from,
		Status:  o.OrderStatus,
		Notes:   o.OrderNotes,
	})
}
