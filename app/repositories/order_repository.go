package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"gorm.io/gorm"
)

type gormOrders struct {
	db *gorm.DB
}

func (r *gormOrders) Create(ctx context.Context, o *models.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: create order: %w", err)
	}
	return nil
}

func (r *gormOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *gormOrders) FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).First(&o, "gateway_payment_id = ?", paymentID).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *gormOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repositories: orders by user: %w", err)
	}
	return out, nil
}

func (r *gormOrders) List(ctx context.Context, page orm.Pagination) ([]models.Order, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Order{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("repositories: count orders: %w", err)
	}

	q := db.Order("created_at DESC").Order("id")
	if page.Limit > 0 {
		q = q.Scopes(orm.Paginate(page))
	}
	var out []models.Order
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("repositories: list orders: %w", err)
	}
	return out, total, nil
}

func (r *gormOrders) Recent(ctx context.Context, n int) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id").Limit(n).Find(&out).Error
	return out, err
}

func (r *gormOrders) UpdateStatus(ctx context.Context, o *models.Order, from string) error {
	o.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND order_status = ?", o.ID, from).
		UpdateColumns(map[string]any{
			"order_status":   o.OrderStatus,
			"payment_status": o.PaymentStatus,
			"delivered_at":   o.DeliveredAt,
			"order_notes":    o.OrderNotes,
			"updated_at":     o.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("repositories: update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *gormOrders) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}

func (r *gormOrders) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		OrderStatus string
		N           int64
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("order_status, COUNT(*) AS n").
		Group("order_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("repositories: count by status: %w", err)
	}

	out := make(map[string]int64, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.OrderStatus] = row.N
	}
	return out, nil
}

func (r *gormOrders) Revenue(ctx context.Context) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_status <> ?", models.StatusCancelled).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("repositories: revenue: %w", err)
	}
	return sum, nil
}
