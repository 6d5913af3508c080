package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"golang.org/x/sync/errgroup"
)

const recentOrdersLimit = 5

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers    int64            `json:"totalUsers"`
	TotalOrders   int64            `json:"totalOrders"`
	TotalProducts int64            `json:"totalProducts"`
	TotalRevenue  float64          `json:"totalRevenue"`
	RecentOrders  []models.Order   `json:"recentOrders"`
	OrderStats    map[string]int64 `json:"orderStats"`
}

type AdminService struct {
	store repositories.Store
}

func NewAdminService(store repositories.Store) *AdminService {
	return &AdminService{store: store}
}

// Users lists customer accounts; admins are excluded.
func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users().ListByRole(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *AdminService) User(ctx context.Context, id string) (*models.User, error) {
	if !models.ValidID(id) {
		return nil, NotFound("User not found")
	}
	u, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("User not found")
	}
	return u, err
}

// DeleteUser removes a customer account. Admin accounts cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	u, err := s.User(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return Invalid("Cannot delete admin user")
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NotFound("User not found")
		}
		return err
	}
	logger.WithCtx(ctx).Info("user deleted", "user_id", id)
	return nil
}

// Stats gathers the dashboard figures concurrently.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	var byStatus map[string]int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalUsers, err = s.store.Users().CountByRole(gctx, models.RoleUser)
		return err
	})
	g.Go(func() (err error) {
		out.TotalOrders, err = s.store.Orders().Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalProducts, err = s.store.Products().Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalRevenue, err = s.store.Orders().Revenue(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentOrders, err = s.store.Orders().Recent(gctx, recentOrdersLimit)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.store.Orders().CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.RecentOrders == nil {
		out.RecentOrders = []models.Order{}
	}
	out.OrderStats = make(map[string]int64, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		out.OrderStats[strings.ToLower(st)] = byStatus[st]
	}
	return &out, nil
}

// Inventory counts catalogue products by availability.
type Inventory struct {
	Total      int64 `json:"total"`
	InStock    int64 `json:"inStock"`
	OutOfStock int64 `json:"outOfStock"`
}

func (s *AdminService) Inventory(ctx context.Context) (*Inventory, error) {
	total, err := s.store.Products().Count(ctx)
	if err != nil {
		return nil, err
	}
	_, inStock, err := s.store.Products().List(ctx, repositories.ProductFilter{
		InStock: true,
		Page:    orm.NewPagination(1, 1, 0),
	})
	if err != nil {
		return nil, err
	}
	return &Inventory{Total: total, InStock: inStock, OutOfStock: total - inStock}, nil
}
