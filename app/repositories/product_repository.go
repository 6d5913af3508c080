package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"gorm.io/gorm"
)

type gormProducts struct {
	db *gorm.DB
}

var gormProductSorts = map[string]string{
	SortNewest:    "created_at DESC",
	SortPriceAsc:  "price ASC",
	SortPriceDesc: "price DESC",
	SortNameAsc:   "name ASC",
	SortNameDesc:  "name DESC",
}

func (f ProductFilter) gormScope(db *gorm.DB) *gorm.DB {
	if c := f.category(); c != "" {
		db = db.Where("category = ?", c)
	}
	if f.MinPrice != nil {
		db = db.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("price <= ?", *f.MaxPrice)
	}
	if f.Search != "" {
		db = db.Where(`LOWER(name) LIKE ? ESCAPE '!'`, likePattern(f.Search))
	}
	if f.InStock {
		db = db.Where("in_stock = ?", true)
	}
	if f.Featured {
		db = db.Where("featured = ?", true)
	}
	return db
}

func (r *gormProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Product{}).Scopes(f.gormScope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("repositories: count products: %w", err)
	}

	order, ok := gormProductSorts[f.Sort]
	if !ok {
		order = gormProductSorts[SortNewest]
	}
	page := f.Page
	if page.Limit == 0 {
		page = orm.NewPagination(page.Page, page.Limit, 0)
	}

	var out []models.Product
	err := db.Scopes(f.gormScope, orm.Paginate(page)).Order(order).Order("id").Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("repositories: list products: %w", err)
	}
	return out, total, nil
}

func (r *gormProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *gormProducts) Create(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: create product: %w", err)
	}
	return nil
}

func (r *gormProducts) Update(ctx context.Context, p *models.Product) error {
	res := r.db.WithContext(ctx).Model(p).Select("*").Omit("created_at").Updates(p)
	if res.Error != nil {
		return fmt.Errorf("repositories: update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormProducts) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("repositories: delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormProducts) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

// Reserve runs the conditional decrements inside one transaction (a
// savepoint when already inside one) so a failing line rolls back the rest.
func (r *gormProducts) Reserve(ctx context.Context, lines []StockLine) error {
	lines = mergeLines(lines)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", l.ProductID, l.Quantity).
				UpdateColumns(map[string]any{
					"stock":      gorm.Expr("stock - ?", l.Quantity),
					"in_stock":   gorm.Expr("CASE WHEN stock - ? > 0 THEN ? ELSE ? END", l.Quantity, true, false),
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("repositories: reserve %s: %w", l.ProductID, res.Error)
			}
			if res.RowsAffected == 1 {
				continue
			}

			var p models.Product
			if err := tx.Select("id", "name", "stock").First(&p, "id = ?", l.ProductID).Error; err != nil {
				if notFound(err) == ErrNotFound {
					return &MissingProductError{ProductID: l.ProductID}
				}
				return fmt.Errorf("repositories: reserve %s: %w", l.ProductID, err)
			}
			return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: l.Quantity}
		}
		return nil
	})
}

func (r *gormProducts) Release(ctx context.Context, lines []StockLine) error {
	lines = mergeLines(lines)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			err := tx.Model(&models.Product{}).
				Where("id = ?", l.ProductID).
				UpdateColumns(map[string]any{
					"stock":      gorm.Expr("stock + ?", l.Quantity),
					"in_stock":   true,
					"updated_at": time.Now().UTC(),
				}).Error
			if err != nil {
				return fmt.Errorf("repositories: release %s: %w", l.ProductID, err)
			}
		}
		return nil
	})
}
