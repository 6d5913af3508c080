package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"gorm.io/gorm"
)

// GormStore is the relational Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Products() ProductRepository { return &gormProducts{db: s.db} }
func (s *GormStore) Orders() OrderRepository     { return &gormOrders{db: s.db} }
func (s *GormStore) Users() UserRepository       { return &gormUsers{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx})
	})
}

// AutoMigrate creates or updates the shop tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// likePattern escapes LIKE wildcards so the search term matches literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
