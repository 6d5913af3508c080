package repositories

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"gorm.io/gorm"
)

type gormUsers struct {
	db *gorm.DB
}

// FindByEmail looks up a user by their email address, case-insensitively.
func (r *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", normaliseEmail(email)).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *gormUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *gormUsers) Create(ctx context.Context, u *models.User) error {
	u.Email = normaliseEmail(u.Email)
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: create user: %w", err)
	}
	return nil
}

func (r *gormUsers) Update(ctx context.Context, u *models.User) error {
	u.Email = normaliseEmail(u.Email)
	res := r.db.WithContext(ctx).Model(u).Select("*").Omit("created_at").Updates(u)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormUsers) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("repositories: delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormUsers) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	var out []models.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("repositories: list users: %w", err)
	}
	return out, nil
}

func (r *gormUsers) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}
