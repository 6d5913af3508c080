// Package repositories persists products, orders and users. Two backends
// implement the same Store: GORM (sqlite, postgres, mysql, sqlserver) and
// MongoDB.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
)

var (
	ErrNotFound  = errors.New("repositories: not found")
	ErrDuplicate = errors.New("repositories: duplicate")
	ErrConflict  = errors.New("repositories: concurrent modification")
)

// MissingProductError names a product that a stock operation could not find.
type MissingProductError struct {
	ProductID string
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("repositories: product %s not found", e.ProductID)
}

func (e *MissingProductError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError is returned when a reservation asks for more units
// than a product holds.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("repositories: insufficient stock for %s (have %d, want %d)", e.Name, e.Available, e.Requested)
}

// StockLine is one product quantity to reserve or release.
type StockLine struct {
	ProductID string
	Quantity  int
}

// Catalogue sort orders.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

// ProductFilter narrows a catalogue listing. Zero values disable a filter.
type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	InStock  bool
	Featured bool
	Sort     string
	Page     orm.Pagination
}

func (f ProductFilter) category() string {
	if f.Category == "all" {
		return ""
	}
	return f.Category
}

type ProductRepository interface {
	List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)

	// Reserve decrements stock for every line or for none. Each decrement
	// only applies while stock >= quantity.
	Reserve(ctx context.Context, lines []StockLine) error
	// Release returns stock; unknown products are skipped.
	Release(ctx context.Context, lines []StockLine) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, page orm.Pagination) ([]models.Order, int64, error)
	Recent(ctx context.Context, n int) ([]models.Order, error)

	// UpdateStatus writes status, payment status, delivery time and notes
	// only while the stored status still equals from. Otherwise ErrConflict.
	UpdateStatus(ctx context.Context, o *models.Order, from string) error

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// Revenue sums totalPrice over orders that are not cancelled.
	Revenue(ctx context.Context) (float64, error)
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

// Store groups the repositories of one backend.
type Store interface {
	Products() ProductRepository
	Orders() OrderRepository
	Users() UserRepository

	// Transaction runs fn as one unit of work. fn must use tx and ctx, not
	// the outer store.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// mergeLines folds duplicate product ids together and drops non-positive
// quantities.
func mergeLines(lines []StockLine) []StockLine {
	idx := make(map[string]int, len(lines))
	out := make([]StockLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
