package services

import (
	"context"
	"errors"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/cache"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"github.com/shashiranjanraj/kisanmart/pkg/validate"
)

const (
	featuredLimit   = 8
	featuredKey     = "products:featured"
	productCacheTTL = 10 * time.Minute
)

func productKey(id string) string { return "product:" + id }

// ProductQuery is a catalogue listing request. Page and Limit are
// normalised, so zero values are fine.
type ProductQuery struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	InStock  bool
	Sort     string
	Page     int
	Limit    int
}

// ProductInput is the full product payload accepted on create.
type ProductInput struct {
	Name              string          `json:"name"              validate:"required,max=200"`
	Description       string          `json:"description"       validate:"required,max=2000"`
	Price             float64         `json:"price"             validate:"gte=0"`
	Category          string          `json:"category"          validate:"required,in=Insecticides|Herbicides|Fungicides|Rodenticides|Plant Growth Regulators|Bio-Pesticides|Other"`
	Stock             int             `json:"stock"             validate:"gte=0"`
	Images            []models.Image  `json:"images"`
	SafetyWarnings    string          `json:"safetyWarnings"    validate:"required"`
	UsageInstructions string          `json:"usageInstructions" validate:"required"`
	ActiveIngredient  string          `json:"activeIngredient"  validate:"nullable,max=200"`
	PackSize          string          `json:"packSize"          validate:"nullable,max=100"`
	Manufacturer      string          `json:"manufacturer"      validate:"nullable,max=200"`
	Ratings           *models.Ratings `json:"ratings"           validate:"dive"`
	Featured          bool            `json:"featured"`
}

// ProductPatch carries a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Name              *string         `json:"name"`
	Description       *string         `json:"description"`
	Price             *float64        `json:"price"`
	Category          *string         `json:"category"`
	Stock             *int            `json:"stock"`
	Images            *[]models.Image `json:"images"`
	SafetyWarnings    *string         `json:"safetyWarnings"`
	UsageInstructions *string         `json:"usageInstructions"`
	ActiveIngredient  *string         `json:"activeIngredient"`
	PackSize          *string         `json:"packSize"`
	Manufacturer      *string         `json:"manufacturer"`
	Ratings           *models.Ratings `json:"ratings"`
	Featured          *bool           `json:"featured"`
}

// CatalogService reads and maintains the product catalogue. Single products
// and the featured list are cached; writes and stock changes evict them.
type CatalogService struct {
	store repositories.Store
	ttl   time.Duration
}

func NewCatalogService(store repositories.Store) *CatalogService {
	return &CatalogService{store: store, ttl: productCacheTTL}
}

func (s *CatalogService) List(ctx context.Context, q ProductQuery) ([]models.Product, orm.Pagination, error) {
	page := orm.NewPagination(q.Page, q.Limit, config.MaxPageSize())
	items, total, err := s.store.Products().List(ctx, repositories.ProductFilter{
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Search:   q.Search,
		InStock:  q.InStock,
		Sort:     q.Sort,
		Page:     page,
	})
	if err != nil {
		return nil, page, err
	}
	if items == nil {
		items = []models.Product{}
	}
	return items, page.WithTotal(total), nil
}

// Featured returns up to eight featured products, newest first.
func (s *CatalogService) Featured(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := s.remember(ctx, featuredKey, &out, func() error {
		items, _, err := s.store.Products().List(ctx, repositories.ProductFilter{
			Featured: true,
			Sort:     repositories.SortNewest,
			Page:     orm.NewPagination(1, featuredLimit, 0),
		})
		out = items
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Product{}
	}
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	if !models.ValidID(id) {
		return nil, NotFound("Product not found")
	}
	var p models.Product
	err := s.remember(ctx, productKey(id), &p, func() error {
		found, err := s.store.Products().FindByID(ctx, id)
		if err != nil {
			return err
		}
		p = *found
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, InvalidFields(errs)
	}
	p := &models.Product{}
	in.applyTo(p)
	p.SyncStock()
	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, err
	}
	s.Forget(ctx)
	logger.WithCtx(ctx).Info("product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// Update applies patch and validates the merged product before saving.
func (s *CatalogService) Update(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	if !models.ValidID(id) {
		return nil, NotFound("Product not found")
	}
	p, err := s.store.Products().FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}

	patch.applyTo(p)
	if errs := validate.Struct(inputOf(p)); validate.HasErrors(errs) {
		return nil, InvalidFields(errs)
	}
	p.SyncStock()
	if err := s.store.Products().Update(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFound("Product not found")
		}
		return nil, err
	}
	s.Forget(ctx, p.ID)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if !models.ValidID(id) {
		return NotFound("Product not found")
	}
	if err := s.store.Products().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NotFound("Product not found")
		}
		return err
	}
	s.Forget(ctx, id)
	logger.WithCtx(ctx).Info("product deleted", "product_id", id)
	return nil
}

// Forget evicts the given products and the featured list from the cache.
func (s *CatalogService) Forget(ctx context.Context, ids ...string) {
	keys := []string{featuredKey}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	if err := cache.Del(ctx, keys...); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache eviction failed", "keys", keys, "error", err)
	}
}

func (s *CatalogService) remember(ctx context.Context, key string, dest any, load func() error) error {
	loaded := false
	err := cache.Remember(ctx, key, s.ttl, dest, func() error {
		loaded = true
		return load()
	})
	if loaded {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	} else if err == nil {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	}
	return err
}

func (in ProductInput) applyTo(p *models.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Stock = in.Stock
	p.Images = in.Images
	p.SafetyWarnings = in.SafetyWarnings
	p.UsageInstructions = in.UsageInstructions
	p.ActiveIngredient = in.ActiveIngredient
	p.PackSize = in.PackSize
	p.Manufacturer = in.Manufacturer
	p.Featured = in.Featured
	if in.Ratings != nil {
		p.Ratings = *in.Ratings
	}
	if p.Images == nil {
		p.Images = []models.Image{}
	}
}

func inputOf(p *models.Product) ProductInput {
	r := p.Ratings
	return ProductInput{
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		Category:          p.Category,
		Stock:             p.Stock,
		Images:            p.Images,
		SafetyWarnings:    p.SafetyWarnings,
		UsageInstructions: p.UsageInstructions,
		ActiveIngredient:  p.ActiveIngredient,
		PackSize:          p.PackSize,
		Manufacturer:      p.Manufacturer,
		Ratings:           &r,
		Featured:          p.Featured,
	}
}

func (pp ProductPatch) applyTo(p *models.Product) {
	setIf(&p.Name, pp.Name)
	setIf(&p.Description, pp.Description)
	setIf(&p.Price, pp.Price)
	setIf(&p.Category, pp.Category)
	setIf(&p.Stock, pp.Stock)
	setIf(&p.Images, pp.Images)
	setIf(&p.SafetyWarnings, pp.SafetyWarnings)
	setIf(&p.UsageInstructions, pp.UsageInstructions)
	setIf(&p.ActiveIngredient, pp.ActiveIngredient)
	setIf(&p.PackSize, pp.PackSize)
	setIf(&p.Manufacturer, pp.Manufacturer)
	setIf(&p.Ratings, pp.Ratings)
	setIf(&p.Featured, pp.Featured)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
