package services

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/session"
)

const cartKey = "cart"

// CartLine is one product in the session cart.
type CartLine struct {
	Product  string  `json:"product"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
	Stock    int     `json:"stock"`
}

// Cart is the session cart priced against the current catalogue.
type Cart struct {
	Items []CartLine `json:"items"`
	Breakdown
}

type CartItemInput struct {
	ProductID string `json:"productId" validate:"required,objectid"`
	Quantity  int    `json:"quantity"  validate:"required,min=1"`
}

type CartQuantityInput struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// CartService keeps the shopping cart in the caller's session. Callers
// must Save the session after a mutating call.
type CartService struct {
	catalog *CatalogService
	pricing Pricing
}

func NewCartService(catalog *CatalogService, pricing Pricing) *CartService {
	return &CartService{catalog: catalog, pricing: pricing}
}

// Get returns the cart with current prices. Lines whose product is gone
// are dropped and quantities are clamped to the available stock.
func (s *CartService) Get(ctx context.Context, sess *session.Session) (*Cart, error) {
	lines, err := s.load(sess)
	if err != nil {
		return nil, err
	}

	changed := false
	fresh := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		p, err := s.catalog.Get(ctx, l.Product)
		if KindOf(err) == KindNotFound {
			changed = true
			continue
		}
		if err != nil {
			return nil, err
		}
		next := lineFor(p, min(l.Quantity, p.Stock))
		if next.Quantity != l.Quantity {
			changed = true
		}
		if next.Quantity > 0 {
			fresh = append(fresh, next)
		}
	}
	if changed {
		if err := sess.Set(cartKey, fresh); err != nil {
			return nil, err
		}
	}
	return s.priced(fresh), nil
}

// Add puts quantity more units of a product in the cart.
func (s *CartService) Add(ctx context.Context, sess *session.Session, in CartItemInput) (*Cart, error) {
	if in.Quantity < 1 {
		return nil, Invalid("Quantity must be at least 1")
	}
	p, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	lines, err := s.load(sess)
	if err != nil {
		return nil, err
	}

	want := in.Quantity
	idx := indexOf(lines, p.ID)
	if idx >= 0 {
		want += lines[idx].Quantity
	}
	if want > p.Stock {
		return nil, Invalid(fmt.Sprintf("Only %d units of %s in stock", p.Stock, p.Name))
	}

	if idx >= 0 {
		lines[idx] = lineFor(p, want)
	} else {
		lines = append(lines, lineFor(p, want))
	}
	return s.save(sess, lines)
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, sess *session.Session, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, Invalid("Quantity cannot be negative")
	}
	lines, err := s.load(sess)
	if err != nil {
		return nil, err
	}
	idx := indexOf(lines, productID)
	if idx < 0 {
		return nil, NotFound("Item not in cart")
	}
	if quantity == 0 {
		return s.save(sess, append(lines[:idx], lines[idx+1:]...))
	}

	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, Invalid(fmt.Sprintf("Only %d units of %s in stock", p.Stock, p.Name))
	}
	lines[idx] = lineFor(p, quantity)
	return s.save(sess, lines)
}

func (s *CartService) Remove(_ context.Context, sess *session.Session, productID string) (*Cart, error) {
	lines, err := s.load(sess)
	if err != nil {
		return nil, err
	}
	idx := indexOf(lines, productID)
	if idx < 0 {
		return nil, NotFound("Item not in cart")
	}
	return s.save(sess, append(lines[:idx], lines[idx+1:]...))
}

func (s *CartService) Clear(sess *session.Session) {
	sess.Delete(cartKey)
}

func (s *CartService) load(sess *session.Session) ([]CartLine, error) {
	var lines []CartLine
	if _, err := sess.Get(cartKey, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *CartService) save(sess *session.Session, lines []CartLine) (*Cart, error) {
	if lines == nil {
		lines = []CartLine{}
	}
	if err := sess.Set(cartKey, lines); err != nil {
		return nil, err
	}
	return s.priced(lines), nil
}

func (s *CartService) priced(lines []CartLine) *Cart {
	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		priced = append(priced, PricedLine{Price: l.Price, Quantity: l.Quantity})
	}
	if lines == nil {
		lines = []CartLine{}
	}
	return &Cart{Items: lines, Breakdown: s.pricing.Quote(priced)}
}

func lineFor(p *models.Product, quantity int) CartLine {
	return CartLine{
		Product:  p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: quantity,
		Image:    p.PrimaryImage(),
		Stock:    p.Stock,
	}
}

func indexOf(lines []CartLine, productID string) int {
	for i, l := range lines {
		if l.Product == productID {
			return i
		}
	}
	return -1
}
