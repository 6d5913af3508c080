package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/gateways/razorpay"
	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"github.com/shashiranjanraj/kisanmart/pkg/validate"
)

const defaultCountry = "India"

// PaymentProof is what the checkout page receives from the gateway widget.
type PaymentProof struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// CreateOrderInput is a checkout request. Prices and names in OrderItems
// are informational; the catalogue values are stored.
type CreateOrderInput struct {
	OrderItems      []models.OrderItem     `json:"orderItems"      validate:"dive"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress" validate:"required,dive"`
	PaymentMethod   string                 `json:"paymentMethod"   validate:"required,in=Cash on Delivery|Credit Card|Debit Card|UPI|Razorpay"`
	ItemsPrice      float64                `json:"itemsPrice"`
	TaxPrice        float64                `json:"taxPrice"`
	ShippingPrice   float64                `json:"shippingPrice"`
	TotalPrice      float64                `json:"totalPrice"`
	OrderNotes      string                 `json:"orderNotes"      validate:"nullable,max=500"`
	PaymentResult   *PaymentProof          `json:"paymentResult"`
}

func (in CreateOrderInput) breakdown() Breakdown {
	return Breakdown{
		ItemsPrice:    in.ItemsPrice,
		TaxPrice:      in.TaxPrice,
		ShippingPrice: in.ShippingPrice,
		TotalPrice:    in.TotalPrice,
	}
}

// StatusUpdate is an order status change. An empty OrderStatus only
// updates the notes.
type StatusUpdate struct {
	OrderStatus string `json:"orderStatus" validate:"nullable,in=Pending|Processing|Shipped|Delivered|Cancelled"`
	OrderNotes  string `json:"orderNotes"  validate:"nullable,max=500"`
}

// PaymentVerifier authenticates a gateway payment and reports what the
// gateway order charged.
type PaymentVerifier interface {
	VerifySignature(orderID, paymentID, signature string) bool
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
}

// gatewayPayment is a verified payment and the amount its gateway order
// charged, in paise.
type gatewayPayment struct {
	PaymentProof
	Amount   int64
	Currency string
}

type OrderService struct {
	store    repositories.Store
	catalog  *CatalogService
	stock    *StockService
	pricing  Pricing
	verifier PaymentVerifier
	notifier Notifier
}

func NewOrderService(store repositories.Store, catalog *CatalogService, stock *StockService, pricing Pricing, verifier PaymentVerifier, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderService{
		store:    store,
		catalog:  catalog,
		stock:    stock,
		pricing:  pricing,
		verifier: verifier,
		notifier: notifier,
	}
}

// Create places an order for actor. Razorpay orders must carry a verified
// payment and are idempotent on the gateway payment id: the bool result is
// false when an existing order was returned.
func (s *OrderService) Create(ctx context.Context, actor auth.Identity, in CreateOrderInput) (*models.Order, bool, error) {
	if in.PaymentMethod == "" && in.PaymentResult != nil {
		in.PaymentMethod = models.MethodRazorpay
	}
	if len(in.OrderItems) == 0 {
		return nil, false, Invalid("No order items")
	}
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, false, InvalidFields(errs)
	}
	if in.ShippingAddress.Country == "" {
		in.ShippingAddress.Country = defaultCountry
	}

	if in.PaymentMethod == models.MethodRazorpay {
		return s.createPaid(ctx, actor, in)
	}
	order, err := s.place(ctx, actor.UserID, in, nil)
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

func (s *OrderService) createPaid(ctx context.Context, actor auth.Identity, in CreateOrderInput) (*models.Order, bool, error) {
	proof := in.PaymentResult
	if proof == nil || proof.RazorpayOrderID == "" || proof.RazorpayPaymentID == "" ||
		s.verifier == nil || !s.verifier.VerifySignature(proof.RazorpayOrderID, proof.RazorpayPaymentID, proof.RazorpaySignature) {
		metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
		return nil, false, Invalid("Payment verification failed")
	}
	metrics.PaymentVerifications.WithLabelValues("authentic").Inc()

	if existing, err := s.paidOrder(ctx, actor, proof.RazorpayPaymentID); existing != nil || err != nil {
		return existing, false, err
	}

	paid, err := s.gatewayPayment(ctx, proof)
	if err != nil {
		return nil, false, err
	}

	order, err := s.place(ctx, actor.UserID, in, paid)
	if errors.Is(err, repositories.ErrDuplicate) {
		// Lost a race with a concurrent submit of the same payment.
		existing, ferr := s.paidOrder(ctx, actor, proof.RazorpayPaymentID)
		if existing != nil || ferr != nil {
			return existing, false, ferr
		}
	}
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// gatewayPayment loads the gateway order the payment was made against.
func (s *OrderService) gatewayPayment(ctx context.Context, proof *PaymentProof) (*gatewayPayment, error) {
	o, err := s.verifier.FetchOrder(ctx, proof.RazorpayOrderID)
	if err != nil {
		var apiErr *razorpay.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return nil, Invalid("Payment verification failed")
		}
		logger.WithCtx(ctx).Error("fetch gateway order", "razorpay_order_id", proof.RazorpayOrderID, "error", err)
		return nil, Gateway("Failed to confirm payment", err)
	}
	return &gatewayPayment{PaymentProof: *proof, Amount: o.Amount, Currency: o.Currency}, nil
}

func (s *OrderService) paidOrder(ctx context.Context, actor auth.Identity, paymentID string) (*models.Order, error) {
	o, err := s.store.Orders().FindByGatewayPaymentID(ctx, paymentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.User != actor.UserID && !actor.IsAdmin() {
		return nil, Conflict("Payment already used for another order")
	}
	return o, nil
}

func (s *OrderService) place(ctx context.Context, userID string, in CreateOrderInput, paid *gatewayPayment) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		items, err := snapshot(ctx, tx.Products(), in.OrderItems)
		if err != nil {
			return err
		}
		quote := s.pricing.Quote(pricedLines(items))
		if err := s.pricing.Check(in.breakdown(), quote); err != nil {
			return err
		}
		if paid != nil && !paid.covers(quote.TotalPrice) {
			metrics.PaymentVerifications.WithLabelValues("amount_mismatch").Inc()
			logger.WithCtx(ctx).Warn("payment amount mismatch",
				"razorpay_order_id", paid.RazorpayOrderID, "paid", paid.Amount, "total", quote.TotalPrice)
			return Invalid("Payment amount does not match order total")
		}
		if err := s.stock.reserve(ctx, tx.Products(), items); err != nil {
			return err
		}

		order = &models.Order{
			User:            userID,
			OrderItems:      items,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			ItemsPrice:      quote.ItemsPrice,
			TaxPrice:        quote.TaxPrice,
			ShippingPrice:   quote.ShippingPrice,
			TotalPrice:      quote.TotalPrice,
			OrderStatus:     models.StatusPending,
			PaymentStatus:   models.PaymentPending,
			OrderNotes:      in.OrderNotes,
		}
		if paid != nil {
			paymentID := paid.RazorpayPaymentID
			order.PaymentStatus = models.PaymentPaid
			order.GatewayPaymentID = &paymentID
			order.PaymentResult = &models.PaymentResult{
				RazorpayOrderID:   paid.RazorpayOrderID,
				RazorpayPaymentID: paid.RazorpayPaymentID,
			}
		}
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.catalog.Forget(ctx, productIDs(order.OrderItems)...)
	metrics.OrdersCreated.WithLabelValues(order.PaymentMethod).Inc()

	log := logger.WithCtx(ctx)
	log.Info("order placed", "order_id", order.ID, "user_id", userID, "total", order.TotalPrice, "payment_method", order.PaymentMethod)
	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		log.Warn("order placed notification failed", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// covers reports whether the gateway order charged exactly total rupees.
func (p *gatewayPayment) covers(total float64) bool {
	if p.Currency != "" && p.Currency != razorpay.DefaultCurrency {
		return false
	}
	return p.Amount == razorpay.ToPaise(total)
}

// snapshot replaces client-supplied names, prices and images with the
// catalogue values.
func snapshot(ctx context.Context, products repositories.ProductRepository, items []models.OrderItem) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		if !models.ValidID(it.Product) {
			return nil, NotFound("Product not found: " + itemLabel(it))
		}
		p, err := products.FindByID(ctx, it.Product)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFound("Product not found: " + itemLabel(it))
		}
		if err != nil {
			return nil, err
		}
		image := p.PrimaryImage()
		if image == "" {
			image = it.Image
		}
		out = append(out, models.OrderItem{
			Product:  p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: it.Quantity,
			Image:    image,
		})
	}
	return out, nil
}

func pricedLines(items []models.OrderItem) []PricedLine {
	lines := make([]PricedLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, PricedLine{Price: it.Price, Quantity: it.Quantity})
	}
	return lines
}

// Get returns the order when actor owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, actor auth.Identity, id string) (*models.Order, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.User != actor.UserID && !actor.IsAdmin() {
		return nil, Forbidden("Not authorized to view this order")
	}
	return o, nil
}

// Mine lists actor's orders, newest first.
func (s *OrderService) Mine(ctx context.Context, actor auth.Identity) ([]models.Order, error) {
	orders, err := s.store.Orders().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// All lists every order, newest first.
func (s *OrderService) All(ctx context.Context, page, limit int) ([]models.Order, orm.Pagination, error) {
	p := orm.NewPagination(page, limit, config.MaxPageSize())
	orders, total, err := s.store.Orders().List(ctx, p)
	if err != nil {
		return nil, p, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, p.WithTotal(total), nil
}

// Cancel moves the order to Cancelled and returns its stock.
func (s *OrderService) Cancel(ctx context.Context, actor auth.Identity, id string) (*models.Order, error) {
	return s.SetStatus(ctx, actor, id, StatusUpdate{OrderStatus: models.StatusCancelled})
}

// SetStatus is the only way an order's status changes. Owners may cancel
// their own orders; every other change needs an admin. The write is
// conditional on the status read here, and a cancellation releases stock
// in the same unit of work.
func (s *OrderService) SetStatus(ctx context.Context, actor auth.Identity, id string, upd StatusUpdate) (*models.Order, error) {
	if errs := validate.Struct(upd); validate.HasErrors(errs) {
		return nil, InvalidFields(errs)
	}
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	to, from := upd.OrderStatus, order.OrderStatus
	if to == models.StatusCancelled {
		if order.User != actor.UserID && !actor.IsAdmin() {
			return nil, Forbidden("Not authorized to cancel this order")
		}
	} else if !actor.IsAdmin() {
		return nil, Forbidden("Not authorized as admin")
	}

	switch {
	case to == models.StatusCancelled && from == models.StatusDelivered:
		return nil, Invalid("Cannot cancel delivered order")
	case to == models.StatusCancelled && from == models.StatusCancelled:
		return nil, Invalid("Order is already cancelled")
	case to == "" || to == from:
		return s.updateNotes(ctx, order, upd.OrderNotes)
	case !models.CanTransition(from, to):
		return nil, Invalid(fmt.Sprintf("Cannot change order status from %s to %s", from, to))
	}

	next := *order
	next.OrderStatus = to
	if upd.OrderNotes != "" {
		next.OrderNotes = upd.OrderNotes
	}
	if to == models.StatusDelivered {
		now := time.Now().UTC()
		next.DeliveredAt = &now
		next.PaymentStatus = models.PaymentPaid
	}

	err = s.store.Transaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Orders().UpdateStatus(ctx, &next, from); err != nil {
			return err
		}
		if to == models.StatusCancelled {
			return s.stock.release(ctx, tx.Products(), next.OrderItems)
		}
		return nil
	})
	if errors.Is(err, repositories.ErrConflict) {
		return nil, Conflict("Order was modified by another request, please retry")
	}
	if err != nil {
		return nil, err
	}

	if to == models.StatusCancelled {
		s.catalog.Forget(ctx, productIDs(next.OrderItems)...)
	}
	metrics.OrderTransitions.WithLabelValues(to).Inc()

	log := logger.WithCtx(ctx)
	log.Info("order status changed", "order_id", next.ID, "from", from, "to", to, "actor", actor.UserID)
	if err := s.notifier.OrderStatusChanged(ctx, &next, from); err != nil {
		log.Warn("order status notification failed", "order_id", next.ID, "error", err)
	}
	return &next, nil
}

func (s *OrderService) updateNotes(ctx context.Context, order *models.Order, notes string) (*models.Order, error) {
	if notes == "" || notes == order.OrderNotes {
		return order, nil
	}
	next := *order
	next.OrderNotes = notes
	if err := s.store.Orders().UpdateStatus(ctx, &next, order.OrderStatus); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, Conflict("Order was modified by another request, please retry")
		}
		return nil, err
	}
	return &next, nil
}

func (s *OrderService) find(ctx context.Context, id string) (*models.Order, error) {
	if !models.ValidID(id) {
		return nil, NotFound("Order not found")
	}
	o, err := s.store.Orders().FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Order not found")
	}
	return o, err
}
