package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/gateways/razorpay"
	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/shashiranjanraj/kisanmart/pkg/database"
	"github.com/shashiranjanraj/kisanmart/pkg/storage"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "test_key_secret"

var (
	customer = auth.Identity{UserID: models.NewID(), Role: models.RoleUser}
	stranger = auth.Identity{UserID: models.NewID(), Role: models.RoleUser}
	admin    = auth.Identity{UserID: models.NewID(), Role: models.RoleAdmin}
)

type fixture struct {
	store    *repositories.GormStore
	reg      *Registry
	notifier *recordingNotifier
	gateway  *razorpay.Client
	orders   *gatewayOrders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, repositories.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	store := repositories.NewGormStore(db)
	orders := &gatewayOrders{amounts: map[string]int64{}}
	srv := httptest.NewServer(orders)
	t.Cleanup(srv.Close)
	gw := &razorpay.Client{
		KeyID:     "rzp_test_key",
		KeySecret: testKeySecret,
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
		Attempts:  1,
	}
	notifier := &recordingNotifier{}
	reg := NewRegistry(Deps{
		Store:        store,
		Gateway:      gw,
		GatewayKeyID: gw.KeyID,
		Disk:         storage.NewLocalDisk(t.TempDir(), "http://localhost/storage"),
		Notifier:     notifier,
		Pricing:      defaultPricing(),
	})
	return &fixture{store: store, reg: reg, notifier: notifier, gateway: gw, orders: orders}
}

func defaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimalOr("0.18", "0.18"),
		FreeShippingThreshold: decimalOr("1000", "1000"),
		ShippingFee:           decimalOr("50", "50"),
		Tolerance:             decimalOr("0.01", "0.01"),
	}
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int, mutate ...func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:              name,
		Description:       name + " description",
		Price:             price,
		Category:          models.CategoryInsecticides,
		Stock:             stock,
		Images:            []models.Image{{URL: "http://img/" + name + ".jpg", Alt: name}},
		SafetyWarnings:    "Keep away from children",
		UsageInstructions: "Dilute before use",
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func address() models.ShippingAddress {
	return models.ShippingAddress{
		FullName: "Ramesh Patil",
		Phone:    "9876543210",
		Street:   "12 Market Road",
		City:     "Nashik",
		State:    "Maharashtra",
		ZipCode:  "422001",
	}
}

func codOrder(items ...models.OrderItem) CreateOrderInput {
	return CreateOrderInput{
		OrderItems:      items,
		ShippingAddress: address(),
		PaymentMethod:   models.MethodCOD,
	}
}

func item(p *models.Product, qty int) models.OrderItem {
	return models.OrderItem{Product: p.ID, Name: p.Name, Price: p.Price, Quantity: qty}
}

// gatewayOrders answers GET /orders/{id} for orders opened with open.
type gatewayOrders struct {
	mu      sync.Mutex
	amounts map[string]int64
}

// open records a gateway order charging rupees.
func (g *gatewayOrders) open(id string, rupees float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.amounts[id] = razorpay.ToPaise(rupees)
}

func (g *gatewayOrders) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/orders/")
	g.mu.Lock()
	amount, ok := g.amounts[id]
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet || !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(razorpay.Order{ID: id, Amount: amount, AmountPaid: amount, Currency: "INR", Status: "paid"})
}

type recordingNotifier struct {
	mu      sync.Mutex
	placed  []string
	changes []string
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o.ID)
	return nil
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, o *models.Order, from string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, from+"->"+o.OrderStatus)
	return nil
}

func (n *recordingNotifier) placedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.placed)
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
	if msg != "" {
		var e *Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, msg, e.Message)
	}
}
