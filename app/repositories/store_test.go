package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/database"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return NewGormStore(db)
}

func seedProduct(t *testing.T, s Store, name string, price float64, stock int, mutate ...func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:              name,
		Description:       name + " description",
		Price:             price,
		Category:          models.CategoryInsecticides,
		Stock:             stock,
		SafetyWarnings:    "Keep away from children",
		UsageInstructions: "Dilute before use",
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func TestReserveDecrementsAndRecomputesInStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Neem Oil", 250, 3)
	assert.True(t, p.InStock)

	require.NoError(t, s.Products().Reserve(ctx, []StockLine{{ProductID: p.ID, Quantity: 3}}))

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.False(t, got.InStock)
}

func TestReserveIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedProduct(t, s, "Glyphosate", 400, 5)
	b := seedProduct(t, s, "Mancozeb", 300, 1)

	err := s.Products().Reserve(ctx, []StockLine{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 2},
	})

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "Mancozeb", short.Name)
	assert.Equal(t, 1, short.Available)

	got, err := s.Products().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock, "earlier line must be rolled back")
}

func TestReserveMergesDuplicateLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Imidacloprid", 500, 4)

	err := s.Products().Reserve(ctx, []StockLine{
		{ProductID: p.ID, Quantity: 3},
		{ProductID: p.ID, Quantity: 2},
	})
	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 5, short.Requested)

	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 4, got.Stock)
}

func TestReserveUnknownProduct(t *testing.T) {
	s := newTestStore(t)
	missing := models.NewID()

	err := s.Products().Reserve(context.Background(), []StockLine{{ProductID: missing, Quantity: 1}})

	assert.ErrorIs(t, err, ErrNotFound)
	var mp *MissingProductError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, missing, mp.ProductID)
}

func TestReserveNeverOversellsUnderConcurrency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Chlorpyrifos", 199, 10)

	var wg sync.WaitGroup
	var ok, short int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Products().Reserve(ctx, []StockLine{{ProductID: p.ID, Quantity: 1}})
			var ise *InsufficientStockError
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.As(err, &ise):
				atomic.AddInt32(&short, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok)
	assert.EqualValues(t, 15, short)
	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)
	assert.False(t, got.InStock)
}

func TestReleaseRestoresStockAndSkipsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Copper Oxychloride", 350, 0)
	assert.False(t, p.InStock)

	err := s.Products().Release(ctx, []StockLine{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: models.NewID(), Quantity: 4},
	})
	require.NoError(t, err)

	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 2, got.Stock)
	assert.True(t, got.InStock)
}

func TestTransactionRollsBackReservation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Carbendazim", 120, 5)
	boom := errors.New("insert failed")

	err := s.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Products().Reserve(ctx, []StockLine{{ProductID: p.ID, Quantity: 4}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)
}

func TestListFiltersSortsAndPaginates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "Alpha 50% EC", 100, 1)
	seedProduct(t, s, "Beta Herb", 900, 0, func(p *models.Product) { p.Category = models.CategoryHerbicides })
	seedProduct(t, s, "Gamma Spray", 500, 8, func(p *models.Product) { p.Featured = true })
	seedProduct(t, s, "Delta Dust", 50, 2)

	list, total, err := s.Products().List(ctx, ProductFilter{Sort: SortPriceAsc, Page: orm.NewPagination(1, 2, 0)})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Delta Dust", list[0].Name)
	assert.Equal(t, "Alpha 50% EC", list[1].Name)

	min, max := 100.0, 500.0
	list, total, err = s.Products().List(ctx, ProductFilter{MinPrice: &min, MaxPrice: &max, Sort: SortNameDesc})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Gamma Spray", list[0].Name)

	list, _, err = s.Products().List(ctx, ProductFilter{Category: models.CategoryHerbicides})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Beta Herb", list[0].Name)

	list, _, err = s.Products().List(ctx, ProductFilter{Category: "all", InStock: true})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, _, err = s.Products().List(ctx, ProductFilter{Search: "50%"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha 50% EC", list[0].Name)

	list, _, err = s.Products().List(ctx, ProductFilter{Search: "SPRAY"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, _, err = s.Products().List(ctx, ProductFilter{Featured: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Gamma Spray", list[0].Name)
}

func TestOrderStatusCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := &models.Order{
		User:          models.NewID(),
		OrderItems:    []models.OrderItem{{Product: models.NewID(), Name: "x", Price: 10, Quantity: 1}},
		PaymentMethod: models.MethodCOD,
		OrderStatus:   models.StatusPending,
		PaymentStatus: models.PaymentPending,
		TotalPrice:    61.8,
	}
	require.NoError(t, s.Orders().Create(ctx, o))

	first := *o
	first.OrderStatus = models.StatusProcessing
	require.NoError(t, s.Orders().UpdateStatus(ctx, &first, models.StatusPending))

	stale := *o
	stale.OrderStatus = models.StatusCancelled
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, &stale, models.StatusPending), ErrConflict)

	got, err := s.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.OrderStatus)
}

func TestGatewayPaymentIDIsUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pid := "pay_123"
	newOrder := func() *models.Order {
		return &models.Order{
			User:             models.NewID(),
			OrderItems:       []models.OrderItem{{Product: models.NewID(), Quantity: 1}},
			PaymentMethod:    models.MethodRazorpay,
			GatewayPaymentID: &pid,
			OrderStatus:      models.StatusPending,
			PaymentStatus:    models.PaymentPaid,
		}
	}

	first := newOrder()
	require.NoError(t, s.Orders().Create(ctx, first))
	assert.ErrorIs(t, s.Orders().Create(ctx, newOrder()), ErrDuplicate)

	got, err := s.Orders().FindByGatewayPaymentID(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.Orders().FindByGatewayPaymentID(ctx, "pay_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderStatsQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := models.NewID()
	for i, st := range []string{models.StatusPending, models.StatusDelivered, models.StatusCancelled, models.StatusPending} {
		o := &models.Order{
			User:          user,
			OrderItems:    []models.OrderItem{{Product: models.NewID(), Quantity: 1}},
			PaymentMethod: models.MethodCOD,
			OrderStatus:   st,
			PaymentStatus: models.PaymentPending,
			TotalPrice:    float64(100 * (i + 1)),
		}
		require.NoError(t, s.Orders().Create(ctx, o))
		time.Sleep(2 * time.Millisecond)
	}

	counts, err := s.Orders().CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.StatusPending])
	assert.EqualValues(t, 1, counts[models.StatusDelivered])
	assert.EqualValues(t, 1, counts[models.StatusCancelled])
	assert.EqualValues(t, 0, counts[models.StatusShipped])

	revenue, err := s.Orders().Revenue(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 700.0, revenue, 0.001)

	recent, err := s.Orders().Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.InDelta(t, 400.0, recent[0].TotalPrice, 0.001)

	mine, err := s.Orders().ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	page, total, err := s.Orders().List(ctx, orm.NewPagination(2, 3, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, page, 1)
}

func TestUsersEmailIsCaseInsensitiveAndUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := &models.User{Name: "Ravi", Email: " Ravi@Farm.IN ", Password: "hash"}
	require.NoError(t, s.Users().Create(ctx, u))
	assert.Equal(t, "ravi@farm.in", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)

	got, err := s.Users().FindByEmail(ctx, "RAVI@farm.in")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &models.User{Name: "Other", Email: "ravi@farm.in", Password: "hash"}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), ErrDuplicate)

	n, err := s.Users().CountByRole(ctx, models.RoleUser)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.Users().Delete(ctx, u.ID))
	assert.ErrorIs(t, s.Users().Delete(ctx, u.ID), ErrNotFound)
}
