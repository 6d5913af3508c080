package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/pkg/database"
	"github.com/shashiranjanraj/kisanmart/pkg/mail"
	"github.com/shashiranjanraj/kisanmart/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderPlacedMailRenders(t *testing.T) {
	box := &mail.Outbox{}
	prev := mail.SetSender(box)
	defer mail.SetSender(prev)

	job := &OrderPlacedMail{
		Email:         "ravi@example.com",
		Name:          "Ravi",
		OrderID:       "65f1c0ffee0000000000abcd",
		Items:         []models.OrderItem{{Name: "Neem Oil", Quantity: 2, Price: 250}},
		ItemsPrice:    500,
		TaxPrice:      90,
		ShippingPrice: 50,
		TotalPrice:    640,
		PaymentMethod: models.MethodCOD,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, job.Handle(context.Background()))

	sent := box.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "KisanMart order #0000ABCD confirmed", sent[0].SubjectLine())
	assert.Contains(t, sent[0].Body(), "Neem Oil")
	assert.Contains(t, sent[0].Body(), "Total: &#8377;640.00")
}

func TestOrderStatusMailMentionsRefundOnCancel(t *testing.T) {
	box := &mail.Outbox{}
	prev := mail.SetSender(box)
	defer mail.SetSender(prev)

	job := &OrderStatusMail{Email: "a@b.in", Name: "A", OrderID: "abc", From: "Pending", Status: "Cancelled"}
	require.NoError(t, job.Handle(context.Background()))

	sent := box.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "KisanMart order #ABC is cancelled", sent[0].SubjectLine())
	assert.Contains(t, sent[0].Body(), "refund")
}

func TestMailNotifierQueuesJobsForOwner(t *testing.T) {
	db, err := database.Open("sqlite", "file:jobs_notifier?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, repositories.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	store := repositories.NewGormStore(db)
	ctx := context.Background()

	owner := &models.User{Name: "Sita", Email: "sita@example.com", Password: "x"}
	require.NoError(t, store.Users().Create(ctx, owner))

	box := &mail.Outbox{}
	prev := mail.SetSender(box)
	defer mail.SetSender(prev)

	q := queue.New(queue.NewMemoryDriver(10))
	q.Register(&OrderPlacedMail{}, &OrderStatusMail{})
	n := NewMailNotifier(store.Users(), q)

	order := &models.Order{ID: models.NewID(), User: owner.ID, OrderStatus: models.StatusShipped, TotalPrice: 640}
	require.NoError(t, n.OrderPlaced(ctx, order))
	require.NoError(t, n.OrderStatusChanged(ctx, order, models.StatusPending))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = q.Run(runCtx, 1)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(box.Sent()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	for _, m := range box.Sent() {
		assert.Equal(t, []string{"sita@example.com"}, m.Recipients())
	}

	err = n.OrderPlaced(ctx, &models.Order{User: models.NewID()})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
