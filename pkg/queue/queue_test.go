package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/kisanmart/pkg/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	handled  sync.Map // job id -> *atomic.Int32
	attempts atomic.Int32
)

type recordJob struct {
	ID string `json:"id"`
}

func (recordJob) JobName() string { return "test.record" }

func (j *recordJob) Handle(context.Context) error {
	v, _ := handled.LoadOrStore(j.ID, new(atomic.Int32))
	v.(*atomic.Int32).Add(1)
	return nil
}

type flakyJob struct {
	FailTimes int32 `json:"failTimes"`
}

func (flakyJob) JobName() string { return "test.flaky" }

func (j flakyJob) Handle(context.Context) error {
	if attempts.Add(1) <= j.FailTimes {
		return errors.New("smtp unavailable")
	}
	return nil
}

func count(id string) int32 {
	v, ok := handled.Load(id)
	if !ok {
		return 0
	}
	return v.(*atomic.Int32).Load()
}

func startManager(t *testing.T, m *queue.Manager, workers int) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx, workers)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestDispatchRunsRegisteredJob(t *testing.T) {
	m := queue.New(queue.NewMemoryDriver(10))
	m.Register(&recordJob{})
	startManager(t, m, 2)

	require.NoError(t, m.Dispatch(context.Background(), &recordJob{ID: "a"}))
	require.NoError(t, m.Dispatch(context.Background(), &recordJob{ID: "b"}))

	assert.Eventually(t, func() bool { return count("a") == 1 && count("b") == 1 },
		time.Second, 10*time.Millisecond)
}

func TestRetryThenSucceed(t *testing.T) {
	attempts.Store(0)
	m := queue.New(queue.NewMemoryDriver(10))
	m.Register(flakyJob{})
	m.SetBackoff(time.Millisecond)
	m.SetMaxRetry(3)
	startManager(t, m, 1)

	require.NoError(t, m.Dispatch(context.Background(), flakyJob{FailTimes: 2}))

	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(m.FailedJobs()) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestExhaustedJobIsPersisted(t *testing.T) {
	attempts.Store(0)
	db, err := gorm.Open(sqlite.Open("file:failed_jobs?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&queue.FailedJobRecord{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	m := queue.New(queue.NewMemoryDriver(10))
	m.Register(flakyJob{})
	m.SetBackoff(time.Millisecond)
	m.SetMaxRetry(2)
	m.UseStore(queue.GormFailedStore{DB: db})
	startManager(t, m, 1)

	require.NoError(t, m.Dispatch(context.Background(), flakyJob{FailTimes: 100}))

	require.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, time.Second, 5*time.Millisecond)
	failed := m.FailedJobs()[0]
	assert.Equal(t, "test.flaky", failed.Type)
	assert.Equal(t, 2, failed.Attempts)
	assert.EqualError(t, failed.Err, "smtp unavailable")

	var rec queue.FailedJobRecord
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, "test.flaky", rec.JobType)
	assert.JSONEq(t, `{"failTimes":100}`, rec.Payload)
}

func TestUnregisteredJobIsDropped(t *testing.T) {
	m := queue.New(queue.NewMemoryDriver(10))
	startManager(t, m, 1)

	require.NoError(t, m.Dispatch(context.Background(), &recordJob{ID: "ghost"}))
	assert.Never(t, func() bool { return count("ghost") > 0 }, 50*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, m.FailedJobs())
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	require.NoError(t, d.Push(context.Background(), []byte("1")))
	assert.ErrorIs(t, d.Push(context.Background(), []byte("2")), queue.ErrQueueFull)
	assert.Equal(t, 1, d.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	m := queue.New(queue.NewMemoryDriver(10))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 3) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("workers did not stop")
	}
}
