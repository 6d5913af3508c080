package migration

import (
	"io"
	"testing"

	"github.com/shashiranjanraj/kisanmart/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{ downs *int }

func (m createWidgets) Up(db *gorm.DB) error { return db.AutoMigrate(&widget{}) }
func (m createWidgets) Down(db *gorm.DB) error {
	*m.downs++
	return db.Migrator().DropTable(&widget{})
}

type noop struct{}

func (noop) Up(*gorm.DB) error   { return nil }
func (noop) Down(*gorm.DB) error { return nil }

func newRunner(t *testing.T, name string) *Runner {
	t.Helper()
	db, err := database.Open("sqlite", "file:migration_"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return (&Runner{db: db}).Output(io.Discard)
}

func TestRunAppliesPendingOnce(t *testing.T) {
	downs := 0
	r := newRunner(t, "run").
		With("20260101000001_second", noop{}).
		With("20260101000000_create_widgets", createWidgets{downs: &downs})

	n, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, r.db.Migrator().HasTable(&widget{}))

	n, err = r.Run()
	require.NoError(t, err)
	assert.Zero(t, n)

	status, err := r.Status()
	require.NoError(t, err)
	assert.Equal(t, []Status{
		{Name: "20260101000000_create_widgets", Ran: true, Batch: 1},
		{Name: "20260101000001_second", Ran: true, Batch: 1},
	}, status)
}

func TestRollbackRevertsOnlyLastBatch(t *testing.T) {
	downs := 0
	r := newRunner(t, "rollback").With("20260101000000_create_widgets", createWidgets{downs: &downs})
	_, err := r.Run()
	require.NoError(t, err)

	r = r.With("20260201000000_later", noop{})
	_, err = r.Run()
	require.NoError(t, err)

	n, err := r.Rollback()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, downs)

	status, err := r.Status()
	require.NoError(t, err)
	assert.True(t, status[0].Ran)
	assert.False(t, status[1].Ran)

	n, err = r.Rollback()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, downs)
	assert.False(t, r.db.Migrator().HasTable(&widget{}))

	n, err = r.Rollback()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRollbackNeedsImplementation(t *testing.T) {
	r := newRunner(t, "missing").With("20260101000000_gone", noop{})
	_, err := r.Run()
	require.NoError(t, err)

	bare := (&Runner{db: r.db}).Output(io.Discard)
	_, err = bare.Rollback()
	assert.ErrorIs(t, err, ErrNotRegistered)
}
