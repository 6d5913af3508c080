package migrations

import (
	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/migration"
	"github.com/shashiranjanraj/kisanmart/pkg/queue"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260301000000_create_users_table", table{&models.User{}})
	migration.Register("20260301000001_create_products_table", table{&models.Product{}})
	migration.Register("20260301000002_create_orders_table", table{&models.Order{}})
	migration.Register("20260301000003_create_failed_jobs_table", table{&queue.FailedJobRecord{}})
}

// table creates a model's table with its indexes and drops it on rollback.
type table struct{ model any }

func (t table) Up(db *gorm.DB) error   { return db.AutoMigrate(t.model) }
func (t table) Down(db *gorm.DB) error { return db.Migrator().DropTable(t.model) }
