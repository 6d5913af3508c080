package queue

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/kisanmart/pkg/logger"
)

// FailedStore persists jobs that exhausted their retries.
type FailedStore interface {
	SaveFailed(ctx context.Context, job FailedJob) error
}

// FailedJobRecord is the row written for an exhausted job. The table is
// created by the migrations.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// GormFailedStore writes failed jobs to the failed_jobs table.
type GormFailedStore struct {
	DB *gorm.DB
}

func (s GormFailedStore) SaveFailed(ctx context.Context, job FailedJob) error {
	msg := ""
	if job.Err != nil {
		msg = job.Err.Error()
	}
	return s.DB.WithContext(ctx).Create(&FailedJobRecord{
		JobType:  job.Type,
		Payload:  string(job.Payload),
		Error:    msg,
		Attempts: job.Attempts,
		FailedAt: job.FailedAt,
	}).Error
}

func (m *Manager) persistFailed(ctx context.Context, job FailedJob) {
	m.mu.Lock()
	m.failed = append(m.failed, job)
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return
	}
	// The worker context may already be cancelled during shutdown.
	if err := store.SaveFailed(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("queue: persist failed job", "type", job.Type, "error", err)
	}
}
