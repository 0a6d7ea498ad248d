package payments

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CallbackEvent is the audit row written for every authenticated provider
// notification, applied or not. Unauthenticated payloads are never stored.
type CallbackEvent struct {
	ID            string         `gorm:"type:char(36);primaryKey"`
	Gateway       string         `gorm:"type:varchar(32);not null;index:ix_callback_events_gateway_ref,priority:1"`
	ExternalRef   string         `gorm:"type:varchar(128);not null;index:ix_callback_events_gateway_ref,priority:2"`
	OutcomeStatus string         `gorm:"type:varchar(16);not null"`
	Applied       bool           `gorm:"not null"`
	PayloadJSON   datatypes.JSON `gorm:"type:json"`
	ReceivedAt    time.Time      `gorm:"type:datetime(3);not null"`
}

func (CallbackEvent) TableName() string { return "callback_events" }

type CallbackRecorder interface {
	Record(ctx context.Context, ev CallbackEvent) error
}

type CallbackLog struct{ db *gorm.DB }

func NewCallbackLog(db *gorm.DB) *CallbackLog { return &CallbackLog{db: db} }

func (l *CallbackLog) Record(ctx context.Context, ev CallbackEvent) error {
	return l.db.WithContext(ctx).Create(&ev).Error
}
