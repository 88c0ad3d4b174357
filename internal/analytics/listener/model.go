package listener

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RefreshRequest is one queued account refresh.
type RefreshRequest struct {
	ID          snowflake.ID      `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	AccountID   string            `gorm:"column:account_id;not null;index" json:"account_id"`
	Kind        string            `gorm:"column:kind;not null" json:"kind"`
	EventType   string            `gorm:"column:event_type" json:"event_type,omitempty"`
	Payload     datatypes.JSONMap `gorm:"column:payload" json:"payload,omitempty"`
	Status      string            `gorm:"column:status;not null;index" json:"status"`
	Error       string            `gorm:"column:error" json:"error,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null" json:"created_at"`
	StartedAt   *time.Time        `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (RefreshRequest) TableName() string { return "analytics_refresh_requests" }
