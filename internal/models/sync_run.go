package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SyncKindCalendarPull = "calendar_pull"
	SyncKindCalendarPush = "calendar_push"
	SyncKindStockImport  = "stock_import"

	SyncStatusSucceeded = "succeeded"
	SyncStatusFailed    = "failed"
)

// SyncRun is one execution of a reconciliation or import batch.
type SyncRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       string         `gorm:"size:30;not null;index:idx_sync_runs_user_kind,priority:2" json:"kind"`
	UserID     string         `gorm:"size:100;not null;index:idx_sync_runs_user_kind,priority:1" json:"user_id"`
	Target     string         `gorm:"size:500" json:"target"`
	Status     string         `gorm:"size:20;not null" json:"status"`
	Imported   int            `json:"imported"`
	Updated    int            `json:"updated"`
	Total      int            `json:"total"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	StartedAt  time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt time.Time      `gorm:"not null;index" json:"finished_at"`
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
