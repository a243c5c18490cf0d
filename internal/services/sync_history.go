package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncHistory records reconciliation and import runs. Writes happen outside
// the batch transaction so failed runs are kept too.
type SyncHistory struct {
	db *gorm.DB
}

func NewSyncHistory(db *gorm.DB) *SyncHistory {
	return &SyncHistory{db: db}
}

// RunSummary is what a batch reports back when it finishes.
type RunSummary struct {
	Kind     string
	UserID   string
	Target   string
	Imported int
	Updated  int
	Total    int
	Details  map[string]interface{}
}

// Record stores a finished run. A nil runErr marks it succeeded. Storage
// failures are logged, never returned: history must not fail the batch.
// The write outlives a cancelled ctx so runs that timed out are still kept.
func (h *SyncHistory) Record(ctx context.Context, startedAt time.Time, sum RunSummary, runErr error) {
	run := models.SyncRun{
		Kind:       sum.Kind,
		UserID:     sum.UserID,
		Target:     sum.Target,
		Status:     models.SyncStatusSucceeded,
		Imported:   sum.Imported,
		Updated:    sum.Updated,
		Total:      sum.Total,
		StartedAt:  startedAt.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil {
		run.Status = models.SyncStatusFailed
		run.Error = runErr.Error()
	}
	if len(sum.Details) > 0 {
		if b, err := json.Marshal(sum.Details); err == nil {
			run.Details = datatypes.JSON(b)
		}
	}

	if err := h.db.WithContext(context.WithoutCancel(ctx)).Create(&run).Error; err != nil {
		slog.Error("failed to record sync run", "kind", sum.Kind, "user_id", sum.UserID, "error", err)
	}
}

// LastSuccess returns the most recent succeeded run of kind for userID, or nil.
func (h *SyncHistory) LastSuccess(ctx context.Context, userID, kind string) (*models.SyncRun, error) {
	var run models.SyncRun
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND status = ?", userID, kind, models.SyncStatusSucceeded).
		Order("finished_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the newest runs of userID, newest first.
func (h *SyncHistory) List(ctx context.Context, userID string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.SyncRun
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("finished_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
