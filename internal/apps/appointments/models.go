package appointments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Column widths, in characters, of the bounded text fields.
const (
	MaxTitleLen    = 200
	MaxLocationLen = 200
)

// Appointment is a local calendar entry. ExternalEventID, when set, is the
// join key against the remote calendar and is unique.
type Appointment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title              string     `gorm:"size:200;not null" json:"title"`
	Description        string     `gorm:"type:text" json:"description"`
	StartTime          time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	Location           string     `gorm:"size:200" json:"location"`
	ContactName        string     `gorm:"size:100" json:"contact_name"`
	ContactPhone       string     `gorm:"size:50" json:"contact_phone"`
	ContactEmail       string     `gorm:"size:200" json:"contact_email"`
	Status             string     `gorm:"size:20;not null;index" json:"status"`
	ReminderSent       bool       `gorm:"not null" json:"reminder_sent"`
	Reminder3DaysSent  bool       `gorm:"column:reminder_3days_sent;not null" json:"reminder_3days_sent"`
	ExternalEventID    *string    `gorm:"size:255;uniqueIndex" json:"google_event_id"`
	ExternalCalendarID *string    `gorm:"size:255" json:"google_calendar_id"`
	IsSynced           bool       `gorm:"not null" json:"is_synced"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	return nil
}

// --- DTOs ---

type CreateAppointmentRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=200"`
	Description  string     `json:"description"`
	StartTime    time.Time  `json:"start_time" validate:"required"`
	EndTime      *time.Time `json:"end_time"`
	Location     string     `json:"location" validate:"max=200"`
	ContactName  string     `json:"contact_name" validate:"max=100"`
	ContactPhone string     `json:"contact_phone" validate:"max=50"`
	ContactEmail string     `json:"contact_email" validate:"omitempty,email,max=200"`
	Status       string     `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

type UpdateAppointmentRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Location     *string    `json:"location" validate:"omitempty,max=200"`
	ContactName  *string    `json:"contact_name" validate:"omitempty,max=100"`
	ContactPhone *string    `json:"contact_phone" validate:"omitempty,max=50"`
	ContactEmail *string    `json:"contact_email" validate:"omitempty,email,max=200"`
	Status       *string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

type ListFilter struct {
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
	Skip     int
	Limit    int
}
