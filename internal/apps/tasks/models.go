package tasks

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

var Statuses = []string{StatusTodo, StatusInProgress, StatusDone, StatusCancelled}

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Priority    string     `gorm:"size:20;not null;default:medium;index" json:"priority"`
	Status      string     `gorm:"size:20;not null;default:todo;index" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	AssignedTo  string     `gorm:"size:100" json:"assigned_to"`
	Tags        string     `gorm:"size:500" json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in_progress done cancelled"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to" validate:"max=100"`
	Tags        string     `json:"tags" validate:"max=500"`
}

// UpdateTaskRequest applies only the fields that are present.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in_progress done cancelled"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,max=100"`
	Tags        *string    `json:"tags" validate:"omitempty,max=500"`
}

type ListFilter struct {
	Status     string
	Priority   string
	AssignedTo string
	Skip       int
	Limit      int
}
