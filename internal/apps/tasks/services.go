package tasks

import (
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db, now: time.Now}
}

func (s *TaskService) Create(req CreateTaskRequest) (*Task, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	task := Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     utcPtr(req.DueDate),
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Get(id string) (*Task, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("task", id)
	}

	var task Task
	if err := s.db.First(&task, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task", id)
		}
		return nil, err
	}
	return &task, nil
}

// List returns tasks ordered by due date, tasks without one last.
func (s *TaskService) List(f ListFilter) ([]Task, error) {
	q := s.db.Model(&Task{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.AssignedTo != "" {
		q = q.Where("LOWER(assigned_to) LIKE ?", "%"+strings.ToLower(f.AssignedTo)+"%")
	}

	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Skip < 0 {
		f.Skip = 0
	}

	var tasks []Task
	err := q.Order("due_date IS NULL, due_date ASC, created_at DESC").
		Offset(f.Skip).
		Limit(f.Limit).
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskService) Update(id string, req UpdateTaskRequest) (*Task, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.DueDate != nil {
		task.DueDate = utcPtr(req.DueDate)
	}
	if req.AssignedTo != nil {
		task.AssignedTo = *req.AssignedTo
	}
	if req.Tags != nil {
		task.Tags = *req.Tags
	}

	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(id string) error {
	task, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Delete(task).Error
}

// Overdue returns open tasks whose due date has passed.
func (s *TaskService) Overdue() ([]Task, error) {
	var tasks []Task
	err := s.db.
		Where("due_date < ? AND status IN ?", s.now().UTC(), []string{StatusTodo, StatusInProgress}).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskService) CountOverdue() (int64, error) {
	var n int64
	err := s.db.Model(&Task{}).
		Where("due_date < ? AND status IN ?", s.now().UTC(), []string{StatusTodo, StatusInProgress}).
		Count(&n).Error
	return n, err
}

// CountByStatus returns a count for every known status, zeros included.
func (s *TaskService) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := s.db.Model(&Task{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
