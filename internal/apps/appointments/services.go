package appointments

import (
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAppointmentService(db *gorm.DB) *AppointmentService {
	return &AppointmentService{db: db, now: time.Now}
}

func (s *AppointmentService) Create(req CreateAppointmentRequest) (*Appointment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := checkRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	appt := Appointment{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		StartTime:    req.StartTime.UTC(),
		EndTime:      utcPtr(req.EndTime),
		Location:     req.Location,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Status:       req.Status,
	}
	if err := s.db.Create(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *AppointmentService) Get(id string) (*Appointment, error) {
	return Find(s.db, id)
}

// Find loads an appointment by id using db, which may be a transaction.
func Find(db *gorm.DB, id string) (*Appointment, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("appointment", id)
	}

	var appt Appointment
	if err := db.First(&appt, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("appointment", id)
		}
		return nil, err
	}
	return &appt, nil
}

func (s *AppointmentService) List(f ListFilter) ([]Appointment, error) {
	q := s.db.Model(&Appointment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.FromDate != nil {
		q = q.Where("start_time >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("start_time <= ?", f.ToDate.UTC())
	}

	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Skip < 0 {
		f.Skip = 0
	}

	var appts []Appointment
	err := q.Order("start_time ASC").Offset(f.Skip).Limit(f.Limit).Find(&appts).Error
	return appts, err
}

// Update edits local fields only. The remote event is left alone until the
// appointment is pushed again.
func (s *AppointmentService) Update(id string, req UpdateAppointmentRequest) (*Appointment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	appt, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		appt.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		appt.Description = *req.Description
	}
	if req.StartTime != nil {
		appt.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		appt.EndTime = utcPtr(req.EndTime)
	}
	if req.Location != nil {
		appt.Location = *req.Location
	}
	if req.ContactName != nil {
		appt.ContactName = *req.ContactName
	}
	if req.ContactPhone != nil {
		appt.ContactPhone = *req.ContactPhone
	}
	if req.ContactEmail != nil {
		appt.ContactEmail = *req.ContactEmail
	}
	if req.Status != nil {
		appt.Status = *req.Status
	}
	if err := checkRange(appt.StartTime, appt.EndTime); err != nil {
		return nil, err
	}

	if err := s.db.Save(appt).Error; err != nil {
		return nil, err
	}
	return appt, nil
}

// Delete removes the local row only; a linked remote event survives.
func (s *AppointmentService) Delete(id string) error {
	appt, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Delete(appt).Error
}

// UpcomingWithin returns scheduled appointments starting in [now, now+days].
func (s *AppointmentService) UpcomingWithin(days int) ([]Appointment, error) {
	now := s.now().UTC()
	return s.scheduledBetween(now, now.AddDate(0, 0, days))
}

// ThisWeek returns scheduled appointments from now until the end of the
// current ISO week (Sunday 24:00 UTC).
func (s *AppointmentService) ThisWeek() ([]Appointment, error) {
	now := s.now().UTC()
	return s.scheduledBetween(now, endOfWeek(now))
}

func (s *AppointmentService) scheduledBetween(from, to time.Time) ([]Appointment, error) {
	var appts []Appointment
	err := s.db.
		Where("status = ? AND start_time >= ? AND start_time <= ?", StatusScheduled, from, to).
		Order("start_time ASC").
		Find(&appts).Error
	return appts, err
}

// MarkReminderSent sets the 3-day flag when days == 3 and the day-before
// flag when days == 1.
func (s *AppointmentService) MarkReminderSent(id string, days int) (*Appointment, error) {
	column := ""
	switch days {
	case 3:
		column = "reminder_3days_sent"
	case 1:
		column = "reminder_sent"
	default:
		return nil, &apperr.ValidationError{Fields: map[string]string{"days": "must be one of 1 3"}}
	}

	appt, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(appt).Update(column, true).Error; err != nil {
		return nil, err
	}
	if days == 3 {
		appt.Reminder3DaysSent = true
	} else {
		appt.ReminderSent = true
	}
	return appt, nil
}

func (s *AppointmentService) Count() (int64, error) {
	var n int64
	err := s.db.Model(&Appointment{}).Count(&n).Error
	return n, err
}

// CountUpcoming counts scheduled appointments starting from now on, and
// those within the next days.
func (s *AppointmentService) CountUpcoming(days int) (upcoming, within int64, err error) {
	now := s.now().UTC()
	if err = s.db.Model(&Appointment{}).
		Where("status = ? AND start_time >= ?", StatusScheduled, now).
		Count(&upcoming).Error; err != nil {
		return 0, 0, err
	}
	err = s.db.Model(&Appointment{}).
		Where("status = ? AND start_time >= ? AND start_time <= ?", StatusScheduled, now, now.AddDate(0, 0, days)).
		Count(&within).Error
	return upcoming, within, err
}

func checkRange(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return &apperr.ValidationError{Fields: map[string]string{"end_time": "must not be before start_time"}}
	}
	return nil
}

func endOfWeek(t time.Time) time.Time {
	daysToMonday := (8 - int(t.Weekday())) % 7
	if daysToMonday == 0 {
		daysToMonday = 7
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, daysToMonday)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
