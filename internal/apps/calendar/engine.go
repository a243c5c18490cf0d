package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/appointments"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/google"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"gorm.io/gorm"
)

const (
	DefaultCalendarID = "primary"
	untitled          = "Untitled"
	provider          = "google_calendar"
)

// EventsClient is the remote calendar surface the engine depends on.
type EventsClient interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*gcal.Event, error)
	InsertEvent(ctx context.Context, calendarID string, ev *gcal.Event) (*gcal.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, ev *gcal.Event) (*gcal.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	GetCalendar(ctx context.Context, calendarID string) (*gcal.Calendar, error)
}

// ClientFactory builds an EventsClient authenticated with tok.
type ClientFactory func(ctx context.Context, tok *oauth2.Token) (EventsClient, error)

// GoogleClientFactory talks to the real Google Calendar API.
func GoogleClientFactory(ctx context.Context, tok *oauth2.Token) (EventsClient, error) {
	c, err := google.NewCalendarClient(ctx, tok)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CredentialSource hands out valid OAuth credentials per user.
type CredentialSource interface {
	GetValidCredentials(ctx context.Context, userID string) (*oauth2.Token, error)
}

type EngineConfig struct {
	TimeZone   string
	WindowDays int
}

type SyncOptions struct {
	CalendarID string
	FromDate   *time.Time
	ToDate     *time.Time
}

type SyncResult struct {
	Imported int
	Updated  int
	Skipped  int
	Total    int
}

type PushResult struct {
	ExternalEventID string
	CalendarID      string
	Link            string
	Created         bool
}

// Engine reconciles local appointments with a remote calendar.
type Engine struct {
	db        *gorm.DB
	creds     CredentialSource
	newClient ClientFactory
	history   *services.SyncHistory
	locks     *userLocks
	cfg       EngineConfig
	now       func() time.Time
}

// NewEngine builds an engine. history may be nil.
func NewEngine(db *gorm.DB, creds CredentialSource, newClient ClientFactory, history *services.SyncHistory, cfg EngineConfig) *Engine {
	if cfg.TimeZone == "" {
		cfg.TimeZone = "Europe/Paris"
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 90
	}
	return &Engine{
		db:        db,
		creds:     creds,
		newClient: newClient,
		history:   history,
		locks:     newUserLocks(),
		cfg:       cfg,
		now:       time.Now,
	}
}

type remoteEvent struct {
	id    string
	title string
	desc  string
	loc   string
	start time.Time
	end   time.Time
}

// SyncEvents pulls remote events of the window into local appointments,
// upserting by external event id. The whole batch is committed in one
// transaction or not at all. Status and reminder flags of existing
// appointments are never modified.
func (e *Engine) SyncEvents(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error) {
	calendarID := opts.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	started := e.now()
	res, err := e.pull(ctx, userID, calendarID, opts)
	if !errors.Is(err, apperr.ErrNotConnected) {
		sum := services.RunSummary{Kind: models.SyncKindCalendarPull, UserID: userID, Target: calendarID}
		if res != nil {
			sum.Imported = res.Imported
			sum.Updated = res.Updated
			sum.Total = res.Total
			sum.Details = map[string]interface{}{"skipped": res.Skipped}
		}
		e.record(ctx, started, sum, err)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("calendar sync completed",
		"user_id", userID, "calendar_id", calendarID,
		"imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped, "total", res.Total)
	return res, nil
}

func (e *Engine) pull(ctx context.Context, userID, calendarID string, opts SyncOptions) (*SyncResult, error) {
	tok, err := e.creds.GetValidCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	from := e.now().UTC()
	if opts.FromDate != nil {
		from = opts.FromDate.UTC()
	}
	to := from.AddDate(0, 0, e.cfg.WindowDays)
	if opts.ToDate != nil {
		to = opts.ToDate.UTC()
	}
	if to.Before(from) {
		return nil, &apperr.ValidationError{Fields: map[string]string{"to_date": "must not be before from_date"}}
	}

	client, err := e.newClient(ctx, tok)
	if err != nil {
		return nil, err
	}
	items, err := client.ListEvents(ctx, calendarID, from, to)
	if err != nil {
		return nil, asExternal("events.list", err)
	}

	res := &SyncResult{Total: len(items)}
	events := make([]remoteEvent, 0, len(items))
	for _, item := range items {
		ev, ok := fromRemote(item)
		if !ok {
			res.Skipped++
			slog.Warn("skipping remote event without usable start", "user_id", userID, "calendar_id", calendarID, "event_id", item.Id)
			continue
		}
		events = append(events, ev)
	}

	syncedAt := e.now().UTC()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ev := range events {
			created, err := upsertAppointment(tx, ev, calendarID, syncedAt)
			if err != nil {
				return fmt.Errorf("event %s: %w", ev.id, err)
			}
			if created {
				res.Imported++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func upsertAppointment(tx *gorm.DB, ev remoteEvent, calendarID string, syncedAt time.Time) (bool, error) {
	var appt appointments.Appointment
	err := tx.Where("external_event_id = ?", ev.id).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id, cal, end := ev.id, calendarID, ev.end
		appt = appointments.Appointment{
			Title:              ev.title,
			Description:        ev.desc,
			StartTime:          ev.start,
			EndTime:            &end,
			Location:           ev.loc,
			Status:             appointments.StatusScheduled,
			ExternalEventID:    &id,
			ExternalCalendarID: &cal,
			IsSynced:           true,
			LastSyncedAt:       &syncedAt,
		}
		return true, tx.Create(&appt).Error
	}
	if err != nil {
		return false, err
	}

	return false, tx.Model(&appt).Updates(map[string]interface{}{
		"title":          ev.title,
		"description":    ev.desc,
		"start_time":     ev.start,
		"end_time":       ev.end,
		"location":       ev.loc,
		"is_synced":      true,
		"last_synced_at": syncedAt,
	}).Error
}

// fromRemote normalises a remote event. A date-only start is midnight UTC of
// that day; a missing or unreadable end collapses onto the start.
func fromRemote(item *gcal.Event) (remoteEvent, bool) {
	if item == nil || item.Id == "" {
		return remoteEvent{}, false
	}
	start, ok := parseEventTime(item.Start)
	if !ok {
		return remoteEvent{}, false
	}
	end, ok := parseEventTime(item.End)
	if !ok || end.Before(start) {
		end = start
	}

	title := strings.TrimSpace(item.Summary)
	if title == "" {
		title = untitled
	}
	return remoteEvent{
		id:    item.Id,
		title: truncateRunes(title, appointments.MaxTitleLen),
		desc:  item.Description,
		loc:   truncateRunes(item.Location, appointments.MaxLocationLen),
		start: start,
		end:   end,
	}, true
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func parseEventTime(dt *gcal.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	if dt.Date != "" {
		t, err := time.Parse(time.DateOnly, dt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// PushToRemote writes the appointment to the remote calendar. An appointment
// holding an external event id is updated in place; otherwise a new event is
// created and its id stored. An empty calendarID targets the calendar the
// appointment is already linked to, or the primary calendar. Remote failures
// leave local state unchanged.
func (e *Engine) PushToRemote(ctx context.Context, userID, appointmentID, calendarID string) (*PushResult, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	started := e.now()
	res, err := e.push(ctx, userID, appointmentID, calendarID)
	if !errors.Is(err, apperr.ErrNotConnected) && !errors.Is(err, apperr.ErrNotFound) {
		sum := services.RunSummary{Kind: models.SyncKindCalendarPush, UserID: userID, Target: calendarID, Total: 1}
		if res != nil {
			sum.Target = res.CalendarID
			if res.Created {
				sum.Imported = 1
			} else {
				sum.Updated = 1
			}
			sum.Details = map[string]interface{}{"appointment_id": appointmentID, "event_id": res.ExternalEventID}
		}
		e.record(ctx, started, sum, err)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("appointment pushed to calendar",
		"user_id", userID, "appointment_id", appointmentID, "calendar_id", res.CalendarID,
		"event_id", res.ExternalEventID, "created", res.Created)
	return res, nil
}

func (e *Engine) push(ctx context.Context, userID, appointmentID, calendarID string) (*PushResult, error) {
	tok, err := e.creds.GetValidCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	appt, err := appointments.Find(e.db.WithContext(ctx), appointmentID)
	if err != nil {
		return nil, err
	}

	calendarID = pushTarget(appt, calendarID)

	client, err := e.newClient(ctx, tok)
	if err != nil {
		return nil, err
	}

	body := toRemote(appt, e.cfg.TimeZone)
	res := &PushResult{CalendarID: calendarID}
	var remote *gcal.Event
	if appt.ExternalEventID != nil && *appt.ExternalEventID != "" {
		remote, err = client.UpdateEvent(ctx, calendarID, *appt.ExternalEventID, body)
		if err != nil {
			return nil, asExternal("events.update", err)
		}
		res.ExternalEventID = *appt.ExternalEventID
	} else {
		remote, err = client.InsertEvent(ctx, calendarID, body)
		if err != nil {
			return nil, asExternal("events.insert", err)
		}
		if remote == nil || remote.Id == "" {
			return nil, apperr.External(provider, "events.insert", errors.New("provider returned no event id"))
		}
		res.ExternalEventID = remote.Id
		res.Created = true
	}
	if remote != nil {
		res.Link = remote.HtmlLink
	}

	syncedAt := e.now().UTC()
	err = e.db.WithContext(ctx).Model(appt).Updates(map[string]interface{}{
		"external_event_id":    res.ExternalEventID,
		"external_calendar_id": calendarID,
		"is_synced":            true,
		"last_synced_at":       syncedAt,
	}).Error
	if err != nil {
		slog.Error("remote event written but local link not saved",
			"appointment_id", appointmentID, "event_id", res.ExternalEventID, "error", err)
		return nil, err
	}
	return res, nil
}

// pushTarget picks the calendar a push writes to. A linked event is always
// updated in the calendar that holds it; requested only applies to inserts
// and to links that never stored a calendar.
func pushTarget(appt *appointments.Appointment, requested string) string {
	linked := appt.ExternalEventID != nil && *appt.ExternalEventID != ""
	stored := ""
	if appt.ExternalCalendarID != nil {
		stored = *appt.ExternalCalendarID
	}
	switch {
	case linked && stored != "":
		return stored
	case requested != "":
		return requested
	case stored != "":
		return stored
	default:
		return DefaultCalendarID
	}
}

// DeleteRemoteEvent deletes the linked remote event and unlinks the
// appointment. The local appointment itself is kept.
func (e *Engine) DeleteRemoteEvent(ctx context.Context, userID, appointmentID string) error {
	unlock := e.locks.lock(userID)
	defer unlock()

	tok, err := e.creds.GetValidCredentials(ctx, userID)
	if err != nil {
		return err
	}
	appt, err := appointments.Find(e.db.WithContext(ctx), appointmentID)
	if err != nil {
		return err
	}
	if appt.ExternalEventID == nil || *appt.ExternalEventID == "" {
		return apperr.NotFound("calendar event for appointment", appointmentID)
	}

	calendarID := DefaultCalendarID
	if appt.ExternalCalendarID != nil && *appt.ExternalCalendarID != "" {
		calendarID = *appt.ExternalCalendarID
	}

	client, err := e.newClient(ctx, tok)
	if err != nil {
		return err
	}
	if err := client.DeleteEvent(ctx, calendarID, *appt.ExternalEventID); err != nil {
		return asExternal("events.delete", err)
	}

	return e.db.WithContext(ctx).Model(appt).Updates(map[string]interface{}{
		"external_event_id":    nil,
		"external_calendar_id": nil,
		"is_synced":            false,
	}).Error
}

// GetCalendar returns remote calendar metadata.
func (e *Engine) GetCalendar(ctx context.Context, userID, calendarID string) (*gcal.Calendar, error) {
	tok, err := e.creds.GetValidCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	client, err := e.newClient(ctx, tok)
	if err != nil {
		return nil, err
	}
	cal, err := client.GetCalendar(ctx, calendarID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, asExternal("calendars.get", err)
	}
	return cal, err
}

func toRemote(a *appointments.Appointment, timeZone string) *gcal.Event {
	end := a.StartTime
	if a.EndTime != nil {
		end = *a.EndTime
	}
	return &gcal.Event{
		Summary:     a.Title,
		Description: a.Description,
		Location:    a.Location,
		Start:       &gcal.EventDateTime{DateTime: a.StartTime.UTC().Format(time.RFC3339), TimeZone: timeZone},
		End:         &gcal.EventDateTime{DateTime: end.UTC().Format(time.RFC3339), TimeZone: timeZone},
	}
}

func (e *Engine) record(ctx context.Context, started time.Time, sum services.RunSummary, err error) {
	if e.history != nil {
		e.history.Record(ctx, started, sum, err)
	}
}

// asExternal keeps typed errors and wraps anything else as a provider failure.
func asExternal(op string, err error) error {
	var ext *apperr.ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return apperr.External(provider, op, err)
}
