package calendar

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/appointments"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"gorm.io/gorm"
)

var syncNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	tokens *services.TokenManager
	remote *fakeCalendar
	engine *Engine
}

func newFixture(t *testing.T, connected bool) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.MigrateShared(db))
	require.NoError(t, database.MigrateModels(db, appointments.New().Models()))

	tokens := services.NewTokenManager(db, nil)
	if connected {
		require.NoError(t, tokens.Store(context.Background(), "default", "access", "refresh", time.Now().Add(time.Hour)))
	}

	remote := newFakeCalendar()
	engine := NewEngine(db, tokens, remote.factory(), services.NewSyncHistory(db), EngineConfig{})
	engine.now = func() time.Time { return syncNow }
	return &fixture{db: db, tokens: tokens, remote: remote, engine: engine}
}

func timed(id, summary, start, end string) *gcal.Event {
	ev := &gcal.Event{Id: id, Summary: summary, Start: &gcal.EventDateTime{DateTime: start}}
	if end != "" {
		ev.End = &gcal.EventDateTime{DateTime: end}
	}
	return ev
}

func (f *fixture) localAppointments(t *testing.T) []appointments.Appointment {
	t.Helper()
	var appts []appointments.Appointment
	require.NoError(t, f.db.Order("start_time").Find(&appts).Error)
	return appts
}

func TestSyncEvents_NotConnected(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{})
	assert.ErrorIs(t, err, apperr.ErrNotConnected)

	_, err = f.engine.PushToRemote(context.Background(), "default", "3b241101-e2bb-4255-8caf-4136c566a962", "")
	assert.ErrorIs(t, err, apperr.ErrNotConnected)

	var runs int64
	f.db.Model(&models.SyncRun{}).Count(&runs)
	assert.Zero(t, runs)
}

func TestSyncEvents_Idempotent(t *testing.T) {
	f := newFixture(t, true)
	f.remote.add("primary", timed("e1", "Delivery", "2026-03-02T09:00:00+01:00", "2026-03-02T10:00:00+01:00"))
	f.remote.add("primary", timed("e2", "Fitting", "2026-03-03T14:00:00Z", "2026-03-03T15:00:00Z"))
	f.remote.add("primary", timed("e3", "Inventory", "2026-03-04T07:30:00Z", "2026-03-04T12:00:00Z"))
	ctx := context.Background()

	first, err := f.engine.SyncEvents(ctx, "default", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Imported: 3, Total: 3}, first)

	second, err := f.engine.SyncEvents(ctx, "default", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Updated: 3, Total: 3}, second)

	appts := f.localAppointments(t)
	require.Len(t, appts, 3)
	assert.Equal(t, "Delivery", appts[0].Title)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), appts[0].StartTime.UTC())
	assert.Equal(t, appointments.StatusScheduled, appts[0].Status)
	assert.True(t, appts[0].IsSynced)
	assert.Equal(t, "primary", *appts[0].ExternalCalendarID)
	require.NotNil(t, appts[0].LastSyncedAt)
	assert.True(t, syncNow.Equal(*appts[0].LastSyncedAt))
}

func TestSyncEvents_KeepsLocalWorkflowState(t *testing.T) {
	f := newFixture(t, true)
	f.remote.add("primary", timed("e1", "Delivery", "2026-03-02T09:00:00Z", ""))
	ctx := context.Background()

	_, err := f.engine.SyncEvents(ctx, "default", SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&appointments.Appointment{}).Where("external_event_id = ?", "e1").
		Updates(map[string]interface{}{"status": appointments.StatusCompleted, "reminder_sent": true, "reminder_3days_sent": true}).Error)

	f.remote.events["primary"][0].Summary = "Delivery (moved)"
	f.remote.events["primary"][0].Location = "Back door"
	_, err = f.engine.SyncEvents(ctx, "default", SyncOptions{})
	require.NoError(t, err)

	appt := f.localAppointments(t)[0]
	assert.Equal(t, "Delivery (moved)", appt.Title)
	assert.Equal(t, "Back door", appt.Location)
	assert.Equal(t, appointments.StatusCompleted, appt.Status)
	assert.True(t, appt.ReminderSent)
	assert.True(t, appt.Reminder3DaysSent)
}

func TestSyncEvents_NormalisesRemoteEvents(t *testing.T) {
	f := newFixture(t, true)
	f.remote.add("primary", &gcal.Event{Id: "all-day", Summary: "  ", Start: &gcal.EventDateTime{Date: "2026-03-05"}})
	f.remote.add("primary", timed("no-end", "Call", "2026-03-06T10:00:00Z", ""))
	f.remote.add("primary", timed("bad-start", "Broken", "next tuesday", ""))
	f.remote.add("primary", &gcal.Event{Id: "no-start", Summary: "Nothing"})

	res, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Imported: 2, Skipped: 2, Total: 4}, res)

	appts := f.localAppointments(t)
	require.Len(t, appts, 2)

	allDay := appts[0]
	assert.Equal(t, "Untitled", allDay.Title)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), allDay.StartTime.UTC())
	require.NotNil(t, allDay.EndTime)
	assert.True(t, allDay.StartTime.Equal(*allDay.EndTime))
	assert.Equal(t, "", allDay.Description)
	assert.Equal(t, "", allDay.Location)

	noEnd := appts[1]
	require.NotNil(t, noEnd.EndTime)
	assert.True(t, noEnd.StartTime.Equal(*noEnd.EndTime))
}

func TestSyncEvents_LongTextIsTruncated(t *testing.T) {
	f := newFixture(t, true)
	long := &gcal.Event{
		Id:       "long",
		Summary:  strings.Repeat("é", appointments.MaxTitleLen+50),
		Location: strings.Repeat("x", appointments.MaxLocationLen+1),
		Start:    &gcal.EventDateTime{DateTime: "2026-03-06T10:00:00Z"},
	}
	f.remote.add("primary", long)
	f.remote.add("primary", timed("short", "Call", "2026-03-07T10:00:00Z", ""))

	res, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	appts := f.localAppointments(t)
	require.Len(t, appts, 2)
	assert.Equal(t, appointments.MaxTitleLen, utf8.RuneCountInString(appts[0].Title))
	assert.True(t, utf8.ValidString(appts[0].Title))
	assert.Len(t, appts[0].Location, appointments.MaxLocationLen)
}

func TestSyncEvents_DefaultWindowAndValidation(t *testing.T) {
	f := newFixture(t, true)
	from := syncNow.AddDate(0, 0, 10)
	to := syncNow

	_, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{FromDate: &from, ToDate: &to})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSyncEvents_ListFailureAbortsAndIsRecorded(t *testing.T) {
	f := newFixture(t, true)
	f.remote.listErr = errors.New("connection reset")

	_, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{})
	var ext *apperr.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Empty(t, f.localAppointments(t))

	var run models.SyncRun
	require.NoError(t, f.db.First(&run).Error)
	assert.Equal(t, models.SyncStatusFailed, run.Status)
	assert.Contains(t, run.Error, "connection reset")
}

func TestSyncEvents_NoPartialCommit(t *testing.T) {
	f := newFixture(t, true)
	f.remote.add("primary", timed("e1", "One", "2026-03-02T09:00:00Z", ""))
	f.remote.add("primary", timed("e2", "Two", "2026-03-03T09:00:00Z", ""))

	creates := 0
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_second_appointment", func(tx *gorm.DB) {
		if tx.Statement.Table != "appointments" {
			return
		}
		creates++
		if creates == 2 {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, f.localAppointments(t), "first upsert must be rolled back")
}

func TestPushToRemote_ThenPullUpdatesSameAppointment(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	appt, err := appointments.NewAppointmentService(f.db).Create(appointments.CreateAppointmentRequest{
		Title:     "Tasting",
		StartTime: time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC),
		Location:  "Shop",
	})
	require.NoError(t, err)

	pushed, err := f.engine.PushToRemote(ctx, "default", appt.ID.String(), "")
	require.NoError(t, err)
	assert.True(t, pushed.Created)
	assert.Equal(t, "evt-1", pushed.ExternalEventID)
	assert.Equal(t, "https://calendar.example/evt-1", pushed.Link)
	assert.Equal(t, 1, f.remote.inserts)

	sent := f.remote.events["primary"][0]
	assert.Equal(t, "Europe/Paris", sent.Start.TimeZone)
	assert.Equal(t, sent.Start.DateTime, sent.End.DateTime, "missing end is pushed as start")

	stored := f.localAppointments(t)[0]
	require.NotNil(t, stored.ExternalEventID)
	assert.Equal(t, "evt-1", *stored.ExternalEventID)
	assert.True(t, stored.IsSynced)

	res, err := f.engine.SyncEvents(ctx, "default", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Updated)
	assert.Len(t, f.localAppointments(t), 1)
}

func TestPushToRemote_ExistingEventIsUpdated(t *testing.T) {
	f := newFixture(t, true)
	f.remote.add("primary", timed("evt123", "Old title", "2026-03-10T16:00:00Z", ""))
	eventID, calID := "evt123", "primary"
	appt := appointments.Appointment{
		Title:              "New title",
		StartTime:          time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC),
		ExternalEventID:    &eventID,
		ExternalCalendarID: &calID,
	}
	require.NoError(t, f.db.Create(&appt).Error)

	res, err := f.engine.PushToRemote(context.Background(), "default", appt.ID.String(), "")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "evt123", res.ExternalEventID)
	assert.Equal(t, 0, f.remote.inserts)
	assert.Equal(t, 1, f.remote.updates)
	assert.Equal(t, "primary", f.remote.lastCalID)
	assert.Equal(t, "New title", f.remote.events["primary"][0].Summary)

	stored := f.localAppointments(t)[0]
	assert.Equal(t, "primary", *stored.ExternalCalendarID)
	assert.Equal(t, "evt123", *stored.ExternalEventID)
}

func TestPushToRemote_LinkedEventStaysInItsCalendar(t *testing.T) {
	f := newFixture(t, true)
	f.remote.add("team", timed("evt123", "Old title", "2026-03-10T16:00:00Z", ""))
	eventID, calID := "evt123", "team"
	appt := appointments.Appointment{
		Title:              "New title",
		StartTime:          time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC),
		ExternalEventID:    &eventID,
		ExternalCalendarID: &calID,
	}
	require.NoError(t, f.db.Create(&appt).Error)

	res, err := f.engine.PushToRemote(context.Background(), "default", appt.ID.String(), "primary")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "team", res.CalendarID)
	assert.Equal(t, "team", f.remote.lastCalID)
	assert.Equal(t, 0, f.remote.inserts)
	assert.Equal(t, "New title", f.remote.events["team"][0].Summary)

	stored := f.localAppointments(t)[0]
	assert.Equal(t, "team", *stored.ExternalCalendarID)
	assert.Equal(t, "evt123", *stored.ExternalEventID)
}

func TestPushTarget(t *testing.T) {
	evt, team := "evt1", "team"
	cases := []struct {
		name      string
		appt      appointments.Appointment
		requested string
		want      string
	}{
		{"new, no request", appointments.Appointment{}, "", DefaultCalendarID},
		{"new, requested", appointments.Appointment{}, "team", "team"},
		{"unlinked with stored calendar", appointments.Appointment{ExternalCalendarID: &team}, "", "team"},
		{"linked keeps stored", appointments.Appointment{ExternalEventID: &evt, ExternalCalendarID: &team}, "primary", "team"},
		{"linked without stored calendar", appointments.Appointment{ExternalEventID: &evt}, "other", "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pushTarget(&tc.appt, tc.requested))
		})
	}
}

func TestPushToRemote_RemoteFailureLeavesLocalState(t *testing.T) {
	f := newFixture(t, true)
	f.remote.writeErr = errors.New("rate limit exceeded")
	appt, err := appointments.NewAppointmentService(f.db).Create(appointments.CreateAppointmentRequest{
		Title: "Tasting", StartTime: time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = f.engine.PushToRemote(context.Background(), "default", appt.ID.String(), "team")
	var ext *apperr.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Contains(t, ext.Error(), "rate limit exceeded")

	stored := f.localAppointments(t)[0]
	assert.Nil(t, stored.ExternalEventID)
	assert.Nil(t, stored.ExternalCalendarID)
	assert.False(t, stored.IsSynced)
	assert.Nil(t, stored.LastSyncedAt)
}

func TestPushToRemote_UnknownAppointment(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.engine.PushToRemote(context.Background(), "default", "3b241101-e2bb-4255-8caf-4136c566a962", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRemoteEvent_UnlinksAppointment(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	appt, err := appointments.NewAppointmentService(f.db).Create(appointments.CreateAppointmentRequest{
		Title: "Tasting", StartTime: time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	err = f.engine.DeleteRemoteEvent(ctx, "default", appt.ID.String())
	assert.ErrorIs(t, err, apperr.ErrNotFound, "nothing linked yet")

	_, err = f.engine.PushToRemote(ctx, "default", appt.ID.String(), "")
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteRemoteEvent(ctx, "default", appt.ID.String()))
	assert.Equal(t, 1, f.remote.deletes)
	assert.Empty(t, f.remote.events["primary"])

	stored := f.localAppointments(t)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].ExternalEventID)
	assert.False(t, stored[0].IsSynced)
}

func TestGetCalendar(t *testing.T) {
	f := newFixture(t, true)
	cal, err := f.engine.GetCalendar(context.Background(), "default", "primary")
	require.NoError(t, err)
	assert.Equal(t, "Shop", cal.Summary)

	_, err = f.engine.GetCalendar(context.Background(), "default", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncEvents_ConcurrentRunsDoNotDuplicate(t *testing.T) {
	f := newFixture(t, true)
	for _, id := range []string{"a", "b", "c", "d"} {
		f.remote.add("primary", timed(id, id, "2026-03-02T09:00:00Z", ""))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.SyncEvents(context.Background(), "default", SyncOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, f.localAppointments(t), 4)
}

func TestUserLocks_ReleaseEntries(t *testing.T) {
	l := newUserLocks()
	unlockA := l.lock("a")
	unlockB := l.lock("b")
	assert.Len(t, l.locks, 2)

	unlockA()
	unlockB()
	assert.Empty(t, l.locks)
}
