package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

// fakeCalendar is an in-memory remote calendar. Events are kept per
// calendar id in insertion order.
type fakeCalendar struct {
	mu        sync.Mutex
	events    map[string][]*gcal.Event
	nextID    int
	inserts   int
	updates   int
	deletes   int
	lastCalID string
	listErr   error
	writeErr  error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string][]*gcal.Event{}}
}

func (f *fakeCalendar) factory() ClientFactory {
	return func(context.Context, *oauth2.Token) (EventsClient, error) { return f, nil }
}

func (f *fakeCalendar) add(calendarID string, ev *gcal.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID] = append(f.events[calendarID], ev)
}

func (f *fakeCalendar) ListEvents(_ context.Context, calendarID string, _, _ time.Time) ([]*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*gcal.Event, 0, len(f.events[calendarID]))
	for _, ev := range f.events[calendarID] {
		cp := *ev
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, calendarID string, ev *gcal.Event) (*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCalID = calendarID
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.inserts++
	f.nextID++
	cp := *ev
	cp.Id = fmt.Sprintf("evt-%d", f.nextID)
	cp.HtmlLink = "https://calendar.example/" + cp.Id
	f.events[calendarID] = append(f.events[calendarID], &cp)
	return &cp, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, calendarID, eventID string, ev *gcal.Event) (*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCalID = calendarID
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.updates++
	for i, existing := range f.events[calendarID] {
		if existing.Id == eventID {
			cp := *ev
			cp.Id = eventID
			cp.HtmlLink = "https://calendar.example/" + eventID
			f.events[calendarID][i] = &cp
			return &cp, nil
		}
	}
	return nil, apperr.External("google_calendar", "events.update", errors.New("404 not found"))
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCalID = calendarID
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deletes++
	kept := f.events[calendarID][:0]
	for _, ev := range f.events[calendarID] {
		if ev.Id != eventID {
			kept = append(kept, ev)
		}
	}
	f.events[calendarID] = kept
	return nil
}

func (f *fakeCalendar) GetCalendar(_ context.Context, calendarID string) (*gcal.Calendar, error) {
	if calendarID == "missing" {
		return nil, apperr.NotFound("calendar", calendarID)
	}
	return &gcal.Calendar{Id: calendarID, Summary: "Shop", TimeZone: "Europe/Paris"}, nil
}
