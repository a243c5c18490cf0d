package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const calendarProvider = "google_calendar"

// CalendarClient is a thin adapter over the Calendar v3 events and
// calendars resources. Every failure is an *apperr.ExternalServiceError.
type CalendarClient struct {
	svc *gcal.Service
}

// NewCalendarClient authenticates with tok. Extra options are appended, so
// tests can point the client at a local endpoint.
func NewCalendarClient(ctx context.Context, tok *oauth2.Token, opts ...option.ClientOption) (*CalendarClient, error) {
	if tok == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	all := append([]option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(tok))}, opts...)
	svc, err := gcal.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{svc: svc}, nil
}

// ListEvents returns every event instance in [timeMin, timeMax], recurring
// events expanded, ordered by start time. All pages are fetched.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*gcal.Event, error) {
	var events []*gcal.Event
	err := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Pages(ctx, func(page *gcal.Events) error {
			events = append(events, page.Items...)
			return nil
		})
	if err != nil {
		return nil, apperr.External(calendarProvider, "events.list", err)
	}
	return events, nil
}

func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, ev *gcal.Event) (*gcal.Event, error) {
	created, err := c.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, apperr.External(calendarProvider, "events.insert", err)
	}
	return created, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, calendarID, eventID string, ev *gcal.Event) (*gcal.Event, error) {
	updated, err := c.svc.Events.Update(calendarID, eventID, ev).Context(ctx).Do()
	if err != nil {
		return nil, apperr.External(calendarProvider, "events.update", err)
	}
	return updated, nil
}

// DeleteEvent removes an event. An event that is already gone counts as deleted.
func (c *CalendarClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err == nil || isGone(err) {
		return nil
	}
	return apperr.External(calendarProvider, "events.delete", err)
}

func (c *CalendarClient) GetCalendar(ctx context.Context, calendarID string) (*gcal.Calendar, error) {
	cal, err := c.svc.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil, apperr.NotFound("calendar", calendarID)
		}
		return nil, apperr.External(calendarProvider, "calendars.get", err)
	}
	return cal, nil
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
}
