package calendar

import (
	"context"
	"fmt"
	"time"

	googleauth "github.com/mklimuk/orbit/pkg/integration/google"
	gcal "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// Event is an all-day calendar event marking a task deadline.
type Event struct {
	Summary     string
	Description string
	Date        time.Time
}

// CalendarAPI is the interface used by Syncer for testability.
type CalendarAPI interface {
	CreateEvent(ctx context.Context, e Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, e Event) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Service wraps the Google Calendar API.
type Service struct {
	srv        *gcal.Service
	calendarID string
}

// NewService creates a new Calendar service using service account credentials.
func NewService(ctx context.Context, credentialsFile, calendarID string) (*Service, error) {
	opt, err := googleauth.ClientOption(ctx, credentialsFile, gcal.CalendarEventsScope)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Service{srv: srv, calendarID: calendarID}, nil
}

// CreateEvent creates a new event and returns its ID.
func (s *Service) CreateEvent(ctx context.Context, e Event) (string, error) {
	created, err := s.srv.Events.Insert(s.calendarID, toGCalEvent(e)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent updates an existing event by ID.
func (s *Service) UpdateEvent(ctx context.Context, eventID string, e Event) error {
	_, err := s.srv.Events.Update(s.calendarID, eventID, toGCalEvent(e)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event by ID.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.srv.Events.Delete(s.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// toGCalEvent maps e onto an all-day event; the end date is exclusive.
func toGCalEvent(e Event) *gcal.Event {
	return &gcal.Event{
		Summary:      e.Summary,
		Description:  e.Description,
		Transparency: "transparent",
		Start:        &gcal.EventDateTime{Date: e.Date.Format(dateLayout)},
		End:          &gcal.EventDateTime{Date: e.Date.AddDate(0, 0, 1).Format(dateLayout)},
	}
}
