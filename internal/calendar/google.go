package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleStore implements Store on top of a single Google Calendar.
// Reservation tags are persisted as private extended properties, which
// round-trip string-keyed metadata exactly.
type GoogleStore struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleStore authenticates with a service-account credentials file and
// binds to the given calendar.
func NewGoogleStore(ctx context.Context, credentialsFile, calendarID string) (*GoogleStore, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return &GoogleStore{svc: svc, calendarID: calendarID}, nil
}

func (g *GoogleStore) ListBusyIntervals(ctx context.Context, dayStart, dayEnd time.Time) ([]BusyInterval, error) {
	events, err := g.svc.Events.List(g.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var busy []BusyInterval
	for _, ev := range events.Items {
		if ev.Status == "cancelled" {
			continue
		}
		interval, ok := eventInterval(ev)
		if !ok {
			continue
		}
		busy = append(busy, interval)
	}
	return busy, nil
}

func (g *GoogleStore) CreateCommitment(ctx context.Context, title string, start, end time.Time, metadata map[string]string) (string, error) {
	ev := &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: metadata,
		},
	}
	created, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleStore) FindCommitmentsByTag(ctx context.Context, tagKey, tagValue string, searchStart, searchEnd time.Time) ([]Commitment, error) {
	events, err := g.svc.Events.List(g.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", tagKey, tagValue)).
		TimeMin(searchStart.Format(time.RFC3339)).
		TimeMax(searchEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("find events by tag: %w", err)
	}

	var out []Commitment
	for _, ev := range events.Items {
		if ev.Status == "cancelled" {
			continue
		}
		interval, ok := eventInterval(ev)
		if !ok {
			continue
		}
		c := Commitment{
			StoredID: ev.Id,
			Title:    ev.Summary,
			Start:    interval.Start,
			End:      interval.End,
			Metadata: map[string]string{},
		}
		if ev.ExtendedProperties != nil {
			for k, v := range ev.ExtendedProperties.Private {
				c.Metadata[k] = v
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (g *GoogleStore) DeleteCommitment(ctx context.Context, storedID string) error {
	if err := g.svc.Events.Delete(g.calendarID, storedID).Context(ctx).Do(); err != nil {
		if isGoneErr(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (g *GoogleStore) UpdateCommitmentTime(ctx context.Context, storedID string, start, end time.Time) error {
	patch := &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:   &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	if _, err := g.svc.Events.Patch(g.calendarID, storedID, patch).Context(ctx).Do(); err != nil {
		if isGoneErr(err) {
			return ErrNotFound
		}
		return fmt.Errorf("patch event time: %w", err)
	}
	return nil
}

func (g *GoogleStore) SetCommitmentMetadata(ctx context.Context, storedID string, metadata map[string]string) error {
	// Patch semantics merge private extended property keys.
	patch := &gcal.Event{
		ExtendedProperties: &gcal.EventExtendedProperties{Private: metadata},
	}
	if _, err := g.svc.Events.Patch(g.calendarID, storedID, patch).Context(ctx).Do(); err != nil {
		if isGoneErr(err) {
			return ErrNotFound
		}
		return fmt.Errorf("patch event metadata: %w", err)
	}
	return nil
}

func eventInterval(ev *gcal.Event) (BusyInterval, bool) {
	if ev.Start == nil || ev.End == nil {
		return BusyInterval{}, false
	}
	// All-day events carry Date instead of DateTime and block the whole day.
	if ev.Start.DateTime == "" {
		start, err1 := time.Parse("2006-01-02", ev.Start.Date)
		end, err2 := time.Parse("2006-01-02", ev.End.Date)
		if err1 != nil || err2 != nil {
			return BusyInterval{}, false
		}
		return BusyInterval{Start: start, End: end}, true
	}
	start, err1 := time.Parse(time.RFC3339, ev.Start.DateTime)
	end, err2 := time.Parse(time.RFC3339, ev.End.DateTime)
	if err1 != nil || err2 != nil {
		return BusyInterval{}, false
	}
	return BusyInterval{Start: start, End: end}, true
}

func isGoneErr(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 404 || gerr.Code == 410
	}
	return false
}
