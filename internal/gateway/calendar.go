package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// EventFetcher lists the user's calendar events.
type EventFetcher interface {
	FetchEvents(ctx context.Context, from, to time.Time) ([]domain.RawActivityRecord, error)
}

// CalendarGateway reads the primary Google Calendar.
type CalendarGateway struct {
	service *calendar.Service
	loc     *time.Location
	logger  *log.Logger
}

var _ EventFetcher = &CalendarGateway{}

func NewCalendarGateway(ctx context.Context, loc *time.Location, logger *log.Logger, opts ...option.ClientOption) (*CalendarGateway, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarGateway{service: svc, loc: loc, logger: logger}, nil
}

// FetchEvents returns single events in [from, to) ordered by start time.
// Working-location entries and events the user declined are skipped.
func (g *CalendarGateway) FetchEvents(ctx context.Context, from, to time.Time) ([]domain.RawActivityRecord, error) {
	g.logger.Println("Fetching calendar events...")
	var records []domain.RawActivityRecord
	call := g.service.Events.List("primary").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, ev := range page.Items {
			if ev.EventType == "workingLocation" || !attending(ev) {
				continue
			}
			start, err := g.eventTime(ev.Start)
			if err != nil {
				g.logger.Printf("  Skipping event %q: %v", ev.Summary, err)
				continue
			}
			end, err := g.eventTime(ev.End)
			if err != nil {
				g.logger.Printf("  Skipping event %q: %v", ev.Summary, err)
				continue
			}
			records = append(records, domain.RawActivityRecord{
				Source:     domain.SourceEvent,
				Title:      ev.Summary,
				Start:      start,
				End:        end,
				ExternalID: ev.Id,
				URL:        ev.HtmlLink,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	g.logger.Printf("Completed fetching %d calendar events.", len(records))
	return records, nil
}

// attending is false only when the user is an attendee who declined or tentatively answered.
func attending(ev *calendar.Event) bool {
	for _, a := range ev.Attendees {
		if a.Self {
			return a.ResponseStatus == "" || a.ResponseStatus == "accepted" || a.ResponseStatus == "needsAction"
		}
	}
	return true
}

func (g *CalendarGateway) eventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.In(g.loc), nil
	}
	return time.ParseInLocation("2006-01-02", t.Date, g.loc)
}
