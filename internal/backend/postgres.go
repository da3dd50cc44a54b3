package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/calendar_sync/internal/model"
	"github.com/Freeeeeet/calendar_sync/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

// EventStore - хранилище строк календаря (repository.EventRepository)
type EventStore interface {
	Create(ctx context.Context, event *model.StoredEvent) error
	GetByID(ctx context.Context, calendarID, id string) (*model.StoredEvent, error)
	ListByStartRange(ctx context.Context, calendarID string, from, to time.Time, limit int64) ([]*model.StoredEvent, error)
	Update(ctx context.Context, event *model.StoredEvent) error
	Delete(ctx context.Context, calendarID, id string) error
	Ping(ctx context.Context) error
}

// PostgresBackend - собственный календарь в Postgres вместо Google
type PostgresBackend struct {
	store      EventStore
	calendarID string
	baseURL    string
	logger     *zap.Logger
}

func NewPostgresBackend(store EventStore, calendarID, baseURL string, logger *zap.Logger) *PostgresBackend {
	return &PostgresBackend{
		store:      store,
		calendarID: calendarID,
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (p *PostgresBackend) TestConnection(ctx context.Context) bool {
	if err := p.store.Ping(ctx); err != nil {
		p.logger.Error("Database connection test failed", zap.Error(err))
		return false
	}
	return true
}

func (p *PostgresBackend) CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	row, err := p.toStored(uuid.NewString(), event)
	if err != nil {
		return nil, err
	}

	if err := p.store.Create(ctx, row); err != nil {
		p.logger.Error("Failed to store event", zap.String("summary", event.Summary), zap.Error(err))
		return nil, fmt.Errorf("insert event: %w", err)
	}

	p.logger.Info("Event created", zap.String("event_id", row.ID), zap.String("summary", row.Summary))
	return p.fromStored(row), nil
}

func (p *PostgresBackend) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	row, err := p.store.GetByID(ctx, p.calendarID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("get event %q: %w", eventID, ErrNotFound)
	}
	return p.fromStored(row), nil
}

func (p *PostgresBackend) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	rows, err := p.store.ListByStartRange(ctx, p.calendarID, timeMin, timeMax, normalizeMaxResults(maxResults))
	if err != nil {
		p.logger.Error("Failed to list events", zap.Error(err))
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]*calendar.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, p.fromStored(row))
	}
	return events, nil
}

func (p *PostgresBackend) UpdateEvent(ctx context.Context, eventID string, event *calendar.Event) error {
	if eventID == "" {
		return fmt.Errorf("update event without id: %w", ErrInvalidEvent)
	}

	row, err := p.toStored(eventID, event)
	if err != nil {
		return err
	}

	if err := p.store.Update(ctx, row); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("update event %q: %w", eventID, ErrNotFound)
		}
		return fmt.Errorf("update event: %w", err)
	}

	p.logger.Info("Event updated", zap.String("event_id", eventID))
	return nil
}

func (p *PostgresBackend) DeleteEvent(ctx context.Context, eventID string) error {
	if err := p.store.Delete(ctx, p.calendarID, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete event %q: %w", eventID, ErrNotFound)
		}
		return fmt.Errorf("delete event: %w", err)
	}

	p.logger.Info("Event deleted", zap.String("event_id", eventID))
	return nil
}

func (p *PostgresBackend) toStored(id string, event *calendar.Event) (*model.StoredEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}

	start, end, allDay, err := storedSpan(event)
	if err != nil {
		return nil, err
	}

	row := &model.StoredEvent{
		ID:            id,
		CalendarID:    p.calendarID,
		Summary:       event.Summary,
		Description:   event.Description,
		Location:      event.Location,
		StartTime:     start,
		EndTime:       end,
		AllDay:        allDay,
		StartTimezone: event.Start.TimeZone,
		EndTimezone:   event.End.TimeZone,
		ColorID:       event.ColorId,
	}
	if event.ExtendedProperties != nil {
		row.Properties = event.ExtendedProperties.Private
	}
	return row, nil
}

func (p *PostgresBackend) fromStored(row *model.StoredEvent) *calendar.Event {
	event := &calendar.Event{
		Id:          row.ID,
		HtmlLink:    eventLink(p.baseURL, row.ID),
		Status:      "confirmed",
		Summary:     row.Summary,
		Description: row.Description,
		Location:    row.Location,
		ColorId:     row.ColorID,
		Start:       storedDateTime(row.StartTime, row.StartTimezone, row.AllDay),
		End:         storedDateTime(row.EndTime, row.EndTimezone, row.AllDay),
		Created:     row.CreatedAt.Format(time.RFC3339),
		Updated:     row.UpdatedAt.Format(time.RFC3339),
	}
	if len(row.Properties) > 0 {
		event.ExtendedProperties = &calendar.EventExtendedProperties{Private: row.Properties}
	}
	return event
}

// storedSpan переводит start/end в колонки таблицы.
// События на весь день хранятся полуночью своих дат в зоне события (или UTC)
func storedSpan(event *calendar.Event) (start, end time.Time, allDay bool, err error) {
	if event.Start == nil || event.End == nil {
		return start, end, false, fmt.Errorf("%w: %v", ErrInvalidEvent, model.ErrMissingTime)
	}

	startIsDate := event.Start.DateTime == "" && event.Start.Date != ""
	endIsDate := event.End.DateTime == "" && event.End.Date != ""
	if startIsDate != endIsDate {
		return start, end, false, fmt.Errorf("%w: start and end must both be dates or both be date-times", ErrInvalidEvent)
	}

	if startIsDate {
		loc := zoneOrUTC(event.Start.TimeZone)
		if start, err = time.ParseInLocation(dateLayout, event.Start.Date, loc); err != nil {
			return start, end, false, fmt.Errorf("%w: start: %v", ErrInvalidEvent, err)
		}
		if end, err = time.ParseInLocation(dateLayout, event.End.Date, loc); err != nil {
			return start, end, false, fmt.Errorf("%w: end: %v", ErrInvalidEvent, err)
		}
		return start, end, true, nil
	}

	if start, err = model.ParseEventDateTime(event.Start, time.UTC); err != nil {
		return start, end, false, fmt.Errorf("%w: start: %v", ErrInvalidEvent, err)
	}
	if end, err = model.ParseEventDateTime(event.End, time.UTC); err != nil {
		return start, end, false, fmt.Errorf("%w: end: %v", ErrInvalidEvent, err)
	}
	return start, end, false, nil
}

const dateLayout = "2006-01-02"

func zoneOrUTC(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// storedDateTime возвращает время в исходной зоне события, если она известна
func storedDateTime(t time.Time, tz string, allDay bool) *calendar.EventDateTime {
	t = t.In(zoneOrUTC(tz))
	if allDay {
		return &calendar.EventDateTime{Date: t.Format(dateLayout), TimeZone: tz}
	}
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: tz,
	}
}
