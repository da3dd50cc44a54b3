package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleBackend работает с Google Calendar через сервисный аккаунт
type GoogleBackend struct {
	service    *calendar.Service
	calendarID string
	logger     *zap.Logger
}

// NewGoogleBackend читает ключ сервисного аккаунта и создаёт клиент Calendar API
func NewGoogleBackend(ctx context.Context, serviceAccountFile, calendarID string, logger *zap.Logger) (*GoogleBackend, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	return NewGoogleBackendWithOptions(ctx, calendarID, logger, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

// NewGoogleBackendWithOptions создаёт бэкенд с произвольными опциями клиента
// (например, другой endpoint в тестах)
func NewGoogleBackendWithOptions(ctx context.Context, calendarID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleBackend, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	logger.Info("Google Calendar service initialized", zap.String("calendar_id", calendarID))

	return &GoogleBackend{
		service:    service,
		calendarID: calendarID,
		logger:     logger,
	}, nil
}

// CalendarInfo возвращает метаданные календаря
func (g *GoogleBackend) CalendarInfo(ctx context.Context) (*calendar.Calendar, error) {
	cal, err := g.service.Calendars.Get(g.calendarID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", classify(err))
	}
	return cal, nil
}

func (g *GoogleBackend) TestConnection(ctx context.Context) bool {
	cal, err := g.CalendarInfo(ctx)
	if err != nil {
		g.logger.Error("Calendar connection test failed", zap.Error(err))
		return false
	}

	g.logger.Info("Connected to calendar", zap.String("summary", cal.Summary))
	return true
}

func (g *GoogleBackend) CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	created, err := g.service.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		g.logger.Error("Failed to create event", zap.String("summary", event.Summary), zap.Error(err))
		return nil, fmt.Errorf("insert event: %w", classify(err))
	}

	g.logger.Info("Event created",
		zap.String("event_id", created.Id),
		zap.String("summary", created.Summary),
	)
	return created, nil
}

func (g *GoogleBackend) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	if eventID == "" {
		return nil, fmt.Errorf("get event: %w", ErrNotFound)
	}

	event, err := g.service.Events.Get(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get event: %w", classify(err))
	}
	// отменённые события API продолжает отдавать по id
	if event.Status == "cancelled" {
		return nil, fmt.Errorf("get event: %w", ErrNotFound)
	}
	return event, nil
}

func (g *GoogleBackend) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	events, err := g.service.Events.List(g.calendarID).
		TimeMin(timeMin.Format(time.RFC3339Nano)).
		TimeMax(timeMax.Format(time.RFC3339Nano)).
		MaxResults(normalizeMaxResults(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		g.logger.Error("Failed to list events", zap.Error(err))
		return nil, fmt.Errorf("list events: %w", classify(err))
	}

	g.logger.Debug("Events retrieved", zap.Int("count", len(events.Items)))
	return events.Items, nil
}

func (g *GoogleBackend) UpdateEvent(ctx context.Context, eventID string, event *calendar.Event) error {
	if eventID == "" {
		return fmt.Errorf("update event without id: %w", ErrInvalidEvent)
	}

	_, err := g.service.Events.Update(g.calendarID, eventID, event).Context(ctx).Do()
	if err != nil {
		g.logger.Error("Failed to update event", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("update event: %w", classify(err))
	}

	g.logger.Info("Event updated", zap.String("event_id", eventID))
	return nil
}

func (g *GoogleBackend) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("delete event: %w", ErrNotFound)
	}

	err := g.service.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		g.logger.Error("Failed to delete event", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("delete event: %w", classify(err))
	}

	g.logger.Info("Event deleted", zap.String("event_id", eventID))
	return nil
}

// classify сопоставляет ответы API с ошибками пакета
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	default:
		return err
	}
}
