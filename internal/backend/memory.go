package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/calendar_sync/internal/model"
	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
)

// MemoryBackend хранит события в памяти процесса.
// Используется для локального запуска без Google и в тестах
type MemoryBackend struct {
	mu      sync.RWMutex
	events  map[string]*calendar.Event
	baseURL string
}

func NewMemoryBackend(baseURL string) *MemoryBackend {
	return &MemoryBackend{
		events:  make(map[string]*calendar.Event),
		baseURL: baseURL,
	}
}

func (m *MemoryBackend) TestConnection(ctx context.Context) bool {
	return ctx.Err() == nil
}

func (m *MemoryBackend) CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := eventStart(event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	stored := cloneEvent(event)
	stored.Id = uuid.NewString()
	stored.HtmlLink = eventLink(m.baseURL, stored.Id)
	stored.Status = "confirmed"

	m.mu.Lock()
	m.events[stored.Id] = stored
	m.mu.Unlock()

	return cloneEvent(stored), nil
}

func (m *MemoryBackend) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.events[eventID]
	if !ok {
		return nil, fmt.Errorf("get event %q: %w", eventID, ErrNotFound)
	}
	return cloneEvent(event), nil
}

func (m *MemoryBackend) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type entry struct {
		start time.Time
		event *calendar.Event
	}

	m.mu.RLock()
	entries := make([]entry, 0, len(m.events))
	for _, event := range m.events {
		start, err := eventStart(event)
		if err != nil {
			continue
		}
		if start.Before(timeMin) || !start.Before(timeMax) {
			continue
		}
		entries = append(entries, entry{start: start, event: cloneEvent(event)})
	}
	m.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].start.Before(entries[j].start)
	})

	limit := normalizeMaxResults(maxResults)
	result := make([]*calendar.Event, 0, len(entries))
	for _, e := range entries {
		if int64(len(result)) >= limit {
			break
		}
		result = append(result, e.event)
	}

	return result, nil
}

func (m *MemoryBackend) UpdateEvent(ctx context.Context, eventID string, event *calendar.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if eventID == "" {
		return fmt.Errorf("update event without id: %w", ErrInvalidEvent)
	}
	if _, err := eventStart(event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; !ok {
		return fmt.Errorf("update event %q: %w", eventID, ErrNotFound)
	}

	stored := cloneEvent(event)
	stored.Id = eventID
	stored.HtmlLink = eventLink(m.baseURL, eventID)
	stored.Status = "confirmed"
	m.events[eventID] = stored

	return nil
}

func (m *MemoryBackend) DeleteEvent(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; !ok {
		return fmt.Errorf("delete event %q: %w", eventID, ErrNotFound)
	}
	delete(m.events, eventID)

	return nil
}

func eventStart(event *calendar.Event) (time.Time, error) {
	if event == nil {
		return time.Time{}, model.ErrMissingTime
	}
	return model.ParseEventDateTime(event.Start, time.UTC)
}

func eventLink(baseURL, eventID string) string {
	return baseURL + "/appointments/" + eventID
}

func cloneEvent(event *calendar.Event) *calendar.Event {
	out := *event
	if event.Start != nil {
		start := *event.Start
		out.Start = &start
	}
	if event.End != nil {
		end := *event.End
		out.End = &end
	}
	if event.ExtendedProperties != nil {
		props := &calendar.EventExtendedProperties{}
		if event.ExtendedProperties.Private != nil {
			props.Private = make(map[string]string, len(event.ExtendedProperties.Private))
			for k, v := range event.ExtendedProperties.Private {
				props.Private[k] = v
			}
		}
		if event.ExtendedProperties.Shared != nil {
			props.Shared = make(map[string]string, len(event.ExtendedProperties.Shared))
			for k, v := range event.ExtendedProperties.Shared {
				props.Shared[k] = v
			}
		}
		out.ExtendedProperties = props
	}
	return &out
}
