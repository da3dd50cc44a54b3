package backend

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/calendar/v3"
)

// DefaultMaxResults - лимит событий в одном запросе списка
const DefaultMaxResults int64 = 250

var (
	ErrNotFound     = errors.New("event not found")
	ErrUnauthorized = errors.New("calendar access denied")
	ErrInvalidEvent = errors.New("invalid event")
)

// Backend - календарь, в котором хранятся записи.
// Все реализации работают с одним календарём, заданным при создании
type Backend interface {
	// TestConnection никогда не возвращает ошибку: недоступность = false
	TestConnection(ctx context.Context) bool

	// CreateEvent возвращает созданное событие с Id и HtmlLink
	CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)

	GetEvent(ctx context.Context, eventID string) (*calendar.Event, error)

	// ListEvents возвращает события с началом в [timeMin, timeMax),
	// отсортированные по времени начала, повторяющиеся события развёрнуты
	ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error)

	UpdateEvent(ctx context.Context, eventID string, event *calendar.Event) error

	DeleteEvent(ctx context.Context, eventID string) error
}

func normalizeMaxResults(n int64) int64 {
	if n <= 0 {
		return DefaultMaxResults
	}
	return n
}
