package model

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

// DefaultTimezone используется, если у события не задана таймзона
const DefaultTimezone = "America/Mexico_City"

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrNotAppointment  = errors.New("event is not an appointment")
	ErrMissingTime     = errors.New("event has no start or end time")
)

// CalendarEventRenderer - всё, что можно отправить в календарный бэкенд
type CalendarEventRenderer interface {
	ToCalendarEvent() *calendar.Event
}

// Event - обычное событие календаря.
// EventID и HTMLLink пустые, пока событие не сохранено бэкендом
type Event struct {
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Timezone    string    `json:"timezone"`
	EventID     string    `json:"event_id,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

// NewEvent создаёт событие с таймзоной по умолчанию
func NewEvent(title string, start, end time.Time) *Event {
	return &Event{
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Timezone:  DefaultTimezone,
	}
}

func (e *Event) String() string {
	return fmt.Sprintf("%s (%s - %s)", e.Title, e.StartTime, e.EndTime)
}

// ToCalendarEvent преобразует событие в формат Google Calendar.
// Пустая локация в payload не попадает
func (e *Event) ToCalendarEvent() *calendar.Event {
	tz := e.timezone()

	return &calendar.Event{
		Summary:     e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       eventDateTime(e.StartTime, tz),
		End:         eventDateTime(e.EndTime, tz),
	}
}

// SetIdentity сохраняет идентификатор и ссылку после успешного создания
func (e *Event) SetIdentity(eventID, htmlLink string) {
	e.EventID = eventID
	e.HTMLLink = htmlLink
}

// Persisted возвращает true, если бэкенд уже присвоил идентификатор
func (e *Event) Persisted() bool {
	return e.EventID != ""
}

func (e *Event) timezone() string {
	if e.Timezone == "" {
		return DefaultTimezone
	}
	return e.Timezone
}

func eventDateTime(t time.Time, tz string) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: tz,
	}
}

// ValidateTimezone проверяет, что имя таймзоны известно
func ValidateTimezone(name string) error {
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidTimezone, name, err)
	}
	return nil
}

// ParseEventDateTime разбирает start/end, пришедшие из бэкенда.
// Для событий на весь день (только Date) возвращается полночь в таймзоне
// значения, либо в fallback
func ParseEventDateTime(edt *calendar.EventDateTime, fallback *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, ErrMissingTime
	}

	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse dateTime %q: %w", edt.DateTime, err)
		}
		return t, nil
	}

	if edt.Date != "" {
		loc := fallback
		if edt.TimeZone != "" {
			if l, err := time.LoadLocation(edt.TimeZone); err == nil {
				loc = l
			}
		}
		if loc == nil {
			loc = time.UTC
		}
		t, err := time.ParseInLocation("2006-01-02", edt.Date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", edt.Date, err)
		}
		return t, nil
	}

	return time.Time{}, ErrMissingTime
}
