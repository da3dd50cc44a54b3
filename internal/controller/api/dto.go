package api

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Freeeeeet/calendar_sync/internal/model"
	"google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// поддерживаемые форматы времени без смещения, трактуются в зоне бизнеса
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type createAppointmentRequest struct {
	ClientName      string `json:"client_name" binding:"required,min=1,max=100"`
	PhoneNumber     string `json:"phone_number" binding:"required,min=10,max=20"`
	ServiceType     string `json:"service_type" binding:"required,min=1,max=200"`
	StartTime       string `json:"start_time" binding:"required"`
	EndTime         string `json:"end_time" binding:"required"`
	AdditionalNotes string `json:"additional_notes" binding:"max=500"`
	Timezone        string `json:"timezone"`
}

type rescheduleRequest struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type notesRequest struct {
	AdditionalNotes string `json:"additional_notes" binding:"max=500"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type appointmentResponse struct {
	EventID         string    `json:"event_id"`
	Title           string    `json:"title"`
	ClientName      string    `json:"client_name"`
	PhoneNumber     string    `json:"phone_number"`
	ServiceType     string    `json:"service_type"`
	AdditionalNotes string    `json:"additional_notes"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Timezone        string    `json:"timezone"`
	EventLink       string    `json:"event_link"`
}

// eventResponse - событие, которое не удалось разобрать как запись
type eventResponse struct {
	EventID   string `json:"event_id"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	EventLink string `json:"event_link"`
}

func newAppointmentResponse(a *model.AppointmentEvent) appointmentResponse {
	return appointmentResponse{
		EventID:         a.EventID,
		Title:           a.Title,
		ClientName:      a.ClientName,
		PhoneNumber:     a.PhoneNumber,
		ServiceType:     a.ServiceType,
		AdditionalNotes: a.AdditionalNotes,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Timezone:        a.Timezone,
		EventLink:       a.HTMLLink,
	}
}

func newEventItems(events []*calendar.Event, timezone string) []any {
	items := make([]any, 0, len(events))
	for _, ev := range events {
		if a, err := model.AppointmentFromCalendarEvent(ev, timezone); err == nil {
			items = append(items, newAppointmentResponse(a))
			continue
		}
		item := eventResponse{EventID: ev.Id, Title: ev.Summary, EventLink: ev.HtmlLink}
		if ev.Start != nil {
			item.StartTime = ev.Start.DateTime + ev.Start.Date
		}
		if ev.End != nil {
			item.EndTime = ev.End.DateTime + ev.End.Date
		}
		items = append(items, item)
	}
	return items
}

// parseTime принимает RFC 3339 или локальное время без смещения
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected RFC 3339 or YYYY-MM-DDTHH:MM", value)
}

// parseDate разбирает YYYY-MM-DD, пустое значение - сегодня
func parseDate(value string, loc *time.Location, now time.Time) (time.Time, error) {
	if value == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// validateSpan: конец после начала, начало не в прошлом
func validateSpan(start, end, now time.Time) error {
	if !end.After(start) {
		return errors.New("end_time must be after start_time")
	}
	if start.Before(now) {
		return errors.New("start_time cannot be in the past")
	}
	return nil
}

func validatePhone(phone string) error {
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < 10 {
		return errors.New("phone_number must contain at least 10 digits")
	}
	return nil
}
