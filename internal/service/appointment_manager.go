package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/calendar_sync/internal/backend"
	"github.com/Freeeeeet/calendar_sync/internal/model"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

// BusinessHours - настройки расписания бизнеса
type BusinessHours struct {
	Timezone        string
	StartHour       int
	EndHour         int
	DefaultDuration time.Duration
}

// DefaultBusinessHours - 9:00-18:00, слоты по часу
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		Timezone:        model.DefaultTimezone,
		StartHour:       9,
		EndHour:         18,
		DefaultDuration: time.Hour,
	}
}

// Notifier получает уведомления об изменениях записей.
// Ошибки доставки обрабатывает сам и не возвращает
type Notifier interface {
	AppointmentCreated(ctx context.Context, appointment *model.AppointmentEvent)
	AppointmentCancelled(ctx context.Context, eventID string)
	AppointmentRescheduled(ctx context.Context, appointment *model.AppointmentEvent)
}

type noopNotifier struct{}

func (noopNotifier) AppointmentCreated(context.Context, *model.AppointmentEvent)     {}
func (noopNotifier) AppointmentCancelled(context.Context, string)                    {}
func (noopNotifier) AppointmentRescheduled(context.Context, *model.AppointmentEvent) {}

// CreateAppointmentInput - данные новой записи. Пустой Timezone = зона бизнеса
type CreateAppointmentInput struct {
	ClientName      string
	PhoneNumber     string
	ServiceType     string
	StartTime       time.Time
	EndTime         time.Time
	AdditionalNotes string
	Timezone        string
}

// SlotOptions - параметры поиска свободных слотов
type SlotOptions struct {
	Duration  time.Duration
	StartHour int
	EndHour   int
}

// AppointmentManager управляет жизненным циклом записей и считает свободные слоты.
// Состояния не хранит, безопасен для конкурентного использования
type AppointmentManager struct {
	backend  backend.Backend
	hours    BusinessHours
	notifier Notifier
	logger   *zap.Logger
}

func NewAppointmentManager(b backend.Backend, hours BusinessHours, notifier Notifier, logger *zap.Logger) *AppointmentManager {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &AppointmentManager{
		backend:  b,
		hours:    hours,
		notifier: notifier,
		logger:   logger,
	}
}

// BusinessHours возвращает настройки, с которыми создан менеджер
func (m *AppointmentManager) BusinessHours() BusinessHours {
	return m.hours
}

// DefaultSlotOptions - параметры слотов из настроек бизнеса
func (m *AppointmentManager) DefaultSlotOptions() SlotOptions {
	return SlotOptions{
		Duration:  m.hours.DefaultDuration,
		StartHour: m.hours.StartHour,
		EndHour:   m.hours.EndHour,
	}
}

// CheckConnection проверяет доступность календаря
func (m *AppointmentManager) CheckConnection(ctx context.Context) bool {
	return m.backend.TestConnection(ctx)
}

// CreateAppointment создаёт запись в календаре и возвращает её с EventID и HTMLLink
func (m *AppointmentManager) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*model.AppointmentEvent, error) {
	const op = "create appointment"

	tz := in.Timezone
	if tz == "" {
		tz = m.hours.Timezone
	}

	appointment, err := model.NewAppointmentEvent(model.AppointmentDetails{
		ClientName:      in.ClientName,
		PhoneNumber:     in.PhoneNumber,
		ServiceType:     in.ServiceType,
		AdditionalNotes: in.AdditionalNotes,
	}, in.StartTime, in.EndTime, tz)
	if err != nil {
		return nil, validationError(op, err)
	}

	created, err := m.backend.CreateEvent(ctx, appointment.ToCalendarEvent())
	if err != nil {
		m.logger.Error("Failed to create appointment",
			zap.String("client", in.ClientName),
			zap.Error(err),
		)
		return nil, classify(op, err)
	}

	appointment.SetIdentity(created.Id, created.HtmlLink)

	m.logger.Info("✅ Appointment created",
		zap.String("event_id", created.Id),
		zap.String("client", in.ClientName),
		zap.Time("start", in.StartTime),
	)

	m.notifier.AppointmentCreated(ctx, appointment)
	return appointment, nil
}

// GetAppointmentsForDay возвращает записи, начинающиеся в дату date (в зоне date)
func (m *AppointmentManager) GetAppointmentsForDay(ctx context.Context, date time.Time) ([]*calendar.Event, error) {
	dayStart := startOfDay(date)
	dayEnd := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), 23, 59, 59, 999999000, dayStart.Location())

	events, err := m.listAppointments(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, classify("get appointments for day", err)
	}
	return events, nil
}

// GetAppointmentsForWeek возвращает записи за 7 дней начиная с startDate
func (m *AppointmentManager) GetAppointmentsForWeek(ctx context.Context, startDate time.Time) ([]*calendar.Event, error) {
	events, err := m.listAppointments(ctx, startDate, startDate.AddDate(0, 0, 7))
	if err != nil {
		return nil, classify("get appointments for week", err)
	}
	return events, nil
}

func (m *AppointmentManager) listAppointments(ctx context.Context, from, to time.Time) ([]*calendar.Event, error) {
	events, err := m.backend.ListEvents(ctx, from, to, backend.DefaultMaxResults)
	if err != nil {
		m.logger.Error("Failed to list appointments",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(err),
		)
		return nil, err
	}

	appointments := make([]*calendar.Event, 0, len(events))
	for _, ev := range events {
		if ev != nil && model.IsAppointmentTitle(ev.Summary) {
			appointments = append(appointments, ev)
		}
	}
	return appointments, nil
}

// GetAppointment возвращает запись по id
func (m *AppointmentManager) GetAppointment(ctx context.Context, eventID string) (*model.AppointmentEvent, error) {
	appointment, _, err := m.load(ctx, eventID)
	if err != nil {
		return nil, classify("get appointment", err)
	}
	return appointment, nil
}

// CancelAppointment удаляет запись из календаря
func (m *AppointmentManager) CancelAppointment(ctx context.Context, eventID string) error {
	const op = "cancel appointment"

	if eventID == "" {
		return &Error{Kind: KindNotFound, Op: op, Err: backend.ErrNotFound}
	}

	if err := m.backend.DeleteEvent(ctx, eventID); err != nil {
		m.logger.Error("Failed to cancel appointment", zap.String("event_id", eventID), zap.Error(err))
		return classify(op, err)
	}

	m.logger.Info("🗑 Appointment cancelled", zap.String("event_id", eventID))

	m.notifier.AppointmentCancelled(ctx, eventID)
	return nil
}

// RescheduleAppointment переносит запись, сохраняя данные клиента, заметки и зону
func (m *AppointmentManager) RescheduleAppointment(ctx context.Context, eventID string, newStart, newEnd time.Time) (*model.AppointmentEvent, error) {
	const op = "reschedule appointment"

	appointment, current, err := m.load(ctx, eventID)
	if err != nil {
		return nil, classify(op, err)
	}

	oldStart := appointment.StartTime
	appointment.Reschedule(newStart, newEnd)

	if err := m.backend.UpdateEvent(ctx, eventID, appointment.MergeInto(current)); err != nil {
		m.logger.Error("Failed to reschedule appointment", zap.String("event_id", eventID), zap.Error(err))
		return nil, classify(op, err)
	}

	m.logger.Info("🔄 Appointment rescheduled",
		zap.String("event_id", eventID),
		zap.Time("old_start", oldStart),
		zap.Time("new_start", newStart),
	)

	m.notifier.AppointmentRescheduled(ctx, appointment)
	return appointment, nil
}

// UpdateAppointmentNotes меняет заметки записи и сохраняет её
func (m *AppointmentManager) UpdateAppointmentNotes(ctx context.Context, eventID, notes string) (*model.AppointmentEvent, error) {
	const op = "update appointment notes"

	appointment, current, err := m.load(ctx, eventID)
	if err != nil {
		return nil, classify(op, err)
	}

	appointment.UpdateNotes(notes)

	if err := m.backend.UpdateEvent(ctx, eventID, appointment.MergeInto(current)); err != nil {
		m.logger.Error("Failed to update appointment notes", zap.String("event_id", eventID), zap.Error(err))
		return nil, classify(op, err)
	}

	m.logger.Info("📝 Appointment notes updated", zap.String("event_id", eventID))
	return appointment, nil
}

// load возвращает запись и исходное событие календаря
func (m *AppointmentManager) load(ctx context.Context, eventID string) (*model.AppointmentEvent, *calendar.Event, error) {
	if eventID == "" {
		return nil, nil, fmt.Errorf("empty event id: %w", backend.ErrNotFound)
	}

	ev, err := m.backend.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}

	appointment, err := model.AppointmentFromCalendarEvent(ev, m.hours.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("event %q: %w", eventID, err)
	}
	if appointment.EventID == "" {
		appointment.SetIdentity(eventID, ev.HtmlLink)
	}
	return appointment, ev, nil
}

// GetAvailableSlots возвращает начала свободных слотов в дату date.
// Слот предлагается, только если он целиком помещается в рабочие часы
// и не пересекается ни с одной записью дня
func (m *AppointmentManager) GetAvailableSlots(ctx context.Context, date time.Time, opts SlotOptions) ([]time.Time, error) {
	const op = "get available slots"

	if err := validateSlotOptions(opts); err != nil {
		return nil, validationError(op, err)
	}

	appointments, err := m.GetAppointmentsForDay(ctx, date)
	if err != nil {
		return nil, err
	}

	loc := date.Location()
	booked := m.bookedIntervals(appointments, loc)

	dayStart := startOfDay(date)
	cursor := time.Date(date.Year(), date.Month(), date.Day(), opts.StartHour, 0, 0, 0, loc)
	closing := time.Date(date.Year(), date.Month(), date.Day(), opts.EndHour, 0, 0, 0, loc)

	slots := make([]time.Time, 0)
	for ; !cursor.Add(opts.Duration).After(closing); cursor = cursor.Add(opts.Duration) {
		slotEnd := cursor.Add(opts.Duration)

		free := true
		for _, b := range booked {
			if cursor.Before(b.end) && slotEnd.After(b.start) {
				free = false
				break
			}
		}

		if free {
			slots = append(slots, cursor)
		}
	}

	m.logger.Debug("Available slots computed",
		zap.Time("date", dayStart),
		zap.Int("booked", len(booked)),
		zap.Int("available", len(slots)),
	)

	return slots, nil
}

type interval struct {
	start time.Time
	end   time.Time
}

// bookedIntervals пропускает записи с некорректным временем
func (m *AppointmentManager) bookedIntervals(events []*calendar.Event, loc *time.Location) []interval {
	booked := make([]interval, 0, len(events))
	for _, ev := range events {
		start, err := model.ParseEventDateTime(ev.Start, loc)
		if err != nil {
			m.logger.Warn("Skipping appointment with malformed start", zap.String("event_id", ev.Id), zap.Error(err))
			continue
		}
		end, err := model.ParseEventDateTime(ev.End, loc)
		if err != nil {
			m.logger.Warn("Skipping appointment with malformed end", zap.String("event_id", ev.Id), zap.Error(err))
			continue
		}
		booked = append(booked, interval{start: start, end: end})
	}
	return booked
}

func validateSlotOptions(opts SlotOptions) error {
	if opts.Duration <= 0 {
		return errors.New("slot duration must be positive")
	}
	if opts.StartHour < 0 || opts.EndHour > 24 || opts.StartHour >= opts.EndHour {
		return fmt.Errorf("invalid business hours %d-%d", opts.StartHour, opts.EndHour)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
