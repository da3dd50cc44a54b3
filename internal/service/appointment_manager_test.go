package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/calendar_sync/internal/backend"
	"github.com/Freeeeeet/calendar_sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

var testDay = time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(testDay.Year(), testDay.Month(), testDay.Day(), hour, minute, 0, 0, time.UTC)
}

func hours(times []time.Time) []string {
	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, t.Format("15:04"))
	}
	return out
}

type recordingNotifier struct {
	mu          sync.Mutex
	created     []string
	cancelled   []string
	rescheduled []string
}

func (n *recordingNotifier) AppointmentCreated(_ context.Context, a *model.AppointmentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, a.EventID)
}

func (n *recordingNotifier) AppointmentCancelled(_ context.Context, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, id)
}

func (n *recordingNotifier) AppointmentRescheduled(_ context.Context, a *model.AppointmentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rescheduled = append(n.rescheduled, a.EventID)
}

func newTestManager(b backend.Backend, n Notifier) *AppointmentManager {
	hrs := DefaultBusinessHours()
	hrs.Timezone = "UTC"
	return NewAppointmentManager(b, hrs, n, zap.NewNop())
}

func book(t *testing.T, m *AppointmentManager, client string, start, end time.Time) *model.AppointmentEvent {
	t.Helper()
	a, err := m.CreateAppointment(context.Background(), CreateAppointmentInput{
		ClientName:  client,
		PhoneNumber: "+1 555 123 4567",
		ServiceType: "Consultation",
		StartTime:   start,
		EndTime:     end,
	})
	require.NoError(t, err)
	return a
}

// stubBackend отдаёт заранее заданные ответы
type stubBackend struct {
	events []*calendar.Event
	err    error
}

func (s *stubBackend) TestConnection(context.Context) bool { return s.err == nil }

func (s *stubBackend) CreateEvent(context.Context, *calendar.Event) (*calendar.Event, error) {
	return nil, s.err
}

func (s *stubBackend) GetEvent(context.Context, string) (*calendar.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, backend.ErrNotFound
}

func (s *stubBackend) ListEvents(context.Context, time.Time, time.Time, int64) ([]*calendar.Event, error) {
	return s.events, s.err
}

func (s *stubBackend) UpdateEvent(context.Context, string, *calendar.Event) error { return s.err }

func (s *stubBackend) DeleteEvent(context.Context, string) error { return s.err }

func TestCreateAppointment(t *testing.T) {
	n := &recordingNotifier{}
	m := newTestManager(backend.NewMemoryBackend("http://localhost:8000"), n)

	a := book(t, m, "John Doe", at(14, 0), at(15, 0))

	assert.NotEmpty(t, a.EventID)
	assert.Equal(t, "http://localhost:8000/appointments/"+a.EventID, a.HTMLLink)
	assert.Equal(t, "Appointment - John Doe", a.Title)
	assert.Equal(t, "UTC", a.Timezone)
	assert.Equal(t, []string{a.EventID}, n.created)
}

func TestCreateAppointment_BackendFailure(t *testing.T) {
	m := newTestManager(&stubBackend{err: errors.New("connection refused")}, nil)

	_, err := m.CreateAppointment(context.Background(), CreateAppointmentInput{
		ClientName: "John Doe",
		StartTime:  at(14, 0),
		EndTime:    at(15, 0),
	})

	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestCreateAppointment_Unauthorized(t *testing.T) {
	m := newTestManager(&stubBackend{err: backend.ErrUnauthorized}, nil)

	_, err := m.CreateAppointment(context.Background(), CreateAppointmentInput{
		ClientName: "John Doe",
		StartTime:  at(14, 0),
		EndTime:    at(15, 0),
	})

	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestCreateAppointment_InvalidTimezone(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)

	_, err := m.CreateAppointment(context.Background(), CreateAppointmentInput{
		ClientName: "John Doe",
		StartTime:  at(14, 0),
		EndTime:    at(15, 0),
		Timezone:   "Nowhere/City",
	})

	assert.Equal(t, KindValidation, KindOf(err))
	assert.ErrorIs(t, err, model.ErrInvalidTimezone)
}

func TestGetAppointmentsForDay_FiltersByTitle(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemoryBackend("")
	m := newTestManager(mem, nil)

	book(t, m, "Jane", at(11, 0), at(12, 0))
	book(t, m, "John", at(9, 0), at(10, 0))
	_, err := mem.CreateEvent(ctx, model.NewEvent("Team lunch", at(13, 0), at(14, 0)).ToCalendarEvent())
	require.NoError(t, err)
	// следующий день
	book(t, m, "Late", at(9, 0).AddDate(0, 0, 1), at(10, 0).AddDate(0, 0, 1))

	events, err := m.GetAppointmentsForDay(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Appointment - John", events[0].Summary)
	assert.Equal(t, "Appointment - Jane", events[1].Summary)
}

func TestGetAppointmentsForWeek(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(backend.NewMemoryBackend(""), nil)

	book(t, m, "Day0", at(9, 0), at(10, 0))
	book(t, m, "Day6", at(9, 0).AddDate(0, 0, 6), at(10, 0).AddDate(0, 0, 6))
	book(t, m, "Day7", at(0, 0).AddDate(0, 0, 7), at(1, 0).AddDate(0, 0, 7))

	events, err := m.GetAppointmentsForWeek(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.True(t, model.IsAppointmentTitle(ev.Summary))
	}
}

func TestGetAppointmentsForDay_Empty(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)

	events, err := m.GetAppointmentsForDay(context.Background(), testDay)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestCancelAppointment(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	m := newTestManager(backend.NewMemoryBackend(""), n)

	a := book(t, m, "John", at(9, 0), at(10, 0))
	require.NoError(t, m.CancelAppointment(ctx, a.EventID))
	assert.Equal(t, []string{a.EventID}, n.cancelled)

	err := m.CancelAppointment(ctx, a.EventID)
	assert.Equal(t, KindNotFound, KindOf(err))

	err = m.CancelAppointment(ctx, "")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Len(t, n.cancelled, 1)
}

func TestRescheduleAppointment(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	m := newTestManager(backend.NewMemoryBackend(""), n)

	original, err := m.CreateAppointment(ctx, CreateAppointmentInput{
		ClientName:      "John Doe",
		PhoneNumber:     "+1 555 123 4567",
		ServiceType:     "Consultation",
		AdditionalNotes: "bring documents",
		StartTime:       at(9, 0),
		EndTime:         at(10, 0),
	})
	require.NoError(t, err)

	moved, err := m.RescheduleAppointment(ctx, original.EventID, at(15, 0), at(16, 30))
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(at(15, 0)))

	stored, err := m.GetAppointment(ctx, original.EventID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(at(15, 0)))
	assert.True(t, stored.EndTime.Equal(at(16, 30)))
	assert.Equal(t, original.AppointmentDetails, stored.AppointmentDetails)
	assert.Equal(t, "UTC", stored.Timezone)
	assert.Equal(t, []string{original.EventID}, n.rescheduled)

	slots, err := m.GetAvailableSlots(ctx, testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.Contains(t, hours(slots), "09:00")
	assert.NotContains(t, hours(slots), "15:00")
	assert.NotContains(t, hours(slots), "16:00")
}

func TestRescheduleAppointment_NotFound(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)

	_, err := m.RescheduleAppointment(context.Background(), "missing", at(9, 0), at(10, 0))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRescheduleAppointment_NotAnAppointment(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemoryBackend("")
	m := newTestManager(mem, nil)

	ev, err := mem.CreateEvent(ctx, model.NewEvent("Team lunch", at(13, 0), at(14, 0)).ToCalendarEvent())
	require.NoError(t, err)

	_, err = m.RescheduleAppointment(ctx, ev.Id, at(15, 0), at(16, 0))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateAppointmentNotes(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(backend.NewMemoryBackend(""), nil)

	a := book(t, m, "John", at(9, 0), at(10, 0))

	_, err := m.UpdateAppointmentNotes(ctx, a.EventID, "prefers window seat")
	require.NoError(t, err)

	stored, err := m.GetAppointment(ctx, a.EventID)
	require.NoError(t, err)
	assert.Equal(t, "prefers window seat", stored.AdditionalNotes)
	assert.Contains(t, stored.Description, "prefers window seat")
	assert.True(t, stored.StartTime.Equal(at(9, 0)))
}

func TestRescheduleAppointment_KeepsFieldsEditedInCalendar(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemoryBackend("")
	m := newTestManager(mem, nil)

	a := book(t, m, "John", at(9, 0), at(10, 0))

	// сотрудник добавил участника и напоминание прямо в календаре
	ev, err := mem.GetEvent(ctx, a.EventID)
	require.NoError(t, err)
	ev.Attendees = []*calendar.EventAttendee{{Email: "staff@example.com"}}
	ev.Reminders = &calendar.EventReminders{Overrides: []*calendar.EventReminder{{Method: "popup", Minutes: 15}}}
	ev.ExtendedProperties.Private["crm_id"] = "42"
	require.NoError(t, mem.UpdateEvent(ctx, a.EventID, ev))

	_, err = m.RescheduleAppointment(ctx, a.EventID, at(15, 0), at(16, 0))
	require.NoError(t, err)
	_, err = m.UpdateAppointmentNotes(ctx, a.EventID, "call before")
	require.NoError(t, err)

	stored, err := mem.GetEvent(ctx, a.EventID)
	require.NoError(t, err)
	require.Len(t, stored.Attendees, 1)
	assert.Equal(t, "staff@example.com", stored.Attendees[0].Email)
	require.NotNil(t, stored.Reminders)
	assert.Equal(t, int64(15), stored.Reminders.Overrides[0].Minutes)
	assert.Equal(t, "42", stored.ExtendedProperties.Private["crm_id"])
	assert.Equal(t, "call before", stored.ExtendedProperties.Private["additional_notes"])
	assert.Equal(t, at(15, 0).Format(time.RFC3339), stored.Start.DateTime)
}

func TestRescheduleAppointment_EventWithoutZoneUsesBusinessTimezone(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemoryBackend("")
	hrs := DefaultBusinessHours()
	hrs.Timezone = "Europe/Moscow"
	m := NewAppointmentManager(mem, hrs, nil, zap.NewNop())

	ev := model.NewEvent("Appointment - Jane", at(9, 0), at(10, 0)).ToCalendarEvent()
	ev.Start.TimeZone = ""
	ev.End.TimeZone = ""
	created, err := mem.CreateEvent(ctx, ev)
	require.NoError(t, err)

	moved, err := m.RescheduleAppointment(ctx, created.Id, at(11, 0), at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", moved.Timezone)

	stored, err := mem.GetEvent(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", stored.Start.TimeZone)
	assert.Equal(t, "Europe/Moscow", stored.End.TimeZone)
}

func TestGetAvailableSlots_EmptyDay(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)

	slots, err := m.GetAvailableSlots(context.Background(), testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}, hours(slots))
	for _, s := range slots {
		assert.Equal(t, time.UTC, s.Location())
	}
}

func TestGetAvailableSlots_BookedHour(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)
	book(t, m, "John", at(10, 0), at(11, 0))

	slots, err := m.GetAvailableSlots(context.Background(), testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}, hours(slots))
}

func TestGetAvailableSlots_PartialOverlap(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)
	book(t, m, "John", at(10, 30), at(10, 45))

	slots, err := m.GetAvailableSlots(context.Background(), testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.NotContains(t, hours(slots), "10:00")
	assert.Contains(t, hours(slots), "11:00")
	assert.Len(t, slots, 8)
}

func TestGetAvailableSlots_AdjacentBookingDoesNotBlock(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)
	book(t, m, "John", at(8, 0), at(9, 0))
	book(t, m, "Jane", at(18, 0), at(19, 0))

	slots, err := m.GetAvailableSlots(context.Background(), testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.Len(t, slots, 9)
}

func TestGetAvailableSlots_FinalSlotMustFit(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)
	ctx := context.Background()

	slots, err := m.GetAvailableSlots(ctx, testDay, SlotOptions{Duration: 90 * time.Minute, StartHour: 9, EndHour: 18})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:30", "12:00", "13:30", "15:00", "16:30"}, hours(slots))

	slots, err = m.GetAvailableSlots(ctx, testDay, SlotOptions{Duration: 2 * time.Hour, StartHour: 9, EndHour: 18})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00", "13:00", "15:00"}, hours(slots))
}

func TestGetAvailableSlots_AllDayAppointmentBlocksDay(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemoryBackend("")
	m := newTestManager(mem, nil)

	_, err := mem.CreateEvent(ctx, &calendar.Event{
		Summary: "Appointment - Offsite",
		Start:   &calendar.EventDateTime{Date: "2025-10-17"},
		End:     &calendar.EventDateTime{Date: "2025-10-18"},
	})
	require.NoError(t, err)

	slots, err := m.GetAvailableSlots(ctx, testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlots_SkipsMalformedRecords(t *testing.T) {
	m := newTestManager(&stubBackend{events: []*calendar.Event{
		{Id: "bad-start", Summary: "Appointment - A", Start: &calendar.EventDateTime{DateTime: "not a time"}, End: &calendar.EventDateTime{DateTime: "2025-10-17T10:00:00Z"}},
		{Id: "no-end", Summary: "Appointment - B", Start: &calendar.EventDateTime{DateTime: "2025-10-17T11:00:00Z"}},
		{Id: "ok", Summary: "Appointment - C", Start: &calendar.EventDateTime{DateTime: "2025-10-17T12:00:00Z"}, End: &calendar.EventDateTime{DateTime: "2025-10-17T13:00:00Z"}},
	}}, nil)

	slots, err := m.GetAvailableSlots(context.Background(), testDay, m.DefaultSlotOptions())
	require.NoError(t, err)
	assert.Len(t, slots, 8)
	assert.NotContains(t, hours(slots), "12:00")
	assert.Contains(t, hours(slots), "11:00")
}

func TestGetAvailableSlots_BackendFailure(t *testing.T) {
	m := newTestManager(&stubBackend{err: errors.New("timeout")}, nil)

	slots, err := m.GetAvailableSlots(context.Background(), testDay, m.DefaultSlotOptions())
	assert.Nil(t, slots)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestGetAvailableSlots_InvalidOptions(t *testing.T) {
	m := newTestManager(backend.NewMemoryBackend(""), nil)
	ctx := context.Background()

	cases := []SlotOptions{
		{Duration: 0, StartHour: 9, EndHour: 18},
		{Duration: -time.Hour, StartHour: 9, EndHour: 18},
		{Duration: time.Hour, StartHour: 18, EndHour: 9},
		{Duration: time.Hour, StartHour: -1, EndHour: 9},
		{Duration: time.Hour, StartHour: 9, EndHour: 25},
	}
	for _, opts := range cases {
		_, err := m.GetAvailableSlots(ctx, testDay, opts)
		assert.Equal(t, KindValidation, KindOf(err), "%+v", opts)
	}
}

func TestGetAvailableSlots_RespectsDateLocation(t *testing.T) {
	loc, err := time.LoadLocation(model.DefaultTimezone)
	require.NoError(t, err)

	m := newTestManager(backend.NewMemoryBackend(""), nil)
	date := time.Date(2025, 10, 17, 15, 30, 0, 0, loc)

	slots, err := m.GetAvailableSlots(context.Background(), date, m.DefaultSlotOptions())
	require.NoError(t, err)
	require.Len(t, slots, 9)
	assert.True(t, slots[0].Equal(time.Date(2025, 10, 17, 9, 0, 0, 0, loc)))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	err := classify("op", backend.ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Equal(t, "not_found", KindOf(err).String())
	assert.Contains(t, err.Error(), "op")
}
