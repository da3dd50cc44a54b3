package model

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	// AppointmentTitlePrefix отличает записи клиентов от остальных событий календаря
	AppointmentTitlePrefix = "Appointment - "
	// AppointmentColorID - цвет записей в Google Calendar (синий)
	AppointmentColorID = "9"

	appointmentHeader = "📋 APPOINTMENT INFORMATION"
	clientLabel       = "👤 Client: "
	phoneLabel        = "📞 Phone: "
	serviceLabel      = "🛠️ Service: "
	notesLabel        = "📝 Notes: "
)

// Ключи private extendedProperties, по которым запись восстанавливается из календаря
const (
	propKind            = "kind"
	propKindAppointment = "appointment"
	propClientName      = "client_name"
	propPhoneNumber     = "phone_number"
	propServiceType     = "service_type"
	propAdditionalNotes = "additional_notes"
)

// AppointmentDetails - данные клиента, из которых строится запись
type AppointmentDetails struct {
	ClientName      string `json:"client_name"`
	PhoneNumber     string `json:"phone_number"`
	ServiceType     string `json:"service_type"`
	AdditionalNotes string `json:"additional_notes"`
}

// AppointmentEvent - запись клиента. Заголовок и описание всегда
// выводятся из AppointmentDetails
type AppointmentEvent struct {
	Event
	AppointmentDetails
}

// NewAppointmentEvent создаёт запись. Пустая таймзона заменяется на DefaultTimezone
func NewAppointmentEvent(details AppointmentDetails, start, end time.Time, timezone string) (*AppointmentEvent, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	if err := ValidateTimezone(timezone); err != nil {
		return nil, err
	}

	a := &AppointmentEvent{
		Event: Event{
			StartTime: start,
			EndTime:   end,
			Timezone:  timezone,
		},
		AppointmentDetails: details,
	}
	a.refresh()

	return a, nil
}

// UpdateNotes меняет заметки и пересобирает описание.
// В календарь изменения не отправляются - для этого нужен отдельный update
func (a *AppointmentEvent) UpdateNotes(notes string) {
	a.AdditionalNotes = notes
	a.refresh()
}

// Reschedule переносит запись на новое время (только в памяти)
func (a *AppointmentEvent) Reschedule(start, end time.Time) {
	a.StartTime = start
	a.EndTime = end
}

// ToCalendarEvent добавляет к базовому формату цвет и данные клиента
func (a *AppointmentEvent) ToCalendarEvent() *calendar.Event {
	ev := a.Event.ToCalendarEvent()
	ev.Summary = appointmentTitle(a.ClientName)
	ev.Description = appointmentDescription(a.AppointmentDetails)
	ev.ColorId = AppointmentColorID
	ev.ExtendedProperties = &calendar.EventExtendedProperties{
		Private: map[string]string{
			propKind:            propKindAppointment,
			propClientName:      a.ClientName,
			propPhoneNumber:     a.PhoneNumber,
			propServiceType:     a.ServiceType,
			propAdditionalNotes: a.AdditionalNotes,
		},
	}
	return ev
}

// MergeInto накладывает поля записи на событие, полученное из календаря.
// Остальные поля (участники, напоминания, конференция, чужие extendedProperties) сохраняются
func (a *AppointmentEvent) MergeInto(current *calendar.Event) *calendar.Event {
	rendered := a.ToCalendarEvent()
	if current == nil {
		return rendered
	}

	merged := *current
	merged.Summary = rendered.Summary
	merged.Description = rendered.Description
	merged.ColorId = rendered.ColorId
	merged.Start = rendered.Start
	merged.End = rendered.End

	props := &calendar.EventExtendedProperties{Private: make(map[string]string)}
	if current.ExtendedProperties != nil {
		maps.Copy(props.Private, current.ExtendedProperties.Private)
		props.Shared = current.ExtendedProperties.Shared
	}
	maps.Copy(props.Private, rendered.ExtendedProperties.Private)
	merged.ExtendedProperties = props

	return &merged
}

func (a *AppointmentEvent) refresh() {
	a.Title = appointmentTitle(a.ClientName)
	a.Description = appointmentDescription(a.AppointmentDetails)
}

func appointmentTitle(clientName string) string {
	return AppointmentTitlePrefix + clientName
}

func appointmentDescription(d AppointmentDetails) string {
	return fmt.Sprintf(
		"%s\n\n"+
			"%s%s\n"+
			"%s%s\n"+
			"%s%s\n\n"+
			"%s%s",
		appointmentHeader,
		clientLabel, d.ClientName,
		phoneLabel, d.PhoneNumber,
		serviceLabel, d.ServiceType,
		notesLabel, d.AdditionalNotes,
	)
}

// IsAppointmentTitle проверяет префикс заголовка записи
func IsAppointmentTitle(title string) bool {
	return strings.HasPrefix(title, AppointmentTitlePrefix)
}

// AppointmentFromCalendarEvent восстанавливает запись из события бэкенда.
// Сначала читаются extendedProperties, для старых событий - разбирается описание.
// fallbackTimezone применяется, если у события нет start.timeZone; пустая - DefaultTimezone
func AppointmentFromCalendarEvent(ev *calendar.Event, fallbackTimezone string) (*AppointmentEvent, error) {
	if ev == nil || !IsAppointmentTitle(ev.Summary) {
		return nil, ErrNotAppointment
	}

	timezone := fallbackTimezone
	if timezone == "" {
		timezone = DefaultTimezone
	}
	if ev.Start != nil && ev.Start.TimeZone != "" {
		timezone = ev.Start.TimeZone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, timezone, err)
	}

	start, err := ParseEventDateTime(ev.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := ParseEventDateTime(ev.End, loc)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	details, ok := detailsFromProperties(ev.ExtendedProperties)
	if !ok {
		details = detailsFromDescription(ev.Summary, ev.Description)
	}

	a, err := NewAppointmentEvent(details, start, end, timezone)
	if err != nil {
		return nil, err
	}
	a.Location = ev.Location
	a.SetIdentity(ev.Id, ev.HtmlLink)

	return a, nil
}

func detailsFromProperties(props *calendar.EventExtendedProperties) (AppointmentDetails, bool) {
	if props == nil || props.Private[propKind] != propKindAppointment {
		return AppointmentDetails{}, false
	}
	return AppointmentDetails{
		ClientName:      props.Private[propClientName],
		PhoneNumber:     props.Private[propPhoneNumber],
		ServiceType:     props.Private[propServiceType],
		AdditionalNotes: props.Private[propAdditionalNotes],
	}, true
}

func detailsFromDescription(summary, description string) AppointmentDetails {
	d := AppointmentDetails{
		ClientName: strings.TrimPrefix(summary, AppointmentTitlePrefix),
	}

	lines := strings.Split(description, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, phoneLabel):
			d.PhoneNumber = strings.TrimPrefix(line, phoneLabel)
		case strings.HasPrefix(line, serviceLabel):
			d.ServiceType = strings.TrimPrefix(line, serviceLabel)
		case strings.HasPrefix(line, notesLabel):
			// заметки могут быть многострочными и всегда идут последними
			rest := append([]string{strings.TrimPrefix(line, notesLabel)}, lines[i+1:]...)
			d.AdditionalNotes = strings.Join(rest, "\n")
			return d
		}
	}

	return d
}
