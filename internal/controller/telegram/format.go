package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/Freeeeeet/calendar_sync/internal/model"
)

// FormatDate форматирует дату с днём недели
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s, %s", weekdayName(t.Weekday()), t.Format("02.01.2006"))
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

func weekdayName(d time.Weekday) string {
	names := []string{
		"Воскресенье",
		"Понедельник",
		"Вторник",
		"Среда",
		"Четверг",
		"Пятница",
		"Суббота",
	}
	return names[d]
}

// FormatAppointments - список записей одним сообщением (HTML)
func FormatAppointments(header string, events []*calendar.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(header) + "</b>\n\n")

	if len(events) == 0 {
		b.WriteString("Записей нет")
		return b.String()
	}

	var lastDay string
	for _, ev := range events {
		a, err := model.AppointmentFromCalendarEvent(ev, loc.String())
		if err != nil {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(ev.Summary))
			continue
		}

		start := a.StartTime.In(loc)
		if day := start.Format("2006-01-02"); day != lastDay {
			if lastDay != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "📅 <b>%s</b>\n", FormatDate(start))
			lastDay = day
		}

		fmt.Fprintf(&b, "🕐 %s %s (%s)\n",
			FormatTimeRange(start, a.EndTime.In(loc)),
			html.EscapeString(a.ClientName),
			html.EscapeString(a.ServiceType),
		)
		fmt.Fprintf(&b, "   📞 %s\n", html.EscapeString(a.PhoneNumber))
		fmt.Fprintf(&b, "   <code>%s</code>\n", html.EscapeString(a.EventID))
	}

	fmt.Fprintf(&b, "\nВсего: %d %s", len(events), PluralizeAppointments(len(events)))
	return b.String()
}

// FormatSlots - свободные слоты на дату
func FormatSlots(date time.Time, slots []time.Time, duration time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓 <b>Свободное время на %s</b>\n", FormatDate(date))
	fmt.Fprintf(&b, "Длительность: %d мин\n\n", int(duration/time.Minute))

	if len(slots) == 0 {
		b.WriteString("Свободных слотов нет")
		return b.String()
	}

	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		labels = append(labels, s.Format("15:04"))
	}
	b.WriteString(strings.Join(labels, ", "))
	fmt.Fprintf(&b, "\n\n%d %s", len(slots), PluralizeSlots(len(slots)))
	return b.String()
}

// FormatCreated - уведомление о новой записи
func FormatCreated(a *model.AppointmentEvent, loc *time.Location) string {
	return formatAppointmentNotice("✅ <b>Новая запись</b>", a, loc)
}

// FormatRescheduled - уведомление о переносе
func FormatRescheduled(a *model.AppointmentEvent, loc *time.Location) string {
	return formatAppointmentNotice("🔄 <b>Запись перенесена</b>", a, loc)
}

// FormatCancelled - уведомление об отмене
func FormatCancelled(eventID string) string {
	return fmt.Sprintf("❌ <b>Запись отменена</b>\n\n<code>%s</code>", html.EscapeString(eventID))
}

func formatAppointmentNotice(header string, a *model.AppointmentEvent, loc *time.Location) string {
	start := a.StartTime.In(loc)

	var b strings.Builder
	b.WriteString(header + "\n\n")
	fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(a.ClientName))
	fmt.Fprintf(&b, "📞 %s\n", html.EscapeString(a.PhoneNumber))
	fmt.Fprintf(&b, "🛠️ %s\n", html.EscapeString(a.ServiceType))
	fmt.Fprintf(&b, "📅 %s, %s\n", FormatDate(start), FormatTimeRange(start, a.EndTime.In(loc)))
	if a.AdditionalNotes != "" {
		fmt.Fprintf(&b, "📝 %s\n", html.EscapeString(a.AdditionalNotes))
	}
	if a.HTMLLink != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Открыть в календаре</a>", html.EscapeString(a.HTMLLink))
	}
	return strings.TrimRight(b.String(), "\n")
}
