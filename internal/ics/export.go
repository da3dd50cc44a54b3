package ics

import (
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"
	"google.golang.org/api/calendar/v3"

	"github.com/Freeeeeet/calendar_sync/internal/model"
)

const productID = "-//calendar_sync//Appointments//EN"

// Export собирает VCALENDAR из событий календаря.
// События без корректного времени пропускаются, их id возвращаются в skipped
func Export(name string, events []*calendar.Event, loc *time.Location, now time.Time) (body string, skipped []string) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
	}
	if loc != nil {
		cal.SetXWRTimezone(loc.String())
	}

	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := addEvent(cal, ev, loc, now); err != nil {
			skipped = append(skipped, ev.Id)
		}
	}

	return cal.Serialize(), skipped
}

func addEvent(cal *ical.Calendar, ev *calendar.Event, loc *time.Location, now time.Time) error {
	if ev.Id == "" {
		return errors.New("event without id")
	}

	start, err := model.ParseEventDateTime(ev.Start, loc)
	if err != nil {
		return err
	}
	end, err := model.ParseEventDateTime(ev.End, loc)
	if err != nil {
		return err
	}

	vevent := cal.AddEvent(ev.Id)
	vevent.SetDtStampTime(now)

	if ev.Start.DateTime == "" {
		vevent.SetAllDayStartAt(start)
		vevent.SetAllDayEndAt(end)
	} else {
		vevent.SetStartAt(start)
		vevent.SetEndAt(end)
	}

	vevent.SetSummary(ev.Summary)
	if ev.Description != "" {
		vevent.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		vevent.SetLocation(ev.Location)
	}
	if ev.HtmlLink != "" {
		vevent.SetURL(ev.HtmlLink)
	}
	return nil
}
