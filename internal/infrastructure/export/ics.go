package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/infrastructure/parsing"
)

const canonicalTimeLayout = "15:04"

// ICS renders extracted events as an iCalendar document. Events without a
// parseable date are skipped: a VEVENT cannot exist without DTSTART, and
// those events stay reviewable through the JSON surface.
func ICS(events []domain.ExtractedEvent) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//snapcal//event extraction//EN")

	now := time.Now().UTC()
	for _, ev := range events {
		date, ok := parsing.ParseDate(ev.Date)
		if !ok {
			continue
		}

		vevent := cal.AddEvent(uuid.NewString() + "@snapcal")
		vevent.SetDtStampTime(now)
		vevent.SetSummary(ev.Title)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}

		start, startOK := eventTime(date, ev.StartTime)
		if !startOK {
			// No usable start time: all-day event.
			vevent.SetAllDayStartAt(date)
			vevent.SetAllDayEndAt(date.AddDate(0, 0, 1))
			continue
		}
		vevent.SetStartAt(start)
		if end, endOK := eventTime(date, ev.EndTime); endOK {
			if !end.After(start) {
				// Canonical times carry no date; an earlier end means
				// the event wrapped past midnight.
				end = end.AddDate(0, 0, 1)
			}
			vevent.SetEndAt(end)
		}
	}

	return cal.Serialize(), nil
}

func eventTime(date time.Time, canonical string) (time.Time, bool) {
	if canonical == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(canonicalTimeLayout, canonical)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), true
}

// Filename derives a download name for the rendered calendar.
func Filename(now time.Time) string {
	return fmt.Sprintf("snapcal-%s.ics", now.Format("20060102-150405"))
}
