package parsing

import (
	"strings"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
)

const canonicalLayout = "15:04"

var timeLayouts = []string{
	canonicalLayout,
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// Normalizer canonicalizes event times to 24-hour HH:MM and infers a
// missing end time. Normalize is pure and total: unparseable time fields
// are cleared, never an error, and callers treat absent times as all-day
// or unspecified.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Normalize(event domain.ExtractedEvent) domain.ExtractedEvent {
	event.StartTime = canonicalTime(event.StartTime)
	event.EndTime = canonicalTime(event.EndTime)
	if event.StartTime != "" && event.EndTime == "" {
		event.EndTime = addHour(event.StartTime)
	}
	return event
}

// canonicalTime accepts 12-hour ("2:00 PM") and 24-hour ("14:00") forms.
// Anything it cannot parse maps to the empty string.
func canonicalTime(s string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(canonicalLayout)
		}
	}
	return ""
}

// addHour adds exactly 60 minutes, wrapping across midnight. The
// arithmetic is calendar-date-agnostic: only the time of day survives.
func addHour(canonical string) string {
	t, err := time.Parse(canonicalLayout, canonical)
	if err != nil {
		return ""
	}
	return t.Add(time.Hour).Format(canonicalLayout)
}
