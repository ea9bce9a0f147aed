package parsing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
)

const (
	// DefaultDescriptionCap bounds the raw text kept on a salvage event.
	DefaultDescriptionCap = 300

	dateISO = "2006-01-02"
)

// permissive: accepts both zero-padded and bare month/day digits.
var dateLayouts = []string{dateISO, "2006-1-2", "1/2/2006", "1-2-2006"}

// Parser extracts a structured event list from noisy model output. It
// never fails for well-formed-but-unexpected content; only empty input is
// an error. Unparseable output is kept as a single salvage event so the
// user can review it instead of losing it.
type Parser struct {
	descriptionCap int
	now            func() time.Time
}

func NewParser(descriptionCap int) *Parser {
	if descriptionCap <= 0 {
		descriptionCap = DefaultDescriptionCap
	}
	return &Parser{
		descriptionCap: descriptionCap,
		now:            time.Now,
	}
}

type rawEvent struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
}

func (p *Parser) Parse(raw string) ([]domain.ExtractedEvent, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "parse events", errors.New("empty model output"))
	}

	cleaned := stripFences(trimmed)

	var rawEvents []rawEvent
	if err := json.Unmarshal([]byte(cleaned), &rawEvents); err != nil {
		repaired, ok := bracketedArray(cleaned)
		if !ok || json.Unmarshal([]byte(repaired), &rawEvents) != nil {
			return []domain.ExtractedEvent{p.salvageEvent(trimmed)}, nil
		}
	}

	events := make([]domain.ExtractedEvent, 0, len(rawEvents))
	for _, re := range rawEvents {
		events = append(events, p.buildEvent(re))
	}
	return events, nil
}

func (p *Parser) buildEvent(re rawEvent) domain.ExtractedEvent {
	date := strings.TrimSpace(re.Date)
	title := strings.TrimSpace(re.Title)
	if title == "" {
		if date == "" {
			title = "Event on unknown date"
		} else {
			title = fmt.Sprintf("Event on %s", date)
		}
	}
	return domain.ExtractedEvent{
		Title:       title,
		Date:        date,
		IsValidDate: validDate(date),
		StartTime:   strings.TrimSpace(re.StartTime),
		EndTime:     strings.TrimSpace(re.EndTime),
		Description: strings.TrimSpace(re.Description),
	}
}

// salvageEvent preserves unparseable output as one reviewable event dated
// "now". Truncation is deliberate: the raw text is for manual review, not
// archival.
func (p *Parser) salvageEvent(raw string) domain.ExtractedEvent {
	return p.buildEvent(rawEvent{
		Date:        p.now().Format(dateISO),
		Description: truncate(raw, p.descriptionCap),
	})
}

func validDate(date string) bool {
	_, ok := ParseDate(date)
	return ok
}

// ParseDate runs the same permissive multi-format parser used for
// validation: ISO YYYY-MM-DD, MM/DD/YYYY, and MM-DD-YYYY, padded or not.
func ParseDate(date string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stripFences removes markdown code-fence wrapping some models add around
// their JSON.
func stripFences(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}

// bracketedArray pulls the first bracketed array substring out of text
// that wraps JSON in commentary.
func bracketedArray(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
