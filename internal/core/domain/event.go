package domain

import "time"

// ExtractedEvent is one calendar event recovered from model output.
// Times, when present, are canonical 24-hour "HH:MM". A syntactically
// invalid date is kept and flagged rather than dropped so the user can
// still review it.
type ExtractedEvent struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	IsValidDate bool   `json:"is_valid_date"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Description string `json:"description,omitempty"`
}

// ExtractionRequest carries one user-submitted image through the pipeline.
// The payload is request-scoped and never persisted.
type ExtractionRequest struct {
	ImageBase64 string
	Filename    string
}

// ExtractionOptions tune one pipeline run. Zero values fall back to
// defaults at the call site.
type ExtractionOptions struct {
	MaxRetries        int
	PerAttemptTimeout time.Duration
	Models            []CandidateModel
}

// ExtractionResult is what the pipeline hands back to the caller.
// FallbackUsed marks results synthesized by the degradation policy.
type ExtractionResult struct {
	Events       []ExtractedEvent `json:"events"`
	ModelUsed    string           `json:"model_used,omitempty"`
	FallbackUsed bool             `json:"fallback_used"`
}

// ModelOutput is the raw text a candidate model produced, plus which model
// in the chain produced it.
type ModelOutput struct {
	Text      string
	ModelUsed string
}

const fallbackTitle = "Event from image (service unavailable)"

// NewFallbackEvent builds the single placeholder event returned when
// inference is unreachable. Only the degradation policy creates these.
func NewFallbackEvent(now time.Time) ExtractedEvent {
	return ExtractedEvent{
		Title:       fallbackTitle,
		Date:        now.Format("2006-01-02"),
		IsValidDate: true,
		Description: "The extraction service was unavailable. Please edit this event with the details from your image, or retry later.",
	}
}

// CalendarEvent is the persisted form of an extracted event, keyed by the
// owner identity the external identity provider established upstream.
type CalendarEvent struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Event     ExtractedEvent `json:"event"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
