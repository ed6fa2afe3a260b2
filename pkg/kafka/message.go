package kafka

import (
	"encoding/json"
	"time"
)

// EventTypeTemplateSaved is emitted after a fully successful save pass.
const EventTypeTemplateSaved = "template.saved"

// TemplateEvent is the message published to downstream consumers (stock
// forecasting, rota planning) whenever a production schedule template
// changes shape.
type TemplateEvent struct {
	Type       string    `json:"type"`
	SiteID     string    `json:"site_id"`
	TemplateID string    `json:"template_id"`
	Name       string    `json:"name"`
	DayCount   int       `json:"day_count"`
	StageCount int       `json:"stage_count"`
	SavedBy    string    `json:"saved_by,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ToJSON serializes the event for the wire.
func (e *TemplateEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
