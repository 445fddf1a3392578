package domain

import "time"

// EventType identifies a server-pushed event
type EventType string

const (
	EventTranslation     EventType = "translation"
	EventAudioLevel      EventType = "audio_level"
	EventSessionState    EventType = "session_state"
	EventSummaryProgress EventType = "summary_progress"
	EventSummary         EventType = "summary"
)

// Event is the envelope pushed to live subscribers
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp string      `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType EventType, sessionID string, payload interface{}) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}

// EventPublisher delivers events to live subscribers. Publish must not block.
type EventPublisher interface {
	Publish(event Event)
}

// TranslationPayload carries one new translation
type TranslationPayload struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// AudioLevelPayload carries the latest input level
type AudioLevelPayload struct {
	Level        float32 `json:"level"`
	IsProcessing bool    `json:"is_processing"`
}

// SessionStatePayload carries a lifecycle change
type SessionStatePayload struct {
	Status string `json:"status"`
}

// SummaryProgressPayload carries one workflow node transition
type SummaryProgressPayload struct {
	Node  string `json:"node,omitempty"`
	Stage string `json:"stage"`
}

// SummaryPayload carries the final summary of a session
type SummaryPayload struct {
	Summary  string `json:"summary"`
	Template string `json:"template,omitempty"`
	Produced bool   `json:"produced"`
}
