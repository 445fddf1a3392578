package entities

import "time"

// TranslationRecord is one translated utterance. Records are never mutated once appended.
type TranslationRecord struct {
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	Original   string    `json:"original" bson:"original"`
	Translated string    `json:"translated" bson:"translated"`
}

// NewTranslationRecord stamps a record with the current time
func NewTranslationRecord(original, translated string) TranslationRecord {
	return TranslationRecord{
		Timestamp:  time.Now(),
		Original:   original,
		Translated: translated,
	}
}

// SessionState is a point-in-time view of a running pipeline
type SessionState struct {
	IsRunning     bool                `json:"is_running"`
	IsProcessing  bool                `json:"is_processing"`
	IsPaused      bool                `json:"is_paused"`
	AudioLevel    float32             `json:"audio_level"`
	Latest        *TranslationRecord  `json:"latest,omitempty"`
	History       []TranslationRecord `json:"history"`
	DroppedFrames uint64              `json:"dropped_frames"`
}

// LatestOrEmpty returns the latest record, or a zero record when nothing was translated yet
func (s SessionState) LatestOrEmpty() TranslationRecord {
	if s.Latest == nil {
		return TranslationRecord{}
	}
	return *s.Latest
}
