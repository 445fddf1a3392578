package entities

import (
	"errors"
	"time"
)

// SessionStatus represents the status of an interpretation session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAborted   SessionStatus = "aborted"
)

// SummaryOutcome describes how the session summary was produced
type SummaryOutcome struct {
	Text      string `json:"text" bson:"text"`
	Template  string `json:"template,omitempty" bson:"template,omitempty"`
	Reasoning string `json:"reasoning,omitempty" bson:"reasoning,omitempty"`
	Produced  bool   `json:"produced" bson:"produced"`
}

// TranslationSession is the archived form of one start-to-stop capture session
type TranslationSession struct {
	ID         string              `json:"id" bson:"_id"`
	Config     SessionConfig       `json:"config" bson:"config"`
	StartedAt  time.Time           `json:"started_at" bson:"started_at"`
	StoppedAt  *time.Time          `json:"stopped_at,omitempty" bson:"stopped_at,omitempty"`
	Status     SessionStatus       `json:"status" bson:"status"`
	Records    []TranslationRecord `json:"records" bson:"records"`
	Summary    *SummaryOutcome     `json:"summary,omitempty" bson:"summary,omitempty"`
	ExportPath string              `json:"export_path,omitempty" bson:"export_path,omitempty"`
}

// NewTranslationSession creates an active session for the given configuration
func NewTranslationSession(id string, config SessionConfig) *TranslationSession {
	return &TranslationSession{
		ID:        id,
		Config:    config,
		StartedAt: time.Now(),
		Status:    SessionStatusActive,
		Records:   make([]TranslationRecord, 0),
	}
}

// Complete marks the session as completed with its final records and summary
func (s *TranslationSession) Complete(records []TranslationRecord, summary SummaryOutcome) {
	now := time.Now()
	s.StoppedAt = &now
	s.Status = SessionStatusCompleted
	s.Records = records
	s.Summary = &summary
}

// Abort marks the session as stopped without a summary
func (s *TranslationSession) Abort(records []TranslationRecord) {
	now := time.Now()
	s.StoppedAt = &now
	s.Status = SessionStatusAborted
	s.Records = records
}

// Duration returns how long the session ran, or has been running
func (s *TranslationSession) Duration() time.Duration {
	if s.StoppedAt == nil {
		return time.Since(s.StartedAt)
	}
	return s.StoppedAt.Sub(s.StartedAt)
}

// Validate validates the session data
func (s *TranslationSession) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}

	if s.Status != SessionStatusActive && s.Status != SessionStatusCompleted && s.Status != SessionStatusAborted {
		return errors.New("invalid session status")
	}

	if s.StoppedAt != nil && s.StoppedAt.Before(s.StartedAt) {
		return errors.New("stopped_at is before started_at")
	}

	return s.Config.Validate()
}
