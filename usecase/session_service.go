package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain"
	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/pipeline"
	"github.com/satriahrh/voxlate/internal/workflow"
	"github.com/satriahrh/voxlate/internal/workflow/summary"
)

var (
	// ErrNoActiveSession is returned by operations that need a running session
	ErrNoActiveSession = errors.New("no active session")
	// ErrDeviceUnavailable is returned when the capture device cannot be opened
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

const (
	NothingToSummarize = "Nothing to summarize: no translations were recorded."
	NoSummaryProduced  = "No summary could be produced."

	resultTimeLayout = "15:04:05"
	archiveTimeout   = 5 * time.Second
)

// Summarizer runs the post-session summary workflow
type Summarizer interface {
	Summarize(ctx context.Context, executionID string, text string) summary.State
	StartEventListener(ctx context.Context, handler func(workflow.Event))
}

// SessionServiceDeps are the collaborators of SessionService. Cache, Archive,
// Exporter and Publisher are optional.
type SessionServiceDeps struct {
	Source     repositories.AudioSource
	STT        repositories.SpeechToText
	Translator repositories.TextGenerator
	Catalog    repositories.ModelCatalog
	Summarizer Summarizer
	Cache      repositories.TranslationCache
	Archive    repositories.SessionRepository
	Exporter   repositories.RecordExporter
	Publisher  domain.EventPublisher

	STTTimeout         time.Duration
	TranslationTimeout time.Duration
	BufferCapacity     int
	PollInterval       time.Duration
}

// StopResult is what a stop reports back to the operator
type StopResult struct {
	SessionID  string `json:"session_id,omitempty"`
	Summary    string `json:"summary"`
	Template   string `json:"template,omitempty"`
	Produced   bool   `json:"produced"`
	ExportPath string `json:"export_path,omitempty"`
}

// ResultEntry is one translation as shown in the results view
type ResultEntry struct {
	Timestamp  string `json:"timestamp"`
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// ResultsView is the polling view of the current session
type ResultsView struct {
	SessionID      string        `json:"sessionId,omitempty"`
	OriginalText   string        `json:"originalText"`
	TranslatedText string        `json:"translatedText"`
	AudioLevel     float32       `json:"audioLevel"`
	Translations   []ResultEntry `json:"translations"`
	IsRunning      bool          `json:"isRunning"`
	IsProcessing   bool          `json:"isProcessing"`
	IsPaused       bool          `json:"isPaused"`
	DroppedFrames  uint64        `json:"droppedFrames"`
}

// SessionService orchestrates capture sessions: start, pause, stop with summary,
// and the read-side queries used by the API
type SessionService struct {
	deps   SessionServiceDeps
	logger *zap.Logger

	// lifecycle serializes Start, Stop and Shutdown
	lifecycle sync.Mutex

	mu         sync.RWMutex
	current    *pipeline.Session
	record     *entities.TranslationSession
	lastResult *StopResult
}

// NewSessionService creates a new session service
func NewSessionService(deps SessionServiceDeps, logger *zap.Logger) *SessionService {
	return &SessionService{
		deps:   deps,
		logger: logger,
	}
}

// StartEventForwarding publishes summary workflow progress until ctx is done
func (s *SessionService) StartEventForwarding(ctx context.Context) {
	if s.deps.Summarizer == nil {
		return
	}
	s.deps.Summarizer.StartEventListener(ctx, func(event workflow.Event) {
		s.publish(domain.EventSummaryProgress, string(event.ExecutionID), domain.SummaryProgressPayload{
			Node:  string(event.NodeID),
			Stage: event.Type,
		})
	})
}

// StartSession starts capturing with config. Starting while a session runs does nothing.
func (s *SessionService) StartSession(ctx context.Context, config entities.SessionConfig) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	previous := s.current
	s.mu.RUnlock()

	if previous != nil && previous.IsRunning() {
		s.logger.Info("Session already running", zap.String("session_id", previous.ID()))
		return nil
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	id := uuid.New().String()
	logger := s.logger.With(zap.String("session_id", id))

	transcriber := pipeline.NewTranscriptionStage(s.deps.STT, s.deps.STTTimeout, logger)
	translator := pipeline.NewTranslationStage(s.deps.Translator, s.deps.Cache, func(original, translated string) {
		s.publish(domain.EventTranslation, id, domain.TranslationPayload{Original: original, Translated: translated})
	}, s.deps.TranslationTimeout, logger)

	session := pipeline.NewSession(id, config, pipeline.Deps{
		Source:         s.deps.Source,
		Transcriber:    transcriber,
		Translator:     translator,
		BufferCapacity: s.deps.BufferCapacity,
		PollInterval:   s.deps.PollInterval,
		Logger:         s.logger,
	})

	if err := session.Start(ctx); err != nil {
		session.Dispose()
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	if previous != nil {
		previous.Dispose()
	}

	record := entities.NewTranslationSession(id, config)

	s.mu.Lock()
	s.current = session
	s.record = record
	s.lastResult = nil
	s.mu.Unlock()

	s.archive(func(ctx context.Context, archive repositories.SessionRepository) error {
		return archive.Create(ctx, record)
	})
	s.publish(domain.EventSessionState, id, domain.SessionStatePayload{Status: "running"})

	logger.Info("Translation session started",
		zap.String("input_language", config.InputLanguage),
		zap.String("target_language", config.TargetLanguage),
		zap.String("model", config.SelectedModel))
	return nil
}

// StopSession stops capturing, exports the history and summarizes it. A repeated
// stop returns the previous result.
func (s *SessionService) StopSession(ctx context.Context) (StopResult, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	session, record, last := s.current, s.record, s.lastResult
	s.mu.RUnlock()

	if session == nil {
		return StopResult{Summary: NothingToSummarize}, nil
	}
	if last != nil {
		return *last, nil
	}

	session.Stop()
	history := session.Snapshot().History
	s.publish(domain.EventSessionState, session.ID(), domain.SessionStatePayload{Status: "stopped"})

	result := StopResult{SessionID: session.ID()}
	endedAt := time.Now()
	result.ExportPath = s.export(ctx, history, endedAt)

	outcome := entities.SummaryOutcome{}
	if len(history) == 0 {
		result.Summary = NothingToSummarize
	} else {
		translated := make([]string, len(history))
		for i, r := range history {
			translated[i] = r.Translated
		}

		state := s.deps.Summarizer.Summarize(context.WithoutCancel(ctx), session.ID(), strings.Join(translated, " "))
		text, produced := state.Summary()
		if !produced {
			text = NoSummaryProduced
		}

		result.Summary = text
		result.Produced = produced
		result.Template = state.SelectedTemplate.String()
		outcome.Reasoning = state.Reasoning
	}

	outcome.Text = result.Summary
	outcome.Template = result.Template
	outcome.Produced = result.Produced

	record.Complete(history, outcome)
	record.ExportPath = result.ExportPath
	s.archive(func(ctx context.Context, archive repositories.SessionRepository) error {
		return archive.Update(ctx, record)
	})

	s.publish(domain.EventSummary, session.ID(), domain.SummaryPayload{
		Summary:  result.Summary,
		Template: result.Template,
		Produced: result.Produced,
	})

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	s.logger.Info("Translation session stopped",
		zap.String("session_id", session.ID()),
		zap.Int("translations", len(history)),
		zap.Bool("summary_produced", result.Produced))
	return result, nil
}

// PauseToggle flips whether captured audio is processed and returns the new state
func (s *SessionService) PauseToggle() (bool, error) {
	session := s.running()
	if session == nil {
		return false, ErrNoActiveSession
	}

	paused := session.TogglePause()
	status := "resumed"
	if paused {
		status = "paused"
	}
	s.publish(domain.EventSessionState, session.ID(), domain.SessionStatePayload{Status: status})
	return paused, nil
}

// Results returns the latest translation, the level and the history of the
// current or last session
func (s *SessionService) Results() ResultsView {
	s.mu.RLock()
	session := s.current
	s.mu.RUnlock()

	view := ResultsView{Translations: make([]ResultEntry, 0)}
	if session == nil {
		return view
	}

	state := session.Snapshot()
	latest := state.LatestOrEmpty()

	view.SessionID = session.ID()
	view.OriginalText = latest.Original
	view.TranslatedText = latest.Translated
	view.AudioLevel = state.AudioLevel
	view.IsRunning = state.IsRunning
	view.IsProcessing = state.IsProcessing
	view.IsPaused = state.IsPaused
	view.DroppedFrames = state.DroppedFrames
	for _, r := range state.History {
		view.Translations = append(view.Translations, ResultEntry{
			Timestamp:  r.Timestamp.Format(resultTimeLayout),
			Original:   r.Original,
			Translated: r.Translated,
		})
	}
	return view
}

// CurrentLevel reports the input level of the running session
func (s *SessionService) CurrentLevel() (string, domain.AudioLevelPayload, bool) {
	session := s.running()
	if session == nil {
		return "", domain.AudioLevelPayload{}, false
	}
	level, processing := session.Level()
	return session.ID(), domain.AudioLevelPayload{Level: level, IsProcessing: processing}, true
}

// StateEvent describes the current session as a session_state event
func (s *SessionService) StateEvent() (domain.Event, bool) {
	s.mu.RLock()
	session := s.current
	s.mu.RUnlock()

	if session == nil {
		return domain.Event{}, false
	}

	status := "stopped"
	if session.IsRunning() {
		status = "running"
		if session.IsPaused() {
			status = "paused"
		}
	}
	return domain.NewEvent(domain.EventSessionState, session.ID(), domain.SessionStatePayload{Status: status}), true
}

// ListDevices returns the capture devices
func (s *SessionService) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	devices, err := s.deps.Source.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}
	return devices, nil
}

// ListModels returns the translation model catalog, falling back to the default model
func (s *SessionService) ListModels(ctx context.Context) []string {
	fallback := []string{entities.DefaultModel}
	if s.deps.Catalog == nil {
		return fallback
	}

	models, err := s.deps.Catalog.ListModels(ctx)
	if err != nil {
		s.logger.Warn("Failed to list models, using default", zap.Error(err))
		return fallback
	}
	if len(models) == 0 {
		return fallback
	}
	return models
}

// ListSessions returns archived sessions, newest first
func (s *SessionService) ListSessions(ctx context.Context, limit int) ([]*entities.TranslationSession, error) {
	if s.deps.Archive == nil {
		return []*entities.TranslationSession{}, nil
	}
	return s.deps.Archive.ListRecent(ctx, limit)
}

// GetSession returns one archived session
func (s *SessionService) GetSession(ctx context.Context, id string) (*entities.TranslationSession, error) {
	if s.deps.Archive == nil {
		return nil, fmt.Errorf("%w: %s", repositories.ErrSessionNotFound, id)
	}
	return s.deps.Archive.GetByID(ctx, id)
}

// Shutdown disposes the current session. An unfinished session is exported and
// archived as aborted without a summary.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	session, record, last := s.current, s.record, s.lastResult
	s.mu.RUnlock()

	if session == nil {
		return
	}

	session.Dispose()
	if last != nil {
		return
	}

	history := session.Snapshot().History
	record.Abort(history)
	record.ExportPath = s.export(ctx, history, time.Now())
	s.archive(func(ctx context.Context, archive repositories.SessionRepository) error {
		return archive.Update(ctx, record)
	})

	s.mu.Lock()
	s.lastResult = &StopResult{SessionID: session.ID(), Summary: NoSummaryProduced, ExportPath: record.ExportPath}
	s.mu.Unlock()

	s.logger.Info("Session aborted on shutdown",
		zap.String("session_id", session.ID()),
		zap.Int("translations", len(history)))
}

func (s *SessionService) running() *pipeline.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.lastResult != nil || !s.current.IsRunning() {
		return nil
	}
	return s.current
}

func (s *SessionService) export(ctx context.Context, history []entities.TranslationRecord, endedAt time.Time) string {
	if s.deps.Exporter == nil || len(history) == 0 {
		return ""
	}
	path, err := s.deps.Exporter.Export(ctx, history, endedAt)
	if err != nil {
		s.logger.Warn("Failed to export translations", zap.Error(err))
		return ""
	}
	return path
}

func (s *SessionService) archive(op func(context.Context, repositories.SessionRepository) error) {
	if s.deps.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := op(ctx, s.deps.Archive); err != nil {
		s.logger.Warn("Failed to archive session", zap.Error(err))
	}
}

func (s *SessionService) publish(eventType domain.EventType, sessionID string, payload interface{}) {
	if s.deps.Publisher == nil {
		return
	}
	s.deps.Publisher.Publish(domain.NewEvent(eventType, sessionID, payload))
}
