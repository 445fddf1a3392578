package usecase

import (
	"context"
	"errors"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/adapters/csvexport"
	"github.com/satriahrh/voxlate/adapters/llm"
	"github.com/satriahrh/voxlate/adapters/memory"
	"github.com/satriahrh/voxlate/adapters/stt"
	"github.com/satriahrh/voxlate/domain"
	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/workflow/summary"
)

type fakeStream struct{}

func (fakeStream) Start() error { return nil }
func (fakeStream) Stop() error  { return nil }
func (fakeStream) Close() error { return nil }

type fakeSource struct {
	mu      sync.Mutex
	handler repositories.FrameHandler
	config  repositories.StreamConfig
	opens   int
	openErr error
}

func (f *fakeSource) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	return []entities.AudioDevice{{Index: 0, Name: "Fake Mic", MaxInputChannels: 2}}, nil
}

func (f *fakeSource) OpenInputStream(config repositories.StreamConfig, onFrame repositories.FrameHandler) (repositories.AudioStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.handler = onFrame
	f.config = config
	return fakeStream{}, nil
}

// feed delivers one loud block to the open stream
func (f *fakeSource) feed() {
	f.mu.Lock()
	handler, config := f.handler, f.config
	f.mu.Unlock()

	samples := make([]float32, config.BlockSize*config.Channels)
	for i := range samples {
		samples[i] = 0.1
	}
	handler(samples)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(eventType domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	service   *SessionService
	source    *fakeSource
	reasoning *llm.ScriptedLLM
	response  *llm.ScriptedLLM
	archive   *memory.SessionRepository
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &testEnv{
		source:    &fakeSource{},
		reasoning: llm.NewScriptedLLM("comparison: because it compares two frameworks"),
		response:  llm.NewScriptedLLM("## 요약"),
		archive:   memory.NewSessionRepository(),
		publisher: &recordingPublisher{},
	}

	translator := llm.NewScriptedLLM("").
		On("hello world", "안녕 세상").
		On("second sentence", "두 번째 문장").
		WithModels("exaone3.5:latest", "llama3:8b")

	env.service = NewSessionService(SessionServiceDeps{
		Source:       env.source,
		STT:          stt.NewScriptedSpeechToText(logger, "hello world", "second sentence"),
		Translator:   translator,
		Catalog:      translator,
		Summarizer:   summary.NewService(env.reasoning, env.response, summary.Config{}, logger),
		Archive:      env.archive,
		Exporter:     csvexport.NewExporter(t.TempDir(), logger),
		Publisher:    env.publisher,
		PollInterval: 5 * time.Millisecond,
	}, logger)

	t.Cleanup(func() { env.service.Shutdown(context.Background()) })
	return env
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestSessionService_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.StartSession(ctx, entities.SessionConfig{}); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	env.source.feed()
	env.source.feed()
	waitFor(t, "two translations", func() bool { return len(env.service.Results().Translations) == 2 })

	view := env.service.Results()
	if view.OriginalText != "second sentence" || view.TranslatedText != "두 번째 문장" {
		t.Errorf("Unexpected latest result: %q -> %q", view.OriginalText, view.TranslatedText)
	}
	if !view.IsRunning {
		t.Error("Expected session to be running")
	}
	if view.Translations[0].Translated != "안녕 세상" {
		t.Errorf("History should keep arrival order, got %+v", view.Translations)
	}
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`).MatchString(view.Translations[0].Timestamp) {
		t.Errorf("Unexpected timestamp format: %s", view.Translations[0].Timestamp)
	}

	if got := len(env.publisher.ofType(domain.EventTranslation)); got != 2 {
		t.Errorf("Expected 2 translation events, got %d", got)
	}

	result, err := env.service.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}

	if result.Summary != "## 요약" || !result.Produced {
		t.Errorf("Unexpected summary: %+v", result)
	}
	if result.Template != "comparison" {
		t.Errorf("Expected comparison template, got %s", result.Template)
	}
	if _, err := os.Stat(result.ExportPath); err != nil {
		t.Errorf("Expected export file at %q: %v", result.ExportPath, err)
	}

	archived, err := env.service.GetSession(ctx, result.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if archived.Status != entities.SessionStatusCompleted || len(archived.Records) != 2 {
		t.Errorf("Unexpected archived session: status=%s records=%d", archived.Status, len(archived.Records))
	}
	if archived.Summary == nil || archived.Summary.Template != "comparison" || archived.Summary.Reasoning == "" {
		t.Errorf("Unexpected archived summary: %+v", archived.Summary)
	}

	if len(env.publisher.ofType(domain.EventSummary)) != 1 {
		t.Error("Expected one summary event")
	}

	if env.service.Results().IsRunning {
		t.Error("Session should not be running after stop")
	}
}

func TestSessionService_StopIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.service.StartSession(ctx, entities.SessionConfig{})
	env.source.feed()
	waitFor(t, "a translation", func() bool { return len(env.service.Results().Translations) == 1 })

	first, err := env.service.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	calls := env.reasoning.Calls() + env.response.Calls()

	second, err := env.service.StopSession(ctx)
	if err != nil {
		t.Fatalf("Second StopSession failed: %v", err)
	}

	if second != first {
		t.Errorf("Repeated stop should return the previous result: %+v vs %+v", first, second)
	}
	if env.reasoning.Calls()+env.response.Calls() != calls {
		t.Error("Repeated stop must not rerun the summary workflow")
	}
}

func TestSessionService_StopWithoutTranslations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.service.StopSession(ctx)
	if err != nil || result.Summary != NothingToSummarize {
		t.Errorf("Stop before any session should report nothing to summarize, got %+v, %v", result, err)
	}

	env.service.StartSession(ctx, entities.SessionConfig{})
	result, err = env.service.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}

	if result.Summary != NothingToSummarize || result.Produced {
		t.Errorf("Expected nothing to summarize, got %+v", result)
	}
	if result.ExportPath != "" {
		t.Errorf("Empty history should not be exported, got %s", result.ExportPath)
	}
	if env.reasoning.Calls() != 0 || env.response.Calls() != 0 {
		t.Error("Workflow should not run without translations")
	}
}

func TestSessionService_SummaryFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.reasoning.FailWith(errors.New("reasoning down"))
	env.response.FailWith(errors.New("response down"))

	env.service.StartSession(ctx, entities.SessionConfig{})
	env.source.feed()
	waitFor(t, "a translation", func() bool { return len(env.service.Results().Translations) == 1 })

	result, err := env.service.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession should not fail, got %v", err)
	}
	if result.Summary != NoSummaryProduced || result.Produced {
		t.Errorf("Expected fallback summary, got %+v", result)
	}
	if result.Template != "architecture" {
		t.Errorf("Failed selection should default to architecture, got %s", result.Template)
	}
}

func TestSessionService_StartTwiceIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.StartSession(ctx, entities.SessionConfig{}); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	id := env.service.Results().SessionID

	if err := env.service.StartSession(ctx, entities.SessionConfig{ChunkDuration: 5}); err != nil {
		t.Fatalf("Second StartSession failed: %v", err)
	}

	if env.service.Results().SessionID != id {
		t.Error("Second start should keep the running session")
	}
	if env.source.opens != 1 {
		t.Errorf("Expected one stream open, got %d", env.source.opens)
	}
}

func TestSessionService_RestartAfterStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.service.StartSession(ctx, entities.SessionConfig{})
	first, _ := env.service.StopSession(ctx)

	if err := env.service.StartSession(ctx, entities.SessionConfig{}); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	view := env.service.Results()
	if view.SessionID == first.SessionID || !view.IsRunning {
		t.Errorf("Expected a new running session, got %+v", view)
	}
	if len(view.Translations) != 0 {
		t.Error("A new session should start with empty history")
	}

	sessions, _ := env.service.ListSessions(ctx, 10)
	if len(sessions) != 2 {
		t.Errorf("Expected 2 archived sessions, got %d", len(sessions))
	}
}

func TestSessionService_DeviceFailure(t *testing.T) {
	env := newTestEnv(t)
	env.source.openErr = errors.New("no such device")

	err := env.service.StartSession(context.Background(), entities.SessionConfig{DeviceIndex: 7})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}

	if env.service.Results().IsRunning {
		t.Error("Session should stay stopped after a device failure")
	}
	if _, err := env.service.PauseToggle(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Expected ErrNoActiveSession, got %v", err)
	}
}

func TestSessionService_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.StartSession(context.Background(), entities.SessionConfig{ChunkDuration: 120})
	if !errors.Is(err, entities.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if env.source.opens != 0 {
		t.Error("Invalid config should not open the device")
	}
}

func TestSessionService_PauseToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.PauseToggle(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Expected ErrNoActiveSession before start, got %v", err)
	}

	env.service.StartSession(ctx, entities.SessionConfig{})

	paused, err := env.service.PauseToggle()
	if err != nil || !paused {
		t.Fatalf("Expected paused, got %v, %v", paused, err)
	}
	if event, ok := env.service.StateEvent(); !ok || event.Payload.(domain.SessionStatePayload).Status != "paused" {
		t.Errorf("Unexpected state event: %+v", event)
	}

	// Frames are discarded while paused
	env.source.feed()
	time.Sleep(50 * time.Millisecond)
	if len(env.service.Results().Translations) != 0 {
		t.Error("Paused session should not translate")
	}

	paused, _ = env.service.PauseToggle()
	if paused {
		t.Error("Second toggle should resume")
	}

	env.service.StopSession(ctx)
	if _, err := env.service.PauseToggle(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Expected ErrNoActiveSession after stop, got %v", err)
	}
}

func TestSessionService_CurrentLevel(t *testing.T) {
	env := newTestEnv(t)

	if _, _, running := env.service.CurrentLevel(); running {
		t.Error("No level should be reported without a session")
	}

	env.service.StartSession(context.Background(), entities.SessionConfig{})
	env.source.feed()

	id, level, running := env.service.CurrentLevel()
	if !running || id == "" {
		t.Fatal("Expected a running session")
	}
	if level.Level <= 0 {
		t.Errorf("Expected a positive level, got %v", level.Level)
	}
}

func TestSessionService_ListModels(t *testing.T) {
	env := newTestEnv(t)

	models := env.service.ListModels(context.Background())
	if len(models) != 2 || models[1] != "llama3:8b" {
		t.Errorf("Unexpected models: %v", models)
	}

	failing := NewSessionService(SessionServiceDeps{
		Catalog: llm.NewScriptedLLM("").FailWith(errors.New("offline")),
	}, zap.NewNop())
	models = failing.ListModels(context.Background())
	if len(models) != 1 || models[0] != "exaone3.5:latest" {
		t.Errorf("Expected default model fallback, got %v", models)
	}
}

func TestSessionService_ListDevices(t *testing.T) {
	env := newTestEnv(t)

	devices, err := env.service.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 1 || devices[0].Label() != "0: Fake Mic (2 in, 0 out)" {
		t.Errorf("Unexpected devices: %+v", devices)
	}
}

func TestSessionService_ShutdownAbortsSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.service.StartSession(ctx, entities.SessionConfig{})
	env.source.feed()
	waitFor(t, "a translation", func() bool { return len(env.service.Results().Translations) == 1 })
	id := env.service.Results().SessionID

	env.service.Shutdown(ctx)

	archived, err := env.service.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if archived.Status != entities.SessionStatusAborted || archived.Summary != nil {
		t.Errorf("Expected aborted session without summary, got %+v", archived)
	}
	if archived.ExportPath == "" {
		t.Error("Shutdown should export the unfinished session")
	}
	if env.reasoning.Calls() != 0 {
		t.Error("Shutdown should not summarize")
	}
}

func TestSessionService_ForwardsSummaryProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.service.StartEventForwarding(ctx)
	env.service.StartSession(ctx, entities.SessionConfig{})
	env.source.feed()
	waitFor(t, "a translation", func() bool { return len(env.service.Results().Translations) == 1 })

	result, _ := env.service.StopSession(ctx)

	waitFor(t, "summary progress", func() bool {
		return len(env.publisher.ofType(domain.EventSummaryProgress)) > 0
	})
	for _, event := range env.publisher.ofType(domain.EventSummaryProgress) {
		if event.SessionID != result.SessionID {
			t.Errorf("Progress event should carry the session ID, got %s", event.SessionID)
		}
	}
}
