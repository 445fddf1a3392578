package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/auth"
	"github.com/satriahrh/voxlate/internal/websocket"
	"github.com/satriahrh/voxlate/usecase"
)

type fakeSessions struct {
	startErr   error
	started    []entities.SessionConfig
	paused     bool
	running    bool
	stopResult usecase.StopResult
	results    usecase.ResultsView
	devices    []entities.AudioDevice
	models     []string
	sessions   []*entities.TranslationSession
	listLimit  int
}

func (f *fakeSessions) StartSession(ctx context.Context, config entities.SessionConfig) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, config)
	f.running = true
	return nil
}

func (f *fakeSessions) StopSession(ctx context.Context) (usecase.StopResult, error) {
	f.running = false
	return f.stopResult, nil
}

func (f *fakeSessions) PauseToggle() (bool, error) {
	if !f.running {
		return false, usecase.ErrNoActiveSession
	}
	f.paused = !f.paused
	return f.paused, nil
}

func (f *fakeSessions) Results() usecase.ResultsView {
	return f.results
}

func (f *fakeSessions) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	return f.devices, nil
}

func (f *fakeSessions) ListModels(ctx context.Context) []string {
	return f.models
}

func (f *fakeSessions) ListSessions(ctx context.Context, limit int) ([]*entities.TranslationSession, error) {
	f.listLimit = limit
	return f.sessions, nil
}

func (f *fakeSessions) GetSession(ctx context.Context, id string) (*entities.TranslationSession, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repositories.ErrSessionNotFound, id)
}

func setupTestServer(sessions SessionService, tokens *auth.TokenManager) *echo.Echo {
	e := echo.New()
	hub := websocket.NewHub(zap.NewNop())
	InitRoutes(e, sessions, hub, tokens, zap.NewNop())
	return e
}

func doRequest(e *echo.Echo, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	e := setupTestServer(&fakeSessions{}, nil)

	rec := doRequest(e, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		startErr   error
		wantCode   int
		wantStatus string
		check      func(t *testing.T, config entities.SessionConfig)
	}{
		{
			name:       "full request",
			body:       `{"inputLanguage":"ja","targetLanguage":"ko","selectedModel":"llama3:8b","chunkDuration":5,"modelSize":"base","deviceIndex":2}`,
			wantCode:   http.StatusOK,
			wantStatus: "started",
			check: func(t *testing.T, config entities.SessionConfig) {
				if config.InputLanguage != "ja" || config.ChunkDuration != 5 || config.DeviceIndex != 2 {
					t.Errorf("Unexpected config: %+v", config)
				}
			},
		},
		{
			name:       "numeric strings",
			body:       `{"chunkDuration":"4","deviceIndex":"1"}`,
			wantCode:   http.StatusOK,
			wantStatus: "started",
			check: func(t *testing.T, config entities.SessionConfig) {
				if config.ChunkDuration != 4 || config.DeviceIndex != 1 {
					t.Errorf("Unexpected config: %+v", config)
				}
			},
		},
		{
			name:       "unreadable device index falls back to zero",
			body:       `{"deviceIndex":"default"}`,
			wantCode:   http.StatusOK,
			wantStatus: "started",
			check: func(t *testing.T, config entities.SessionConfig) {
				if config.DeviceIndex != 0 {
					t.Errorf("Expected device 0, got %d", config.DeviceIndex)
				}
			},
		},
		{
			name:       "bad chunk duration",
			body:       `{"chunkDuration":"three"}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: "error",
		},
		{
			name:       "invalid config",
			body:       `{}`,
			startErr:   fmt.Errorf("%w: chunkDuration out of range", entities.ErrInvalidConfig),
			wantCode:   http.StatusBadRequest,
			wantStatus: "error",
		},
		{
			name:       "device failure",
			body:       `{}`,
			startErr:   fmt.Errorf("%w: no such device", usecase.ErrDeviceUnavailable),
			wantCode:   http.StatusInternalServerError,
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{startErr: tt.startErr}
			e := setupTestServer(sessions, nil)

			rec := doRequest(e, http.MethodPost, "/api/start", tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["status"] != tt.wantStatus {
				t.Errorf("Expected status %s, got %v", tt.wantStatus, body["status"])
			}
			if tt.wantStatus == "error" && body["message"] == "" {
				t.Error("Error responses should carry a message")
			}
			if tt.check != nil {
				if len(sessions.started) != 1 {
					t.Fatalf("Expected one start, got %d", len(sessions.started))
				}
				tt.check(t, sessions.started[0])
			}
		})
	}
}

func TestPauseAndStop(t *testing.T) {
	sessions := &fakeSessions{stopResult: usecase.StopResult{
		SessionID: "s1",
		Summary:   "## 요약",
		Template:  "faq",
	}}
	e := setupTestServer(sessions, nil)

	if rec := doRequest(e, http.MethodPost, "/api/pause", "", nil); rec.Code != http.StatusConflict {
		t.Errorf("Pause without a session should conflict, got %d", rec.Code)
	}

	doRequest(e, http.MethodPost, "/api/start", `{}`, nil)

	rec := doRequest(e, http.MethodPost, "/api/pause", "", nil)
	if decode(t, rec)["status"] != "paused" {
		t.Errorf("Expected paused, got %s", rec.Body.String())
	}
	rec = doRequest(e, http.MethodPost, "/api/pause", "", nil)
	if decode(t, rec)["status"] != "resumed" {
		t.Errorf("Expected resumed, got %s", rec.Body.String())
	}

	rec = doRequest(e, http.MethodPost, "/api/stop", "", nil)
	body := decode(t, rec)
	if body["status"] != "stopped" || body["summary"] != "## 요약" || body["template"] != "faq" {
		t.Errorf("Unexpected stop response: %v", body)
	}
}

func TestResults(t *testing.T) {
	sessions := &fakeSessions{results: usecase.ResultsView{
		OriginalText:   "hello",
		TranslatedText: "안녕",
		AudioLevel:     0.25,
		Translations:   []usecase.ResultEntry{{Timestamp: "12:00:01", Original: "hello", Translated: "안녕"}},
	}}
	e := setupTestServer(sessions, nil)

	body := decode(t, doRequest(e, http.MethodGet, "/api/results", "", nil))

	if body["originalText"] != "hello" || body["translatedText"] != "안녕" || body["audioLevel"] != 0.25 {
		t.Errorf("Unexpected results: %v", body)
	}
	translations, _ := body["translations"].([]interface{})
	if len(translations) != 1 {
		t.Fatalf("Expected 1 translation, got %v", body["translations"])
	}
	entry := translations[0].(map[string]interface{})
	if entry["timestamp"] != "12:00:01" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestDevicesAndModels(t *testing.T) {
	sessions := &fakeSessions{
		devices: []entities.AudioDevice{{Index: 1, Name: "USB Mic", MaxInputChannels: 2}},
		models:  []string{"exaone3.5:latest"},
	}
	e := setupTestServer(sessions, nil)

	body := decode(t, doRequest(e, http.MethodGet, "/api/audio-devices", "", nil))
	devices := body["devices"].([]interface{})
	device := devices[0].(map[string]interface{})
	if device["name"] != "1: USB Mic (2 in, 0 out)" || device["id"] != float64(1) {
		t.Errorf("Unexpected device: %v", device)
	}

	body = decode(t, doRequest(e, http.MethodGet, "/api/models", "", nil))
	models := body["models"].([]interface{})
	model := models[0].(map[string]interface{})
	if model["id"] != "exaone3.5:latest" || model["name"] != "exaone3.5:latest" {
		t.Errorf("Unexpected model: %v", model)
	}
}

func TestSessionsArchive(t *testing.T) {
	sessions := &fakeSessions{sessions: []*entities.TranslationSession{
		entities.NewTranslationSession("s1", entities.SessionConfig{}.WithDefaults()),
	}}
	e := setupTestServer(sessions, nil)

	rec := doRequest(e, http.MethodGet, "/api/sessions?limit=5", "", nil)
	if rec.Code != http.StatusOK || sessions.listLimit != 5 {
		t.Errorf("Unexpected list response %d with limit %d", rec.Code, sessions.listLimit)
	}

	if rec := doRequest(e, http.MethodGet, "/api/sessions?limit=zero", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/sessions/s1", "", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["id"] != "s1" {
		t.Errorf("Unexpected session response: %d %s", rec.Code, rec.Body.String())
	}

	if rec := doRequest(e, http.MethodGet, "/api/sessions/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "operator-key", time.Hour)
	e := setupTestServer(&fakeSessions{models: []string{"m"}}, tokens)

	if rec := doRequest(e, http.MethodGet, "/api/models", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	if rec := doRequest(e, http.MethodPost, "/api/auth/token", `{"api_key":"wrong"}`, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong key, got %d", rec.Code)
	}

	rec := doRequest(e, http.MethodPost, "/api/auth/token", `{"api_key":"operator-key"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected token, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := decode(t, rec)["token"].(string)

	rec = doRequest(e, http.MethodGet, "/api/models", "", map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with header token, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/models?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with query token, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/models", "", map[string]string{"Authorization": "Bearer garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for invalid token, got %d", rec.Code)
	}

	if rec := doRequest(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("Health should stay open, got %d", rec.Code)
	}
}

func TestTokenRouteDisabledWithoutAuth(t *testing.T) {
	e := setupTestServer(&fakeSessions{}, nil)

	rec := doRequest(e, http.MethodPost, "/api/auth/token", `{"api_key":"x"}`, nil)
	if rec.Code == http.StatusOK {
		t.Error("Token route should not exist when auth is disabled")
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		input string
		want  flexInt
	}{
		{`3`, flexInt{Value: 3, Set: true, Valid: true}},
		{`"7"`, flexInt{Value: 7, Set: true, Valid: true}},
		{`" 2 "`, flexInt{Value: 2, Set: true, Valid: true}},
		{`"x"`, flexInt{Set: true}},
		{`1.5`, flexInt{Set: true}},
		{`null`, flexInt{}},
	}

	for _, tt := range tests {
		var got flexInt
		if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
			t.Errorf("Unmarshal(%s) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}
