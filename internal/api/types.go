package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// StartRequest is the body of POST /api/start
type StartRequest struct {
	InputLanguage  string  `json:"inputLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
	SelectedModel  string  `json:"selectedModel"`
	ChunkDuration  flexInt `json:"chunkDuration"`
	ModelSize      string  `json:"modelSize"`
	DeviceIndex    flexInt `json:"deviceIndex"`
}

// flexInt accepts a JSON number or a numeric string. Anything else is kept as set but invalid.
type flexInt struct {
	Value int
	Set   bool
	Valid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	f.Set = true
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		f.Set = false
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSpace(s)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		f.Valid = false
		return nil
	}
	f.Value = n
	f.Valid = true
	return nil
}

// StatusResponse is returned by the session control routes
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StopResponse is the body of POST /api/stop
type StopResponse struct {
	Status     string `json:"status"`
	Summary    string `json:"summary"`
	SessionID  string `json:"session_id,omitempty"`
	Template   string `json:"template,omitempty"`
	ExportPath string `json:"export_path,omitempty"`
}

// DeviceResponse is one entry of GET /api/audio-devices
type DeviceResponse struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	MaxInputChannels  int    `json:"max_input_channels"`
	MaxOutputChannels int    `json:"max_output_channels"`
}

// ModelResponse is one entry of GET /api/models
type ModelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TokenRequest represents the request payload for token issuance
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// TokenResponse represents the response payload for token issuance
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
