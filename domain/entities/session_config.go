package entities

import (
	"errors"
	"fmt"
)

const (
	DefaultInputLanguage  = "en"
	DefaultTargetLanguage = "ko"
	DefaultModel          = "exaone3.5:latest"
	DefaultChunkDuration  = 3
	DefaultModelSize      = "small"
	DefaultSampleRate     = 16000
	DefaultChannels       = 2

	maxChunkDuration = 30
)

// ErrInvalidConfig is returned when a session configuration cannot be used
var ErrInvalidConfig = errors.New("invalid session config")

// SessionConfig holds the per-session settings chosen by the operator
type SessionConfig struct {
	InputLanguage  string `json:"inputLanguage" bson:"input_language"`
	TargetLanguage string `json:"targetLanguage" bson:"target_language"`
	SelectedModel  string `json:"selectedModel" bson:"selected_model"`
	ChunkDuration  int    `json:"chunkDuration" bson:"chunk_duration"`
	ModelSize      string `json:"modelSize" bson:"model_size"`
	DeviceIndex    int    `json:"deviceIndex" bson:"device_index"`
	SampleRate     int    `json:"-" bson:"sample_rate"`
	Channels       int    `json:"-" bson:"channels"`
}

// WithDefaults returns a copy with every unset field filled in
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.InputLanguage == "" {
		c.InputLanguage = DefaultInputLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = DefaultTargetLanguage
	}
	if c.SelectedModel == "" {
		c.SelectedModel = DefaultModel
	}
	if c.ChunkDuration == 0 {
		c.ChunkDuration = DefaultChunkDuration
	}
	if c.ModelSize == "" {
		c.ModelSize = DefaultModelSize
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	return c
}

// BlockSize is the number of frames per captured block
func (c SessionConfig) BlockSize() int {
	return c.SampleRate * c.ChunkDuration
}

// Validate checks a defaulted configuration
func (c SessionConfig) Validate() error {
	if c.ChunkDuration < 1 || c.ChunkDuration > maxChunkDuration {
		return fmt.Errorf("%w: chunkDuration must be between 1 and %d seconds, got %d", ErrInvalidConfig, maxChunkDuration, c.ChunkDuration)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("%w: deviceIndex must not be negative", ErrInvalidConfig)
	}
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("%w: sample rate must be between 8000 and 48000, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels < 1 {
		return fmt.Errorf("%w: at least one channel is required", ErrInvalidConfig)
	}
	if c.SelectedModel == "" {
		return fmt.Errorf("%w: selectedModel is required", ErrInvalidConfig)
	}
	return nil
}
