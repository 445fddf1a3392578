package stt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
)

// OpenAIConfig configures a Whisper-compatible transcription endpoint
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAISpeechToText implements SpeechToText with the audio transcriptions API
type OpenAISpeechToText struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAISpeechToText creates a transcription client. Retries are disabled so a
// slow endpoint cannot stack latency against the live feed.
func NewOpenAISpeechToText(config OpenAIConfig, logger *zap.Logger) (*OpenAISpeechToText, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	model := config.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	return &OpenAISpeechToText{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// TranscribeAudio uploads the samples as a WAV file and returns the recognised text
func (s *OpenAISpeechToText) TranscribeAudio(ctx context.Context, samples []float32, config repositories.AudioConfig) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	data, err := encodeWAV(samples, config.SampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode audio: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(s.model),
	}
	if config.Language != "" {
		params.Language = openai.String(config.Language)
	}

	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	s.logger.Debug("Transcription completed",
		zap.Int("samples", len(samples)),
		zap.String("language", config.Language),
		zap.Int("text_length", len(resp.Text)))

	return resp.Text, nil
}
