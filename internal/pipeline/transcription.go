// Package pipeline runs captured audio through transcription and translation.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/audio"
)

const defaultCallTimeout = 60 * time.Second

// TranscriptionStage turns one captured frame into text.
type TranscriptionStage struct {
	stt     repositories.SpeechToText
	timeout time.Duration
	logger  *zap.Logger
}

// NewTranscriptionStage creates a transcription stage. A zero timeout uses 60s.
func NewTranscriptionStage(stt repositories.SpeechToText, timeout time.Duration, logger *zap.Logger) *TranscriptionStage {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &TranscriptionStage{
		stt:     stt,
		timeout: timeout,
		logger:  logger,
	}
}

// Transcribe returns the trimmed transcription of frame, or false when the frame is
// silent or the recognizer fails or hears nothing.
func (s *TranscriptionStage) Transcribe(ctx context.Context, frame audio.Frame, languageHint string) (string, bool) {
	if frame.IsSilent() {
		return "", false
	}

	mono := audio.Downmix(frame.Samples, frame.Channels)
	if !audio.Normalize(mono) {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.stt.TranscribeAudio(ctx, mono, repositories.AudioConfig{
		SampleRate: frame.SampleRate,
		Language:   languageHint,
	})
	if err != nil {
		s.logger.Warn("Transcription failed, dropping frame",
			zap.Duration("frame_duration", frame.Duration()),
			zap.Error(err))
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	s.logger.Debug("Frame transcribed", zap.String("text", text))
	return text, true
}
