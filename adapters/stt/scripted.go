package stt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
)

// ScriptedSpeechToText returns queued transcriptions in order, then repeats the
// last one. It backs the "mock" provider used for offline runs.
type ScriptedSpeechToText struct {
	logger *zap.Logger

	mu      sync.Mutex
	script  []string
	next    int
	calls   int
	failErr error
}

// NewScriptedSpeechToText creates a scripted recognizer
func NewScriptedSpeechToText(logger *zap.Logger, script ...string) *ScriptedSpeechToText {
	return &ScriptedSpeechToText{
		logger: logger,
		script: script,
	}
}

// FailWith makes every call return err
func (s *ScriptedSpeechToText) FailWith(err error) *ScriptedSpeechToText {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
	return s
}

// TranscribeAudio implements repositories.SpeechToText
func (s *ScriptedSpeechToText) TranscribeAudio(ctx context.Context, samples []float32, config repositories.AudioConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.logger.Debug("Scripted transcription",
		zap.Int("samples", len(samples)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	if s.failErr != nil {
		return "", s.failErr
	}
	if len(samples) == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	if len(s.script) == 0 {
		return "", nil
	}

	text := s.script[s.next]
	if s.next < len(s.script)-1 {
		s.next++
	}
	return text, nil
}

// Calls returns how many times TranscribeAudio was called
func (s *ScriptedSpeechToText) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
