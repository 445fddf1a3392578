package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
)

// Observer is called with every successful translation. It runs on the processing
// goroutine and must return quickly.
type Observer func(original, translated string)

// TranslationStage translates one utterance with a single generation call.
type TranslationStage struct {
	generator repositories.TextGenerator
	cache     repositories.TranslationCache
	observer  Observer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewTranslationStage creates a translation stage. cache and observer may be nil.
func NewTranslationStage(
	generator repositories.TextGenerator,
	cache repositories.TranslationCache,
	observer Observer,
	timeout time.Duration,
	logger *zap.Logger,
) *TranslationStage {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &TranslationStage{
		generator: generator,
		cache:     cache,
		observer:  observer,
		timeout:   timeout,
		logger:    logger,
	}
}

// BuildTranslationPrompt asks for a natural translation and nothing else.
func BuildTranslationPrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf("다음 %s 텍스트를 자연스러운 %s로 번역해주세요. 번역만 출력하세요:\n%s",
		entities.SourceLanguageName(sourceLang),
		entities.TargetLanguageName(targetLang),
		text)
}

// Translate returns the translation of text, or false on any failure. It never retries.
func (s *TranslationStage) Translate(ctx context.Context, text, sourceLang, targetLang, modelID string) (string, bool) {
	key := repositories.TranslationKey{Source: sourceLang, Target: targetLang, Model: modelID, Text: text}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Translation cache lookup failed", zap.Error(err))
		} else if ok {
			s.notify(text, cached)
			return cached, true
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	translated, err := s.generator.Generate(callCtx, BuildTranslationPrompt(text, sourceLang, targetLang), repositories.GenerateOptions{
		Model: modelID,
	})
	if err != nil {
		s.logger.Warn("Translation failed, dropping utterance",
			zap.String("model", modelID),
			zap.Error(err))
		return "", false
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		s.logger.Warn("Empty translation, dropping utterance", zap.String("model", modelID))
		return "", false
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, translated); err != nil {
			s.logger.Warn("Failed to store translation in cache", zap.Error(err))
		}
	}

	s.notify(text, translated)
	return translated, true
}

func (s *TranslationStage) notify(original, translated string) {
	if s.observer != nil {
		s.observer(original, translated)
	}
}
