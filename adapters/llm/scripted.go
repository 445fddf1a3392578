package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/satriahrh/voxlate/domain/repositories"
)

// ScriptedLLM answers prompts from a fixed script. It backs the "mock" provider
// used for offline runs and tests.
type ScriptedLLM struct {
	mu        sync.Mutex
	rules     []scriptRule
	fallback  string
	err       error
	models    []string
	callCount int
}

type scriptRule struct {
	contains string
	response string
}

// NewScriptedLLM creates a scripted generator that answers fallback when no rule matches
func NewScriptedLLM(fallback string) *ScriptedLLM {
	return &ScriptedLLM{
		fallback: fallback,
		models:   []string{"mock"},
	}
}

// On adds a rule: prompts containing substr are answered with response.
// Rules are checked in the order they were added.
func (s *ScriptedLLM) On(substr, response string) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptRule{contains: substr, response: response})
	return s
}

// FailWith makes every call return err
func (s *ScriptedLLM) FailWith(err error) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// WithModels sets the catalog returned by ListModels
func (s *ScriptedLLM) WithModels(models ...string) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = models
	return s
}

// Generate implements repositories.TextGenerator
func (s *ScriptedLLM) Generate(ctx context.Context, prompt string, opts repositories.GenerateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}

	for _, rule := range s.rules {
		if strings.Contains(prompt, rule.contains) {
			return rule.response, nil
		}
	}
	if s.fallback == "" {
		return "", fmt.Errorf("no scripted response for prompt")
	}
	return s.fallback, nil
}

// ListModels implements repositories.ModelCatalog
func (s *ScriptedLLM) ListModels(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.models...), nil
}

// Calls returns how many times Generate was called
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
