package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/config"
	"github.com/satriahrh/voxlate/internal/workflow/summary"
)

// slowOllama answers every generate call after delay
func slowOllama(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)

		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		response := "# 요약\n- 항목"
		if strings.Contains(req.Prompt, "template selection expert") {
			response = "faq: the content is a list of questions"
		}
		json.NewEncoder(w).Encode(api.GenerateResponse{Model: req.Model, Response: response, Done: true})
	}))
}

func TestSummaryModelUsesSummaryTimeout(t *testing.T) {
	server := slowOllama(t, 150*time.Millisecond)
	defer server.Close()

	cfg := config.Default()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Timeout = 60 * time.Millisecond
	cfg.LLM.Ollama.BaseURL = server.URL
	cfg.Summary.Provider = "ollama"
	cfg.Summary.ModelTimeout = 5 * time.Second

	translator, err := newLanguageModel(context.Background(), cfg.LLM.Provider, cfg.LLM, zap.NewNop())
	if err != nil {
		t.Fatalf("newLanguageModel failed: %v", err)
	}
	if _, err := translator.Generate(context.Background(), "translate", repositories.GenerateOptions{}); err == nil {
		t.Fatal("Translation client should give up after llm.timeout")
	}

	model, err := newSummaryModel(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newSummaryModel failed: %v", err)
	}

	service := summary.NewService(model, model, summary.Config{ModelTimeout: cfg.Summary.ModelTimeout}, zap.NewNop())
	state := service.Summarize(context.Background(), "session-1", "How do I reset my password? Where are invoices?")

	if state.SelectedTemplate != summary.TemplateFAQ {
		t.Errorf("Expected faq template, got %s", state.SelectedTemplate)
	}
	if text, ok := state.Summary(); !ok || text == "" {
		t.Errorf("Expected a summary within summary.model_timeout, got %q (ok=%v)", text, ok)
	}
}

func TestNewLanguageModelProviders(t *testing.T) {
	cfg := config.Default()

	for _, provider := range []string{"ollama", "mock"} {
		t.Run(provider, func(t *testing.T) {
			if _, err := newLanguageModel(context.Background(), provider, cfg.LLM, zap.NewNop()); err != nil {
				t.Errorf("newLanguageModel(%s) failed: %v", provider, err)
			}
		})
	}

	if _, err := newLanguageModel(context.Background(), "gemini", cfg.LLM, zap.NewNop()); err == nil {
		t.Error("Gemini without an API key should fail")
	}
}
