package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaConfig configures the Ollama client
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaLLM implements TextGenerator and ModelCatalog against a local Ollama server
type OllamaLLM struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllamaLLM creates a new Ollama client
func NewOllamaLLM(config OllamaConfig, logger *zap.Logger) (*OllamaLLM, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}

	return &OllamaLLM{
		client: api.NewClient(base, &http.Client{Timeout: config.Timeout}),
		model:  config.Model,
		logger: logger,
	}, nil
}

// Generate sends one non-streaming generate request
func (o *OllamaLLM) Generate(ctx context.Context, prompt string, opts repositories.GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = o.model
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}
	if opts.Temperature != 0 || len(opts.Stop) > 0 {
		req.Options = map[string]interface{}{}
		if opts.Temperature != 0 {
			req.Options["temperature"] = opts.Temperature
		}
		if len(opts.Stop) > 0 {
			req.Options["stop"] = opts.Stop
		}
	}

	var response strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	o.logger.Debug("Ollama generation completed",
		zap.String("model", model),
		zap.Int("response_length", response.Len()))

	return strings.TrimSpace(response.String()), nil
}

// ListModels returns the names of locally installed models
func (o *OllamaLLM) ListModels(ctx context.Context) ([]string, error) {
	list, err := o.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list: %w", err)
	}

	models := make([]string, 0, len(list.Models))
	for _, model := range list.Models {
		models = append(models, model.Name)
	}
	return models, nil
}
