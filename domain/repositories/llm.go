package repositories

import "context"

// TextGenerator abstracts any text-generation provider
type TextGenerator interface {
	// Generate sends a single prompt and returns the model's reply
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// ModelCatalog lists the models a provider can serve
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]string, error)
}

// GenerateOptions tunes a single generation call. Zero values mean provider defaults.
type GenerateOptions struct {
	Model       string
	Temperature float32
	Stop        []string
}
