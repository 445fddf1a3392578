package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/workflow"
)

const (
	NodeTemplateSelection workflow.NodeID = "template_selection"
	NodeSummaryGeneration workflow.NodeID = "summary_generation"
)

// TemplateSelectionNode asks a reasoning model which template fits the text
type TemplateSelectionNode struct {
	generator repositories.TextGenerator
	options   repositories.GenerateOptions
	timeout   time.Duration
	logger    *zap.Logger
}

func NewTemplateSelectionNode(generator repositories.TextGenerator, options repositories.GenerateOptions, timeout time.Duration, logger *zap.Logger) *TemplateSelectionNode {
	return &TemplateSelectionNode{
		generator: generator,
		options:   options,
		timeout:   timeout,
		logger:    logger,
	}
}

func (n *TemplateSelectionNode) ID() workflow.NodeID {
	return NodeTemplateSelection
}

func (n *TemplateSelectionNode) Execute(ctx context.Context, state State) (State, error) {
	n.logger.Info("Executing template selection node", zap.Int("text_length", len(state.AccumulatedText)))

	state.SelectedTemplate = DefaultTemplate

	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	reasoning, err := n.generator.Generate(ctx, buildSelectionPrompt(state.AccumulatedText), n.options)
	if err != nil {
		return state, fmt.Errorf("template selection failed: %w", err)
	}

	state.Reasoning = reasoning
	state.SelectedTemplate = SelectTemplate(reasoning)

	n.logger.Info("Template selected", zap.String("template", state.SelectedTemplate.String()))
	return state, nil
}

// SummaryGenerationNode writes the summary in the selected template
type SummaryGenerationNode struct {
	generator repositories.TextGenerator
	options   repositories.GenerateOptions
	timeout   time.Duration
	logger    *zap.Logger
}

func NewSummaryGenerationNode(generator repositories.TextGenerator, options repositories.GenerateOptions, timeout time.Duration, logger *zap.Logger) *SummaryGenerationNode {
	return &SummaryGenerationNode{
		generator: generator,
		options:   options,
		timeout:   timeout,
		logger:    logger,
	}
}

func (n *SummaryGenerationNode) ID() workflow.NodeID {
	return NodeSummaryGeneration
}

func (n *SummaryGenerationNode) Execute(ctx context.Context, state State) (State, error) {
	n.logger.Info("Executing summary generation node", zap.String("template", state.SelectedTemplate.String()))

	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	summary, err := n.generator.Generate(ctx, buildGenerationPrompt(state.SelectedTemplate, state.AccumulatedText), n.options)
	if err != nil {
		return state, fmt.Errorf("summary generation failed: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return state, fmt.Errorf("summary generation returned empty text")
	}

	messages := make([]Message, len(state.Messages), len(state.Messages)+1)
	copy(messages, state.Messages)
	state.Messages = append(messages, Message{
		Role:    RoleAssistant,
		Content: summary,
	})

	n.logger.Info("Summary generated", zap.Int("summary_length", len(summary)))
	return state, nil
}

func buildSelectionPrompt(text string) string {
	return `You are a template selection expert. Given the following translation content, select the most appropriate template from the options below.

Translation content:
` + text + `

Available templates:
1. Architecture Expert Template: For technical architecture and system design discussions
2. Technical Briefing Template: For detailed technical explanations and operational considerations
3. FAQ Template: For creating question-answer format documentation
4. Comparison Template: For comparing different technologies or approaches

Think step by step about which template would be most suitable for this content.
You MUST start your response with '<think>
' and end with '</think>'.
Your response should be in the format: 'template_name: reason'`
}

func buildGenerationPrompt(template Template, text string) string {
	return `You are a technical documentation expert. Use the following template to summarize the translation content:

` + template.Prompt() + `

Translation content:
` + text + `

Provide a clear and well-structured summary following the template format.`
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
