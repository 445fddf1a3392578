package summary

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/workflow"
)

// Service runs the summary workflow
type Service struct {
	runner     *workflow.Runner[State]
	definition *Definition
	logger     *zap.Logger
}

// NewService creates a summary service. reasoning classifies the text, response writes
// the summary; they may be the same generator.
func NewService(reasoning, response repositories.TextGenerator, config Config, logger *zap.Logger) *Service {
	config = config.WithDefaults()

	selection := NewTemplateSelectionNode(reasoning, repositories.GenerateOptions{
		Model:       config.ReasoningModel,
		Temperature: config.Temperature,
		Stop:        config.ReasoningStop,
	}, config.ModelTimeout, logger)

	generation := NewSummaryGenerationNode(response, repositories.GenerateOptions{
		Model:       config.ResponseModel,
		Temperature: config.Temperature,
	}, config.ModelTimeout, logger)

	return &Service{
		runner:     workflow.NewRunner[State](logger),
		definition: NewDefinition(selection, generation, config.Timeout),
		logger:     logger,
	}
}

// Summarize runs the workflow to completion over text. It always returns a state;
// callers check State.Summary for whether a summary was produced.
func (s *Service) Summarize(ctx context.Context, executionID string, text string) State {
	initial := NewState(text)

	final, execution, err := s.runner.Run(ctx, workflow.ExecutionID(executionID), s.definition, initial)
	if err != nil {
		s.logger.Error("Summary workflow could not run", zap.Error(err))
		return initial
	}

	_, produced := final.Summary()
	s.logger.Info("Summary workflow finished",
		zap.String("executionID", string(execution.ID)),
		zap.String("state", string(execution.State)),
		zap.String("template", final.SelectedTemplate.String()),
		zap.Bool("produced", produced))

	return final
}

// StartEventListener forwards workflow events to handler until ctx is done
func (s *Service) StartEventListener(ctx context.Context, handler func(workflow.Event)) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-s.runner.EventChannel():
				s.handleEvent(event)
				if handler != nil {
					handler(event)
				}
			}
		}
	}()
}

// handleEvent logs workflow events for monitoring
func (s *Service) handleEvent(event workflow.Event) {
	switch event.Type {
	case workflow.EventWorkflowStarted, workflow.EventWorkflowCompleted:
		s.logger.Debug("Summary workflow event",
			zap.String("type", event.Type),
			zap.String("executionID", string(event.ExecutionID)))
	case workflow.EventNodeFailed, workflow.EventNodeSkipped:
		s.logger.Warn("Summary node did not complete",
			zap.String("type", event.Type),
			zap.String("executionID", string(event.ExecutionID)),
			zap.String("nodeID", string(event.NodeID)),
			zap.String("error", event.Error))
	default:
		s.logger.Debug("Summary workflow event",
			zap.String("type", event.Type),
			zap.String("nodeID", string(event.NodeID)))
	}
}
