// Package summary turns a session's translations into a structured summary using a
// two-node workflow: template selection, then summary generation.
package summary

import (
	"time"

	"github.com/satriahrh/voxlate/internal/workflow"
)

const (
	DefaultReasoningModel = "deepseek-r1:7b"
	DefaultResponseModel  = "exaone3.5:latest"
	DefaultTemperature    = 0.7
	DefaultTimeout        = 10 * time.Minute
	DefaultModelTimeout   = 300 * time.Second
)

// Config tunes the models used by the summary workflow
type Config struct {
	ReasoningModel string
	ResponseModel  string
	Temperature    float32
	ReasoningStop  []string
	Timeout        time.Duration
	ModelTimeout   time.Duration
}

// WithDefaults fills every unset field
func (c Config) WithDefaults() Config {
	if c.ReasoningModel == "" {
		c.ReasoningModel = DefaultReasoningModel
	}
	if c.ResponseModel == "" {
		c.ResponseModel = DefaultResponseModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.ReasoningStop == nil {
		c.ReasoningStop = []string{"</think>"}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	return c
}

// Definition wires template_selection -> summary_generation -> end
type Definition struct {
	selection  *TemplateSelectionNode
	generation *SummaryGenerationNode
	timeout    time.Duration
}

func NewDefinition(selection *TemplateSelectionNode, generation *SummaryGenerationNode, timeout time.Duration) *Definition {
	return &Definition{
		selection:  selection,
		generation: generation,
		timeout:    timeout,
	}
}

func (d *Definition) ID() string {
	return "summary"
}

func (d *Definition) Entry() workflow.NodeID {
	return NodeTemplateSelection
}

func (d *Definition) Nodes() []workflow.Node[State] {
	return []workflow.Node[State]{d.selection, d.generation}
}

func (d *Definition) Edges() map[workflow.NodeID]workflow.NodeID {
	return map[workflow.NodeID]workflow.NodeID{
		NodeTemplateSelection: NodeSummaryGeneration,
		NodeSummaryGeneration: workflow.End,
	}
}

func (d *Definition) Timeout() time.Duration {
	return d.timeout
}
