// Package workflow runs small directed graphs of state-transforming nodes.
package workflow

import (
	"context"
	"errors"
	"time"
)

// ExecutionState represents the current state of a workflow execution
type ExecutionState string

const (
	ExecutionStateStarted   ExecutionState = "started"
	ExecutionStateRunning   ExecutionState = "running"
	ExecutionStateCompleted ExecutionState = "completed"
	ExecutionStateDegraded  ExecutionState = "degraded"
	ExecutionStateCancelled ExecutionState = "cancelled"
)

// NodeState represents the state of an individual node
type NodeState string

const (
	NodeStatePending   NodeState = "pending"
	NodeStateRunning   NodeState = "running"
	NodeStateCompleted NodeState = "completed"
	NodeStateFailed    NodeState = "failed"
	NodeStateSkipped   NodeState = "skipped"
)

// ExecutionID uniquely identifies a workflow execution
type ExecutionID string

// NodeID uniquely identifies a node within a definition
type NodeID string

// End marks the terminal edge target.
const End NodeID = "__end__"

// ErrInvalidGraph is returned when a definition cannot be executed.
var ErrInvalidGraph = errors.New("invalid workflow graph")

// Node transforms the workflow state. A node that fails still returns the state the
// next node should see; the error is recorded and execution continues.
type Node[S any] interface {
	ID() NodeID
	Execute(ctx context.Context, state S) (S, error)
}

// Definition describes the nodes and edges of a workflow
type Definition[S any] interface {
	ID() string
	Entry() NodeID
	Nodes() []Node[S]
	Edges() map[NodeID]NodeID
	Timeout() time.Duration
}

// Execution records one run of a definition
type Execution struct {
	ID          ExecutionID     `json:"id"`
	Definition  string          `json:"definition"`
	State       ExecutionState  `json:"state"`
	Nodes       []NodeExecution `json:"nodes"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// NodeExecution represents the execution state of a node
type NodeExecution struct {
	ID          NodeID     `json:"id"`
	State       NodeState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Node returns the execution record of a node, if it was scheduled.
func (e Execution) Node(id NodeID) (NodeExecution, bool) {
	for _, node := range e.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return NodeExecution{}, false
}

// Event represents an event in the workflow lifecycle
type Event struct {
	ExecutionID ExecutionID `json:"execution_id"`
	NodeID      NodeID      `json:"node_id,omitempty"`
	Type        string      `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	Error       string      `json:"error,omitempty"`
}

// Event types
const (
	EventWorkflowStarted   = "workflow_started"
	EventWorkflowCompleted = "workflow_completed"
	EventWorkflowDegraded  = "workflow_degraded"
	EventWorkflowCancelled = "workflow_cancelled"
	EventNodeStarted       = "node_started"
	EventNodeCompleted     = "node_completed"
	EventNodeFailed        = "node_failed"
	EventNodeSkipped       = "node_skipped"
)
