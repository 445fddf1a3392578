package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes workflow definitions synchronously
type Runner[S any] struct {
	logger    *zap.Logger
	eventChan chan Event
}

// NewRunner creates a new workflow runner
func NewRunner[S any](logger *zap.Logger) *Runner[S] {
	return &Runner[S]{
		logger:    logger,
		eventChan: make(chan Event, 100),
	}
}

// Run executes def from its entry node until End and returns the final state.
// Node failures are recorded in the execution, not returned. An error is returned
// only when the graph itself is invalid. An empty id is replaced with a generated one.
func (r *Runner[S]) Run(ctx context.Context, id ExecutionID, def Definition[S], initial S) (S, Execution, error) {
	path, nodes, err := plan(def)
	if err != nil {
		return initial, Execution{}, err
	}

	if id == "" {
		id = ExecutionID(uuid.NewString())
	}

	execution := Execution{
		ID:         id,
		Definition: def.ID(),
		State:      ExecutionStateStarted,
		Nodes:      make([]NodeExecution, len(path)),
		StartedAt:  time.Now(),
	}
	for i, nodeID := range path {
		execution.Nodes[i] = NodeExecution{ID: nodeID, State: NodeStatePending}
	}

	r.emitEvent(Event{ExecutionID: id, Type: EventWorkflowStarted, Timestamp: execution.StartedAt})
	r.logger.Info("Workflow started", zap.String("executionID", string(id)), zap.String("definition", def.ID()))

	if timeout := def.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	execution.State = ExecutionStateRunning
	state := initial
	failed := false

	for i, nodeID := range path {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.skipRemaining(&execution, i, ctxErr)
			break
		}

		var nodeErr error
		state, nodeErr = r.executeNode(ctx, &execution, i, nodes[nodeID], state)
		if nodeErr != nil {
			failed = true
		}
	}

	now := time.Now()
	execution.CompletedAt = &now

	switch {
	case execution.State == ExecutionStateCancelled:
		r.emitEvent(Event{ExecutionID: id, Type: EventWorkflowCancelled, Timestamp: now, Error: execution.Error})
		r.logger.Warn("Workflow cancelled", zap.String("executionID", string(id)), zap.String("error", execution.Error))
	case failed:
		execution.State = ExecutionStateDegraded
		r.emitEvent(Event{ExecutionID: id, Type: EventWorkflowDegraded, Timestamp: now})
		r.logger.Warn("Workflow completed with failed nodes", zap.String("executionID", string(id)))
	default:
		execution.State = ExecutionStateCompleted
		r.emitEvent(Event{ExecutionID: id, Type: EventWorkflowCompleted, Timestamp: now})
		r.logger.Info("Workflow completed",
			zap.String("executionID", string(id)),
			zap.Duration("duration", now.Sub(execution.StartedAt)))
	}

	return state, execution, nil
}

// executeNode runs a single node and records its outcome
func (r *Runner[S]) executeNode(ctx context.Context, execution *Execution, index int, node Node[S], state S) (S, error) {
	record := &execution.Nodes[index]
	record.State = NodeStateRunning

	started := time.Now()
	record.StartedAt = &started

	r.emitEvent(Event{ExecutionID: execution.ID, NodeID: node.ID(), Type: EventNodeStarted, Timestamp: started})

	next, err := node.Execute(ctx, state)

	completed := time.Now()
	record.CompletedAt = &completed

	if err != nil {
		record.State = NodeStateFailed
		record.Error = err.Error()

		r.emitEvent(Event{
			ExecutionID: execution.ID,
			NodeID:      node.ID(),
			Type:        EventNodeFailed,
			Timestamp:   completed,
			Error:       err.Error(),
		})

		r.logger.Warn("Node failed",
			zap.String("executionID", string(execution.ID)),
			zap.String("nodeID", string(node.ID())),
			zap.Error(err))

		return next, err
	}

	record.State = NodeStateCompleted

	r.emitEvent(Event{ExecutionID: execution.ID, NodeID: node.ID(), Type: EventNodeCompleted, Timestamp: completed})

	r.logger.Info("Node completed",
		zap.String("executionID", string(execution.ID)),
		zap.String("nodeID", string(node.ID())),
		zap.Duration("duration", completed.Sub(started)))

	return next, nil
}

// skipRemaining marks every node from index on as skipped
func (r *Runner[S]) skipRemaining(execution *Execution, from int, cause error) {
	execution.State = ExecutionStateCancelled
	execution.Error = cause.Error()

	for i := from; i < len(execution.Nodes); i++ {
		execution.Nodes[i].State = NodeStateSkipped
		r.emitEvent(Event{
			ExecutionID: execution.ID,
			NodeID:      execution.Nodes[i].ID,
			Type:        EventNodeSkipped,
			Timestamp:   time.Now(),
			Error:       cause.Error(),
		})
	}
}

// plan validates the graph and returns the node order from the entry to End
func plan[S any](def Definition[S]) ([]NodeID, map[NodeID]Node[S], error) {
	nodes := make(map[NodeID]Node[S], len(def.Nodes()))
	for _, node := range def.Nodes() {
		if node.ID() == End {
			return nil, nil, fmt.Errorf("%w: node id %q is reserved", ErrInvalidGraph, End)
		}
		if _, exists := nodes[node.ID()]; exists {
			return nil, nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, node.ID())
		}
		nodes[node.ID()] = node
	}

	edges := def.Edges()
	for from, to := range edges {
		if _, exists := nodes[from]; !exists {
			return nil, nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvalidGraph, from)
		}
		if _, exists := nodes[to]; !exists && to != End {
			return nil, nil, fmt.Errorf("%w: edge to unknown node %q", ErrInvalidGraph, to)
		}
	}

	current := def.Entry()
	if _, exists := nodes[current]; !exists {
		return nil, nil, fmt.Errorf("%w: unknown entry node %q", ErrInvalidGraph, current)
	}

	visited := make(map[NodeID]bool, len(nodes))
	var path []NodeID
	for current != End {
		if visited[current] {
			return nil, nil, fmt.Errorf("%w: cycle at node %q", ErrInvalidGraph, current)
		}
		visited[current] = true
		path = append(path, current)

		next, exists := edges[current]
		if !exists {
			break
		}
		current = next
	}

	return path, nodes, nil
}

func (r *Runner[S]) emitEvent(event Event) {
	select {
	case r.eventChan <- event:
	default:
		r.logger.Warn("Event channel full, dropping event", zap.String("type", event.Type))
	}
}

// EventChannel returns the event channel for listening to workflow events
func (r *Runner[S]) EventChannel() <-chan Event {
	return r.eventChan
}
