package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Execution is the outcome of running or resuming a graph thread.
type Execution[S any] struct {
	Status ExecStatus
	State  S

	// Payload is set when Status is StatusAwaitingApproval.
	Payload any
}

// ErrNotAwaitingApproval is returned code when resuming a thread that is not
// suspended at the interrupt node.
var ErrNotAwaitingApproval = types.NewError(types.NO_PENDING_APPROVAL,
	"thread is not awaiting approval")

// Runner executes one graph over a checkpoint store. Executions within one
// thread are strictly sequential; the caller must not run the same thread
// concurrently.
type Runner[S, D any] struct {
	graph  *Graph[S, D]
	store  CheckpointStore
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption[S, D any] func(*Runner[S, D])

// WithRunnerLogger sets the logger.
func WithRunnerLogger[S, D any](l *slog.Logger) RunnerOption[S, D] {
	return func(r *Runner[S, D]) { r.logger = l }
}

// NewRunner binds a graph to a checkpoint store.
func NewRunner[S, D any](g *Graph[S, D], store CheckpointStore, opts ...RunnerOption[S, D]) *Runner[S, D] {
	r := &Runner[S, D]{graph: g, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts a fresh execution under threadID from the entry node.
func (r *Runner[S, D]) Run(ctx context.Context, threadID string, initial S) (Execution[S], error) {
	return r.runFrom(ctx, threadID, r.graph.entry, initial)
}

// Resume loads a suspended thread, applies the decision, and continues
// execution. It fails with a NO_PENDING_APPROVAL error when the thread does
// not exist or is not suspended at the interrupt node.
func (r *Runner[S, D]) Resume(ctx context.Context, threadID string, decision D) (Execution[S], error) {
	state, err := r.LoadAwaiting(ctx, threadID)
	if err != nil {
		return Execution[S]{Status: StatusFailed}, err
	}

	next, resumed, err := r.applyDecision(ctx, threadID, state, decision)
	if err != nil {
		return Execution[S]{Status: StatusFailed, State: state}, err
	}
	return r.runFrom(ctx, threadID, next, resumed)
}

// LoadAwaiting returns the saved state of a thread suspended at the
// interrupt node. Used by crash recovery before resuming.
func (r *Runner[S, D]) LoadAwaiting(ctx context.Context, threadID string) (S, error) {
	var state S
	cp, ok, err := r.store.Get(ctx, threadID)
	if err != nil {
		return state, err
	}
	if !ok || cp.Status != StatusAwaitingApproval {
		return state, ErrNotAwaitingApproval
	}
	if len(cp.NextNodes) != 1 || cp.NextNodes[0] != r.graph.interruptNode {
		return state, ErrNotAwaitingApproval
	}
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return state, types.WrapError(types.CHECKPOINT_FAILED, "failed to decode checkpoint state", err)
	}
	return state, nil
}

func (r *Runner[S, D]) applyDecision(ctx context.Context, threadID string, state S, decision D) (string, S, error) {
	resumed, err := r.graph.interrupt.Resume(ctx, state, decision)
	if err != nil {
		return "", state, err
	}
	next, err := r.next(r.graph.interruptNode, resumed)
	if err != nil {
		return "", resumed, err
	}
	return next, resumed, nil
}

func (r *Runner[S, D]) runFrom(ctx context.Context, threadID, start string, state S) (Execution[S], error) {
	current := start
	for current != End {
		if err := ctx.Err(); err != nil {
			return Execution[S]{Status: StatusFailed, State: state}, err
		}

		if current == r.graph.interruptNode {
			exec, cont, next, err := r.enterInterrupt(ctx, threadID, state)
			if err != nil {
				return Execution[S]{Status: StatusFailed, State: state}, err
			}
			if !cont {
				return exec, nil
			}
			state = exec.State
			current = next
			continue
		}

		fn, ok := r.graph.nodes[current]
		if !ok {
			err := types.NewErrorf(types.PIPELINE_FAILED, "unknown node %q", current)
			r.checkpoint(ctx, threadID, StatusFailed, state, nil, nil)
			return Execution[S]{Status: StatusFailed, State: state}, err
		}

		r.logger.Debug("executing node", "graph", r.graph.name, "thread_id", threadID, "node", current)
		next, err := fn(ctx, state)
		if err != nil {
			r.checkpoint(ctx, threadID, StatusFailed, state, nil, nil)
			return Execution[S]{Status: StatusFailed, State: state},
				types.WrapError(types.PIPELINE_FAILED, fmt.Sprintf("node %q failed", current), err)
		}
		state = next

		target, err := r.next(current, state)
		if err != nil {
			r.checkpoint(ctx, threadID, StatusFailed, state, nil, nil)
			return Execution[S]{Status: StatusFailed, State: state}, err
		}

		if err := r.checkpoint(ctx, threadID, StatusRunning, state, []string{target}, nil); err != nil {
			return Execution[S]{Status: StatusFailed, State: state}, err
		}
		current = target
	}

	if err := r.checkpoint(ctx, threadID, StatusDone, state, nil, nil); err != nil {
		return Execution[S]{Status: StatusFailed, State: state}, err
	}
	return Execution[S]{Status: StatusDone, State: state}, nil
}

// enterInterrupt runs the interrupt guard. When it suspends, the returned
// Execution carries the payload; otherwise execution continues at next.
func (r *Runner[S, D]) enterInterrupt(ctx context.Context, threadID string, state S) (Execution[S], bool, string, error) {
	spec := r.graph.interrupt

	suspend := true
	if spec.Guard != nil {
		state, suspend = spec.Guard(state)
	}

	if !suspend {
		next, err := r.next(r.graph.interruptNode, state)
		if err != nil {
			r.checkpoint(ctx, threadID, StatusFailed, state, nil, nil)
			return Execution[S]{}, false, "", err
		}
		if err := r.checkpoint(ctx, threadID, StatusRunning, state, []string{next}, nil); err != nil {
			return Execution[S]{}, false, "", err
		}
		return Execution[S]{Status: StatusRunning, State: state}, true, next, nil
	}

	var payload any
	var rawPayload json.RawMessage
	if spec.Payload != nil {
		payload = spec.Payload(state)
		data, err := json.Marshal(payload)
		if err != nil {
			return Execution[S]{}, false, "", types.WrapError(types.CHECKPOINT_FAILED, "failed to encode approval payload", err)
		}
		rawPayload = data
	}

	nodes := []string{r.graph.interruptNode}
	if err := r.checkpoint(ctx, threadID, StatusAwaitingApproval, state, nodes, rawPayload); err != nil {
		return Execution[S]{}, false, "", err
	}
	return Execution[S]{Status: StatusAwaitingApproval, State: state, Payload: payload}, false, "", nil
}

func (r *Runner[S, D]) next(from string, state S) (string, error) {
	if to, ok := r.graph.edges[from]; ok {
		return to, nil
	}
	if br, ok := r.graph.branches[from]; ok {
		label := br.cond(state)
		target, ok := br.targets[label]
		if !ok {
			return "", types.NewErrorf(types.PIPELINE_FAILED,
				"branch from %q returned unroutable label %q", from, label)
		}
		return target, nil
	}
	return "", types.NewErrorf(types.PIPELINE_FAILED, "node %q has no outgoing route", from)
}

func (r *Runner[S, D]) checkpoint(ctx context.Context, threadID string, status ExecStatus, state S, nextNodes []string, payload json.RawMessage) error {
	data, err := json.Marshal(state)
	if err != nil {
		return types.WrapError(types.CHECKPOINT_FAILED, "failed to encode state", err)
	}
	cp := Checkpoint{
		ThreadID:  threadID,
		GraphKind: r.graph.name,
		Status:    status,
		State:     data,
		NextNodes: nextNodes,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.store.Put(ctx, cp); err != nil {
		return err
	}
	return nil
}
