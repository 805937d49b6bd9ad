// Package graph is a generic, checkpointed pipeline engine. A graph is a set
// of named nodes connected by static edges and conditional branches, with at
// most one interrupt node where execution suspends for an external decision.
// A runner persists a checkpoint after every node so an interrupted or
// crashed execution can resume exactly where it stopped.
package graph

import "context"

// End is the terminal pseudo-node. Routing to End finishes the execution.
const End = "end"

// NodeFunc transforms the pipeline state. A returned error fails the whole
// execution; nodes that want to degrade instead record the problem in the
// state and return nil.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// BranchFunc inspects the state and returns a routing label.
type BranchFunc[S any] func(state S) string

// InterruptSpec declares the graph's interrupt node.
//
// When execution reaches the node, Guard runs first: it may mutate the state
// and decide whether to actually suspend. When it suspends, Payload renders
// the data shown to the decision maker and the runner returns with
// StatusAwaitingApproval. Resume applies the external decision to the saved
// state before execution continues along the node's outgoing route.
type InterruptSpec[S, D any] struct {
	// Guard decides whether to suspend. Nil means always suspend.
	Guard func(state S) (S, bool)

	// Payload renders the approval payload. Nil means no payload.
	Payload func(state S) any

	// Resume folds the decision into the state. Required.
	Resume func(ctx context.Context, state S, decision D) (S, error)
}

type branch[S any] struct {
	cond    BranchFunc[S]
	targets map[string]string
}

// Graph is an immutable, validated pipeline definition. Build one with a
// Builder and execute it with a Runner.
type Graph[S, D any] struct {
	name          string
	entry         string
	nodes         map[string]NodeFunc[S]
	edges         map[string]string
	branches      map[string]branch[S]
	interruptNode string
	interrupt     *InterruptSpec[S, D]
}

// Name returns the graph name, used as the checkpoint graph kind.
func (g *Graph[S, D]) Name() string { return g.name }

// InterruptNode returns the interrupt node name, or "" when the graph has
// no interrupt.
func (g *Graph[S, D]) InterruptNode() string { return g.interruptNode }
