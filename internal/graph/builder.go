package graph

import (
	"errors"
	"fmt"
)

// Builder constructs a Graph with a fluent API. It accumulates errors while
// building and reports them all at Build time.
type Builder[S, D any] struct {
	graph  *Graph[S, D]
	errors []error
}

// NewBuilder starts building a named graph.
func NewBuilder[S, D any](name string) *Builder[S, D] {
	return &Builder[S, D]{
		graph: &Graph[S, D]{
			name:     name,
			nodes:    make(map[string]NodeFunc[S]),
			edges:    make(map[string]string),
			branches: make(map[string]branch[S]),
		},
	}
}

// AddNode registers a node under a unique name.
func (b *Builder[S, D]) AddNode(name string, fn NodeFunc[S]) *Builder[S, D] {
	if name == "" || name == End {
		b.errors = append(b.errors, fmt.Errorf("invalid node name %q", name))
		return b
	}
	if fn == nil {
		b.errors = append(b.errors, fmt.Errorf("node %q has no function", name))
		return b
	}
	if _, exists := b.graph.nodes[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("node %q already exists", name))
		return b
	}
	b.graph.nodes[name] = fn
	return b
}

// AddEdge sets the static successor of a node. Use End to terminate.
func (b *Builder[S, D]) AddEdge(from, to string) *Builder[S, D] {
	if _, exists := b.graph.edges[from]; exists {
		b.errors = append(b.errors, fmt.Errorf("node %q already has an edge", from))
		return b
	}
	b.graph.edges[from] = to
	return b
}

// AddBranch sets a conditional route: cond returns a label that is resolved
// through targets to the next node (or End).
func (b *Builder[S, D]) AddBranch(from string, cond BranchFunc[S], targets map[string]string) *Builder[S, D] {
	if cond == nil || len(targets) == 0 {
		b.errors = append(b.errors, fmt.Errorf("branch from %q needs a condition and targets", from))
		return b
	}
	if _, exists := b.graph.branches[from]; exists {
		b.errors = append(b.errors, fmt.Errorf("node %q already has a branch", from))
		return b
	}
	b.graph.branches[from] = branch[S]{cond: cond, targets: targets}
	return b
}

// SetInterrupt declares the single interrupt node of the graph.
func (b *Builder[S, D]) SetInterrupt(name string, spec InterruptSpec[S, D]) *Builder[S, D] {
	if b.graph.interruptNode != "" {
		b.errors = append(b.errors, fmt.Errorf("graph already has interrupt node %q", b.graph.interruptNode))
		return b
	}
	if spec.Resume == nil {
		b.errors = append(b.errors, fmt.Errorf("interrupt node %q needs a resume function", name))
		return b
	}
	b.graph.interruptNode = name
	b.graph.interrupt = &spec
	return b
}

// SetEntry sets the entry node.
func (b *Builder[S, D]) SetEntry(name string) *Builder[S, D] {
	b.graph.entry = name
	return b
}

// Build validates the accumulated definition and returns the graph.
func (b *Builder[S, D]) Build() (*Graph[S, D], error) {
	errs := append([]error{}, b.errors...)
	g := b.graph

	exists := func(name string) bool {
		if name == End {
			return true
		}
		if _, ok := g.nodes[name]; ok {
			return true
		}
		return name == g.interruptNode
	}

	if g.entry == "" {
		errs = append(errs, errors.New("graph has no entry node"))
	} else if !exists(g.entry) {
		errs = append(errs, fmt.Errorf("entry node %q does not exist", g.entry))
	}

	for from, to := range g.edges {
		if !exists(from) {
			errs = append(errs, fmt.Errorf("edge from unknown node %q", from))
		}
		if !exists(to) {
			errs = append(errs, fmt.Errorf("edge from %q to unknown node %q", from, to))
		}
		if _, both := g.branches[from]; both {
			errs = append(errs, fmt.Errorf("node %q has both an edge and a branch", from))
		}
	}
	for from, br := range g.branches {
		if !exists(from) {
			errs = append(errs, fmt.Errorf("branch from unknown node %q", from))
		}
		for label, target := range br.targets {
			if !exists(target) {
				errs = append(errs, fmt.Errorf("branch from %q routes label %q to unknown node %q", from, label, target))
			}
		}
	}

	// Every routable node needs an outgoing route.
	for name := range g.nodes {
		if _, hasEdge := g.edges[name]; hasEdge {
			continue
		}
		if _, hasBranch := g.branches[name]; hasBranch {
			continue
		}
		errs = append(errs, fmt.Errorf("node %q has no outgoing edge or branch", name))
	}
	if g.interruptNode != "" {
		_, hasEdge := g.edges[g.interruptNode]
		_, hasBranch := g.branches[g.interruptNode]
		if !hasEdge && !hasBranch {
			errs = append(errs, fmt.Errorf("interrupt node %q has no outgoing edge or branch", g.interruptNode))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}
