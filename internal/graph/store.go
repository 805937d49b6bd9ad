package graph

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// ExecStatus is the lifecycle state of one graph execution.
type ExecStatus string

const (
	StatusRunning          ExecStatus = "running"
	StatusAwaitingApproval ExecStatus = "awaiting_approval"
	StatusDone             ExecStatus = "done"
	StatusFailed           ExecStatus = "failed"
)

// Checkpoint is the persisted snapshot of one execution thread. State and
// Payload are JSON documents so the store stays agnostic of the state type.
type Checkpoint struct {
	ThreadID  string          `json:"thread_id"`
	GraphKind string          `json:"graph_kind"`
	Status    ExecStatus      `json:"status"`
	State     json.RawMessage `json:"state"`
	NextNodes []string        `json:"next_nodes"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CheckpointStore persists checkpoints keyed by thread ID.
type CheckpointStore interface {
	Put(ctx context.Context, cp Checkpoint) error

	// Get returns the checkpoint and whether it exists.
	Get(ctx context.Context, threadID string) (Checkpoint, bool, error)

	Delete(ctx context.Context, threadID string) error
}

// MemoryCheckpointStore keeps checkpoints in memory. For development and
// tests; production uses the SQLite store.
type MemoryCheckpointStore struct {
	mu  sync.RWMutex
	cps map[string]Checkpoint
}

var _ CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore returns an empty in-memory store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{cps: make(map[string]Checkpoint)}
}

func (m *MemoryCheckpointStore) Put(ctx context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cps[cp.ThreadID] = cp
	return nil
}

func (m *MemoryCheckpointStore) Get(ctx context.Context, threadID string) (Checkpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.cps[threadID]
	return cp, ok, nil
}

func (m *MemoryCheckpointStore) Delete(ctx context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cps, threadID)
	return nil
}
