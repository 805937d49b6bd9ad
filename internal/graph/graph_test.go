package graph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

type testState struct {
	Steps    []string `json:"steps"`
	Approved bool     `json:"approved"`
	Retries  int      `json:"retries"`
}

func step(name string) NodeFunc[testState] {
	return func(ctx context.Context, s testState) (testState, error) {
		s.Steps = append(s.Steps, name)
		return s, nil
	}
}

func linearGraph(t *testing.T) *Graph[testState, string] {
	t.Helper()
	g, err := NewBuilder[testState, string]("linear").
		AddNode("a", step("a")).
		AddNode("b", step("b")).
		AddEdge("a", "b").
		AddEdge("b", End).
		SetEntry("a").
		Build()
	require.NoError(t, err)
	return g
}

func approvalGraph(t *testing.T) *Graph[testState, string] {
	t.Helper()
	g, err := NewBuilder[testState, string]("approval").
		AddNode("prepare", step("prepare")).
		AddNode("publish", step("publish")).
		AddNode("retry", func(ctx context.Context, s testState) (testState, error) {
			s.Steps = append(s.Steps, "retry")
			s.Retries++
			return s, nil
		}).
		AddEdge("prepare", "decide").
		AddEdge("retry", "decide").
		AddEdge("publish", End).
		SetInterrupt("decide", InterruptSpec[testState, string]{
			Payload: func(s testState) any {
				return map[string]any{"steps": len(s.Steps)}
			},
			Resume: func(ctx context.Context, s testState, decision string) (testState, error) {
				if decision == "fail" {
					return s, errors.New("resume exploded")
				}
				s.Approved = decision == "approve"
				return s, nil
			},
		}).
		AddBranch("decide", func(s testState) string {
			if s.Approved {
				return "approve"
			}
			if s.Retries < 1 {
				return "retry"
			}
			return "stop"
		}, map[string]string{
			"approve": "publish",
			"retry":   "retry",
			"stop":    End,
		}).
		SetEntry("prepare").
		Build()
	require.NoError(t, err)
	return g
}

func TestBuilderValidation(t *testing.T) {
	t.Run("missing entry", func(t *testing.T) {
		_, err := NewBuilder[testState, string]("g").
			AddNode("a", step("a")).
			AddEdge("a", End).
			Build()
		assert.ErrorContains(t, err, "no entry node")
	})

	t.Run("edge to unknown node", func(t *testing.T) {
		_, err := NewBuilder[testState, string]("g").
			AddNode("a", step("a")).
			AddEdge("a", "ghost").
			SetEntry("a").
			Build()
		assert.ErrorContains(t, err, "unknown node")
	})

	t.Run("node without route", func(t *testing.T) {
		_, err := NewBuilder[testState, string]("g").
			AddNode("a", step("a")).
			SetEntry("a").
			Build()
		assert.ErrorContains(t, err, "no outgoing edge or branch")
	})

	t.Run("duplicate node", func(t *testing.T) {
		_, err := NewBuilder[testState, string]("g").
			AddNode("a", step("a")).
			AddNode("a", step("a")).
			AddEdge("a", End).
			SetEntry("a").
			Build()
		assert.ErrorContains(t, err, "already exists")
	})
}

func TestRunnerLinearExecution(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	runner := NewRunner(linearGraph(t), store)

	exec, err := runner.Run(ctx, "thread1", testState{})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, exec.Status)
	assert.Equal(t, []string{"a", "b"}, exec.State.Steps)

	cp, ok, err := store.Get(ctx, "thread1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusDone, cp.Status)
	assert.Equal(t, "linear", cp.GraphKind)
}

func TestRunnerNodeFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	g, err := NewBuilder[testState, string]("failing").
		AddNode("a", func(ctx context.Context, s testState) (testState, error) {
			return s, boom
		}).
		AddEdge("a", End).
		SetEntry("a").
		Build()
	require.NoError(t, err)

	store := NewMemoryCheckpointStore()
	exec, err := NewRunner(g, store).Run(ctx, "thread1", testState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, types.IsCode(err, types.PIPELINE_FAILED))
	assert.Equal(t, StatusFailed, exec.Status)

	cp, ok, _ := store.Get(ctx, "thread1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, cp.Status)
}

func TestRunnerInterruptAndResume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	runner := NewRunner(approvalGraph(t), store)

	exec, err := runner.Run(ctx, "thread1", testState{})
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, exec.Status)
	assert.Equal(t, map[string]any{"steps": 1}, exec.Payload)

	cp, ok, _ := store.Get(ctx, "thread1")
	require.True(t, ok)
	assert.Equal(t, StatusAwaitingApproval, cp.Status)
	assert.Equal(t, []string{"decide"}, cp.NextNodes)
	assert.JSONEq(t, `{"steps": 1}`, string(cp.Payload))

	exec, err = runner.Resume(ctx, "thread1", "approve")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, exec.Status)
	assert.Equal(t, []string{"prepare", "publish"}, exec.State.Steps)
	assert.True(t, exec.State.Approved)
}

func TestRunnerReInterrupt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	runner := NewRunner(approvalGraph(t), store)

	exec, err := runner.Run(ctx, "thread1", testState{})
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, exec.Status)

	// A rejection routes back through retry and suspends again.
	exec, err = runner.Resume(ctx, "thread1", "reject")
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, exec.Status)
	assert.Equal(t, []string{"prepare", "retry"}, exec.State.Steps)

	// Second rejection exhausts the retry budget and ends.
	exec, err = runner.Resume(ctx, "thread1", "reject")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, exec.Status)
	assert.False(t, exec.State.Approved)
}

func TestResumeWithoutPendingApproval(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	runner := NewRunner(approvalGraph(t), store)

	_, err := runner.Resume(ctx, "never-ran", "approve")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.NO_PENDING_APPROVAL))

	// A completed thread is not resumable either.
	lin := NewRunner(linearGraph(t), store)
	_, err = lin.Run(ctx, "done-thread", testState{})
	require.NoError(t, err)
	_, err = lin.Resume(ctx, "done-thread", "approve")
	assert.True(t, types.IsCode(err, types.NO_PENDING_APPROVAL))
}

func TestResumeErrorLeavesCheckpointSuspended(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	runner := NewRunner(approvalGraph(t), store)

	_, err := runner.Run(ctx, "thread1", testState{})
	require.NoError(t, err)

	_, err = runner.Resume(ctx, "thread1", "fail")
	require.Error(t, err)

	// The checkpoint still holds the suspension, so a retry succeeds.
	cp, ok, _ := store.Get(ctx, "thread1")
	require.True(t, ok)
	assert.Equal(t, StatusAwaitingApproval, cp.Status)

	exec, err := runner.Resume(ctx, "thread1", "approve")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, exec.Status)
}

func TestInterruptGuardSkipsSuspension(t *testing.T) {
	ctx := context.Background()
	g, err := NewBuilder[testState, string]("guarded").
		AddNode("prepare", step("prepare")).
		AddEdge("prepare", "decide").
		SetInterrupt("decide", InterruptSpec[testState, string]{
			Guard: func(s testState) (testState, bool) {
				// Nothing to approve; resolve in place.
				s.Approved = false
				return s, false
			},
			Resume: func(ctx context.Context, s testState, decision string) (testState, error) {
				return s, nil
			},
		}).
		AddEdge("decide", End).
		SetEntry("prepare").
		Build()
	require.NoError(t, err)

	exec, err := NewRunner(g, NewMemoryCheckpointStore()).Run(ctx, "thread1", testState{})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, exec.Status)
}

func TestSQLiteCheckpointStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewSQLiteCheckpointStore(db)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	cp := Checkpoint{
		ThreadID:  "thread1",
		GraphKind: "creation",
		Status:    StatusAwaitingApproval,
		State:     []byte(`{"steps":["a"]}`),
		NextNodes: []string{"decide"},
		Payload:   []byte(`{"cycle_number":1}`),
	}
	require.NoError(t, store.Put(ctx, cp))

	got, ok, err := store.Get(ctx, "thread1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusAwaitingApproval, got.Status)
	assert.Equal(t, []string{"decide"}, got.NextNodes)
	assert.JSONEq(t, `{"steps":["a"]}`, string(got.State))
	assert.JSONEq(t, `{"cycle_number":1}`, string(got.Payload))
	assert.False(t, got.UpdatedAt.IsZero())

	// Upsert replaces in place.
	cp.Status = StatusDone
	cp.NextNodes = nil
	cp.Payload = nil
	require.NoError(t, store.Put(ctx, cp))

	got, ok, err = store.Get(ctx, "thread1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusDone, got.Status)
	assert.Empty(t, got.Payload)

	require.NoError(t, store.Delete(ctx, "thread1"))
	_, ok, err = store.Get(ctx, "thread1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunnerAlsoWorksOverSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewSQLiteCheckpointStore(db)
	runner := NewRunner(approvalGraph(t), store)

	exec, err := runner.Run(ctx, "thread1", testState{})
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, exec.Status)

	// A fresh runner over the same store resumes across "restarts".
	rebuilt := NewRunner(approvalGraph(t), store)
	exec, err = rebuilt.Resume(ctx, "thread1", "approve")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, exec.Status)
	assert.Equal(t, []string{"prepare", "publish"}, exec.State.Steps)
}
