package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// SQLiteCheckpointStore persists checkpoints in the checkpoints table, one
// row per thread. This is what makes executions survive a process restart.
type SQLiteCheckpointStore struct {
	db *database.DB
}

var _ CheckpointStore = (*SQLiteCheckpointStore)(nil)

// NewSQLiteCheckpointStore creates a store over an open database.
func NewSQLiteCheckpointStore(db *database.DB) *SQLiteCheckpointStore {
	return &SQLiteCheckpointStore{db: db}
}

func (s *SQLiteCheckpointStore) Put(ctx context.Context, cp Checkpoint) error {
	nextNodes, err := json.Marshal(cp.NextNodes)
	if err != nil {
		return types.WrapError(types.CHECKPOINT_FAILED, "failed to encode next nodes", err)
	}

	var payload any
	if len(cp.Payload) > 0 {
		payload = string(cp.Payload)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, graph_kind, status, state, next_nodes, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (thread_id) DO UPDATE SET
			graph_kind = excluded.graph_kind,
			status     = excluded.status,
			state      = excluded.state,
			next_nodes = excluded.next_nodes,
			payload    = excluded.payload,
			updated_at = excluded.updated_at`,
		cp.ThreadID, cp.GraphKind, string(cp.Status), string(cp.State),
		string(nextNodes), payload, time.Now().UTC())
	if err != nil {
		return types.WrapError(types.CHECKPOINT_FAILED, "failed to save checkpoint", err)
	}
	return nil
}

func (s *SQLiteCheckpointStore) Get(ctx context.Context, threadID string) (Checkpoint, bool, error) {
	var (
		cp        Checkpoint
		status    string
		state     string
		nextNodes string
		payload   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT thread_id, graph_kind, status, state, next_nodes, payload, updated_at
		FROM checkpoints WHERE thread_id = ?`, threadID).
		Scan(&cp.ThreadID, &cp.GraphKind, &status, &state, &nextNodes, &payload, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, types.WrapError(types.CHECKPOINT_FAILED, "failed to load checkpoint", err)
	}

	cp.Status = ExecStatus(status)
	cp.State = json.RawMessage(state)
	if err := json.Unmarshal([]byte(nextNodes), &cp.NextNodes); err != nil {
		return Checkpoint{}, false, types.WrapError(types.CHECKPOINT_FAILED, "failed to decode next nodes", err)
	}
	if payload.Valid {
		cp.Payload = json.RawMessage(payload.String)
	}
	return cp, true, nil
}

func (s *SQLiteCheckpointStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return types.WrapError(types.CHECKPOINT_FAILED, "failed to delete checkpoint", err)
	}
	return nil
}
