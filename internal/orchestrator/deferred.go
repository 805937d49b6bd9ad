package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// DeferredJob is a persisted "publish later" decision: the approval resume
// that must fire at RunAt. Jobs survive restarts; the orchestrator reloads
// them at start.
type DeferredJob struct {
	ID       string                 `json:"id"`
	ThreadID string                 `json:"thread_id"`
	Decision pipeline.HumanDecision `json:"decision"`
	RunAt    time.Time              `json:"run_at"`
}

// deferredStore persists deferred jobs in the deferred_jobs table.
type deferredStore struct {
	db *database.DB
}

func newDeferredStore(db *database.DB) *deferredStore {
	return &deferredStore{db: db}
}

func (s *deferredStore) save(ctx context.Context, job DeferredJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	decision, err := json.Marshal(job.Decision)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to encode deferred decision", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO deferred_jobs (id, thread_id, decision, run_at) VALUES (?, ?, ?, ?)`,
		job.ID, job.ThreadID, string(decision), job.RunAt.UTC())
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to save deferred job", err)
	}
	return nil
}

func (s *deferredStore) delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deferred_jobs WHERE id = ?`, id); err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to delete deferred job", err)
	}
	return nil
}

// list returns every persisted job ordered by run time. Jobs whose run time
// has already passed are still returned; the caller fires them immediately.
func (s *deferredStore) list(ctx context.Context) ([]DeferredJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, decision, run_at FROM deferred_jobs ORDER BY run_at ASC`)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list deferred jobs", err)
	}
	defer rows.Close()

	var jobs []DeferredJob
	for rows.Next() {
		var (
			job     DeferredJob
			rawDec  string
		)
		if err := rows.Scan(&job.ID, &job.ThreadID, &rawDec, &job.RunAt); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan deferred job", err)
		}
		if err := json.Unmarshal([]byte(rawDec), &job.Decision); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to decode deferred decision", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to iterate deferred jobs", err)
	}
	return jobs, nil
}
