// Package knowledge implements the agent's knowledge base: a namespaced,
// account-scoped store of JSON documents in SQLite with typed accessors for
// niche config, strategy, pattern performance, published posts, and metrics.
package knowledge

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Namespace constants partition knowledge items per concern.
const (
	nsConfig             = "config"
	nsStrategy           = "strategy"
	nsPatternPerformance = "pattern_performance"
	nsPublishedPosts     = "published_posts"
	nsPendingMetrics     = "pending_metrics"
	nsMetricsHistory     = "metrics_history"
)

// store is the raw namespaced JSON document store.
type store struct {
	db        *database.DB
	accountID string
}

func (s *store) put(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge_items (namespace, account_id, key, value, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, account_id, key)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		namespace, s.accountID, key, value)
	if err != nil {
		return types.WrapError(types.KNOWLEDGE_QUERY_FAILED, "failed to store knowledge item", err)
	}
	return nil
}

// get returns the stored value and whether the key exists.
func (s *store) get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM knowledge_items
		WHERE namespace = ? AND account_id = ? AND key = ?`,
		namespace, s.accountID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.WrapError(types.KNOWLEDGE_QUERY_FAILED, "failed to load knowledge item", err)
	}
	return value, true, nil
}

// list returns up to limit values from a namespace, most recently updated
// first. limit <= 0 means no limit.
func (s *store) list(ctx context.Context, namespace string, limit int) ([]string, error) {
	query := `
		SELECT value FROM knowledge_items
		WHERE namespace = ? AND account_id = ?
		ORDER BY updated_at DESC, key DESC`
	args := []any{namespace, s.accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.KNOWLEDGE_QUERY_FAILED, "failed to list knowledge items", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, types.WrapError(types.KNOWLEDGE_QUERY_FAILED, "failed to scan knowledge item", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.KNOWLEDGE_QUERY_FAILED, "failed to iterate knowledge items", err)
	}
	return values, nil
}

func (s *store) delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM knowledge_items
		WHERE namespace = ? AND account_id = ? AND key = ?`,
		namespace, s.accountID, key)
	if err != nil {
		return types.WrapError(types.KNOWLEDGE_QUERY_FAILED, "failed to delete knowledge item", err)
	}
	return nil
}
