package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewError(DB_QUERY_FAILED, "select failed")
		assert.Equal(t, "[DB_QUERY_FAILED] select failed", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WrapError(DB_QUERY_FAILED, "insert failed", cause)
		assert.Equal(t, "[DB_QUERY_FAILED] insert failed: disk full", err.Error())
	})
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := WrapError(KNOWLEDGE_QUERY_FAILED, "store write failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(NO_PENDING_APPROVAL, "thread gone"))

	assert.True(t, errors.Is(err, NewError(NO_PENDING_APPROVAL, "anything")))
	assert.False(t, errors.Is(err, NewError(SCHEDULE_INVALID, "anything")))
}

func TestIsCode(t *testing.T) {
	inner := NewError(DB_QUERY_FAILED, "bad query")
	outer := WrapError(KNOWLEDGE_QUERY_FAILED, "pattern lookup", inner)

	assert.True(t, IsCode(outer, KNOWLEDGE_QUERY_FAILED))
	assert.True(t, IsCode(outer, DB_QUERY_FAILED))
	assert.False(t, IsCode(outer, LLM_CALL_FAILED))
	assert.False(t, IsCode(errors.New("plain"), DB_QUERY_FAILED))
}
