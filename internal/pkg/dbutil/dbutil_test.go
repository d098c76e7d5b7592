package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM t WHERE a = ? AND b = ?", []interface{}{"x", 2})
	require.Equal(t, "SELECT id FROM t WHERE a = $1 AND b = $2", query)
	require.Equal(t, []interface{}{"x", 2}, args)
}

func TestFinalizeRewritesLimit(t *testing.T) {
	query, args := Finalize("SELECT id FROM t WHERE a = ? LIMIT ?,?", []interface{}{"x", 0, 10})
	require.Equal(t, "SELECT id FROM t WHERE a = $1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"x", 10, 0}, args)
}

func TestErrorClassHelpers(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.True(t, IsConflict(fmt.Errorf("insert grant: %w", &pq.Error{Code: "23505"})))
	require.False(t, IsConflict(&pq.Error{Code: "23514"}))

	require.True(t, IsCheckViolation(&pq.Error{Code: "23514"}))
	require.False(t, IsCheckViolation(&pq.Error{Code: "23505"}))

	require.True(t, IsDuplicateObject(&pq.Error{Code: "42P07"}))
	require.True(t, IsDuplicateObject(&pq.Error{Code: "42710"}))
	require.False(t, IsDuplicateObject(errors.New("relation does not exist")))
}
