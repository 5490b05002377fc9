package errkind

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"not found", NotFound("fetch_anchor", "product p1 not found"), KindNotFound},
		{"wrapped invalid", fmt.Errorf("query: %w", InvalidInput("embed", "no description")), KindInvalidInput},
		{"deadline", fmt.Errorf("neo4j: %w", context.DeadlineExceeded), KindUnavailable},
		{"unavailable", Unavailable("enqueue", errors.New("dial tcp: refused")), KindUnavailable},
		{"schema", SchemaViolation("llm", "bad edges", nil), KindSchemaViolation},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestErrorUnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unavailable("graph_neighbors", cause)

	require.ErrorIs(t, err, cause)
	var ke *Error
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, "graph_neighbors", ke.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, Is(err, KindUnavailable))
	assert.False(t, Is(err, KindNotFound))
}
