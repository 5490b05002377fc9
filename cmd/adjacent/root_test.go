package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "worker", "query", "job", "ingest", "embed", "mcp"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestQueryFlags(t *testing.T) {
	f := queryCmd.Flags()
	require.NotNil(t, f.Lookup("top-k"))
	require.NotNil(t, f.Lookup("skip-inference"))
	assert.Equal(t, "0", f.Lookup("top-k").DefValue)

	assert.Error(t, queryCmd.Args(queryCmd, nil))
	assert.NoError(t, queryCmd.Args(queryCmd, []string{"p1"}))
}

func TestIngestDefaults(t *testing.T) {
	assert.Equal(t, "500", ingestCmd.Flags().Lookup("batch-size").DefValue)
	assert.Equal(t, "false", ingestCmd.Flags().Lookup("no-constraints").DefValue)
	assert.Equal(t, "false", serveCmd.Flags().Lookup("with-worker").DefValue)
}

func TestPrintJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"edges_created": 2}))
	assert.Equal(t, "{\n  \"edges_created\": 2\n}\n", buf.String())
}
