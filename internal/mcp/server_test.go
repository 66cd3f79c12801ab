package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelensdev/codelens/internal/workspace"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	src := `package greet

// Hello builds a greeting for a name.
func Hello(name string) string {
	return "hello " + name
}

// Goodbye builds a farewell for a name.
func Goodbye(name string) string {
	return "goodbye " + name
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "greet.go"), []byte(src), 0o644))

	srv, err := NewServer(context.Background(), root, workspace.Options{
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.ws.Close() })

	select {
	case <-srv.ws.BuildDone():
	case <-time.After(30 * time.Second):
		t.Fatal("build did not finish")
	}
	return srv
}

func callArgs(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleStatus(context.Background(), callArgs(map[string]interface{}{}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, "leader", out["role"])
	assert.Equal(t, true, out["ready"])
	assert.Equal(t, float64(1), out["files_total"])
}

func TestHandleListFiles(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleListFiles(context.Background(), callArgs(map[string]interface{}{}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, float64(1), out["count"])
	assert.Equal(t, []interface{}{"greet.go"}, out["files"])
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleSearch(context.Background(), callArgs(map[string]interface{}{
		"query":          "greeting",
		"top_k":          float64(5),
		"min_similarity": float64(-1),
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	results, ok := out["results"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, results)
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleSearch(context.Background(), callArgs(map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestHandleSearch_TopKOutOfRange(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleSearch(context.Background(), callArgs(map[string]interface{}{
		"query": "greeting",
		"top_k": float64(1000),
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleStructural(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleStructural(context.Background(), callArgs(map[string]interface{}{
		"pattern": "function:Good*",
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	matches, ok := out["matches"].([]interface{})
	require.True(t, ok)
	require.Len(t, matches, 1)
	first := matches[0].(map[string]interface{})
	assert.Equal(t, "Goodbye", first["name"])
}

func TestHandleDuplicates_NoneFound(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleDuplicates(context.Background(), callArgs(map[string]interface{}{
		"min_similarity": float64(1.0),
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, float64(0), out["cluster_count"])
}
