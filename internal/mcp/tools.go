package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codelensdev/codelens/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotLeader     = -32001 // Operation requires the indexing leader
	ErrorCodeEmptyQuery    = -32002 // Query parameter is empty
)

// handleSearch handles the codelens_search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", s.ws.Config().Search.TopK)
	if topK < 1 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}
	minSim := getFloatDefault(args, "min_similarity", s.ws.Config().Search.MinSimilarity)

	results, err := s.ws.SemanticSearch(ctx, query, topK, minSim)
	if err != nil {
		return nil, toolError("search failed", err)
	}

	response := map[string]interface{}{
		"query":   query,
		"results": formatSimilar(results),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDuplicates handles the codelens_duplicates tool invocation
func (s *Server) handleDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	minSim := getFloatDefault(args, "min_similarity", 0.95)
	minBytes := getIntDefault(args, "min_bytes", 0)
	file := getStringDefault(args, "file", "")

	if file != "" {
		matches, err := s.ws.FindDuplicatesInFile(ctx, file, minSim)
		if err != nil {
			return nil, toolError("duplicate detection failed", err)
		}
		response := map[string]interface{}{
			"file":    file,
			"matches": formatSimilar(matches),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	clusters, err := s.ws.FindAllDuplicates(ctx, minSim, minBytes)
	if err != nil {
		return nil, toolError("duplicate detection failed", err)
	}

	out := make([]map[string]interface{}, 0, len(clusters))
	for _, c := range clusters {
		members := make([]map[string]interface{}, 0, len(c.Chunks))
		for _, ch := range c.Chunks {
			members = append(members, formatChunk(ch))
		}
		out = append(out, map[string]interface{}{
			"files":  c.Files(),
			"chunks": members,
		})
	}
	response := map[string]interface{}{
		"cluster_count": len(clusters),
		"clusters":      out,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStructural handles the codelens_structural tool invocation
func (s *Server) handleStructural(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "pattern parameter is required", map[string]interface{}{
			"param":  "pattern",
			"reason": "missing or empty",
		})
	}

	var files []string
	if raw, ok := args["files"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				files = append(files, s)
			}
		}
	}
	language := getStringDefault(args, "language", "")

	chunks, err := s.ws.StructuralQuery(ctx, pattern, files, language)
	if err != nil {
		return nil, toolError("structural query failed", err)
	}

	out := make([]map[string]interface{}, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, formatChunk(ch))
	}
	response := map[string]interface{}{
		"pattern": pattern,
		"matches": out,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStatus handles the codelens_status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.ws.Status(ctx)
	if err != nil {
		return nil, toolError("failed to get status", err)
	}

	role := "reader"
	if s.ws.IsLeader() {
		role = "leader"
	}
	response := map[string]interface{}{
		"root":           s.ws.Root(),
		"role":           role,
		"ready":          status.Ready,
		"files_total":    status.FilesTotal,
		"files_embedded": status.FilesEmbedded,
		"build_complete": s.ws.Built(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListFiles handles the codelens_files tool invocation
func (s *Server) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.ws.ListFiles(ctx)
	if err != nil {
		return nil, toolError("failed to list files", err)
	}

	response := map[string]interface{}{
		"count": len(files),
		"files": files,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolError maps workspace errors onto MCP error codes.
func toolError(message string, err error) error {
	code := ErrorCodeInternalError
	if errors.Is(err, types.ErrNotLeader) {
		code = ErrorCodeNotLeader
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func formatChunk(ch types.Chunk) map[string]interface{} {
	return map[string]interface{}{
		"file":       ch.FilePath,
		"name":       ch.Name,
		"kind":       string(ch.Kind),
		"start_line": ch.StartLine,
		"end_line":   ch.EndLine,
	}
}

func formatSimilar(results []types.SimilarChunk) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		m := formatChunk(r.Chunk)
		m["score"] = r.Score
		out = append(out, m)
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
