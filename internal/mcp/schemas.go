package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchTool returns the tool definition for codelens_search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "codelens_search",
		Description: "Semantic search over the indexed workspace using natural language",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or code fragment)",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity threshold (-1.0 to 1.0)",
					"default":     0.3,
					"minimum":     -1.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// duplicatesTool returns the tool definition for codelens_duplicates
func duplicatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "codelens_duplicates",
		Description: "Find clusters of near-identical code chunks across the workspace, or chunks similar to one file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file": map[string]interface{}{
					"type":        "string",
					"description": "Optional workspace-relative file path; when set, only similarities against this file's chunks are reported",
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Similarity threshold for two chunks to count as duplicates",
					"default":     0.95,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"min_bytes": map[string]interface{}{
					"type":        "integer",
					"description": "Ignore chunks smaller than this many bytes",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// structuralTool returns the tool definition for codelens_structural
func structuralTool() mcp.Tool {
	return mcp.Tool{
		Name:        "codelens_structural",
		Description: "Match declarations by kind and name glob, e.g. 'function:Handle*' or 'type:*Config'",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Pattern of the form 'kind:nameglob'; kind is one of function, method, type, class, block, or *",
				},
				"files": map[string]interface{}{
					"type":        "array",
					"description": "Optional workspace-relative paths to restrict the query to",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Optional language filter (go, rust, python, ...)",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

// statusTool returns the tool definition for codelens_status
func statusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "codelens_status",
		Description: "Report index progress and workspace role",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listFilesTool returns the tool definition for codelens_files
func listFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "codelens_files",
		Description: "List the files currently present in the index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
