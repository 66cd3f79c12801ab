package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/codelensdev/codelens/internal/workspace"
)

const (
	// ServerName is the MCP server name
	ServerName = "codelens"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server around an open workspace. The workspace role
// decides which tools can do real work: semantic search and structural
// queries require the indexing leader, while status, file listing, and
// duplicate detection work in either role.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
}

// NewServer opens the workspace at root and registers the tools.
func NewServer(ctx context.Context, root string, opts workspace.Options) (*Server, error) {
	ws, err := workspace.Open(ctx, root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp: mcpServer,
		ws:  ws,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.ws.Close() }()
	return server.ServeStdio(s.mcp)
}

// Workspace exposes the underlying workspace handle.
func (s *Server) Workspace() *workspace.Workspace {
	return s.ws
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(duplicatesTool(), s.handleDuplicates)
	s.mcp.AddTool(structuralTool(), s.handleStructural)
	s.mcp.AddTool(statusTool(), s.handleStatus)
	s.mcp.AddTool(listFilesTool(), s.handleListFiles)
}
