// Package mcp exposes conflux over the Model Context Protocol so agent
// tooling can trigger and inspect resolution sessions.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mattsre/conflux/internal/models"
	"github.com/mattsre/conflux/internal/orchestrator"
	"github.com/mattsre/conflux/internal/store"
)

// Server wraps the session store and orchestrator as MCP tools.
type Server struct {
	store store.Store
	orch  *orchestrator.Orchestrator
}

// NewServer creates the MCP server wrapper.
func NewServer(st store.Store, orch *orchestrator.Orchestrator) *Server {
	return &Server{store: st, orch: orch}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("conflux", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.sessionStatusTool())
	srv.AddTool(s.triggerResolutionTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

type sessionOut struct {
	ID       string `json:"id"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
	Reason   string `json:"reason"`
	Phase    string `json:"phase"`
	Outcome  string `json:"outcome"`
	Branch   string `json:"branch,omitempty"`
	Error    string `json:"error,omitempty"`
}

func toSessionOut(cs *models.ConflictSession) sessionOut {
	return sessionOut{
		ID:       cs.ID,
		Repo:     fmt.Sprintf("%s/%s", cs.Owner, cs.Repo),
		PRNumber: cs.PRNumber,
		Reason:   string(cs.Reason),
		Phase:    string(cs.Phase),
		Outcome:  string(cs.Outcome),
		Branch:   cs.Branch,
		Error:    cs.LastError,
	}
}

// conflux_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("conflux_list_sessions",
		mcp.WithDescription("List recent conflict resolution sessions. Returns a JSON array with id, repo, pr_number, phase, and outcome."),
		mcp.WithNumber("limit", mcp.Description("Maximum sessions to return (default 20)")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	sessions, err := s.store.ListSessions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	out := make([]sessionOut, 0, len(sessions))
	for _, cs := range sessions {
		out = append(out, toSessionOut(cs))
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

// conflux_session_status
func (s *Server) sessionStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("conflux_session_status",
		mcp.WithDescription("Get a single conflict resolution session by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleSessionStatus
}

func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	cs, err := s.store.GetSession(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get session: %v", err)), nil
	}
	data, _ := json.MarshalIndent(toSessionOut(cs), "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

// conflux_trigger_resolution
func (s *Server) triggerResolutionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("conflux_trigger_resolution",
		mcp.WithDescription("Manually trigger conflict resolution for a pull request. No-op when the PR has no conflicts."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("pr", mcp.Required(), mcp.Description("Pull request number")),
		mcp.WithBoolean("force", mcp.Description("Lower the confidence threshold for this run")),
	)
	return tool, s.handleTriggerResolution
}

func (s *Server) handleTriggerResolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner := request.GetString("owner", "")
	repo := request.GetString("repo", "")
	number := request.GetInt("pr", 0)
	if owner == "" || repo == "" || number == 0 {
		return mcp.NewToolResultError("owner, repo, and pr are required"), nil
	}

	command := orchestrator.ResolveCommand
	if request.GetBool("force", false) {
		command += " --force"
	}

	session, err := s.orch.HandleManualCommand(ctx, owner, repo, number, command)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trigger failed: %v", err)), nil
	}
	if session == nil {
		return mcp.NewToolResultText("pull request is not in a conflicted state; nothing to do"), nil
	}
	data, _ := json.MarshalIndent(toSessionOut(session), "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
