// Package mcp exposes the board to AI-assistant clients as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nightfallstudio/bugboard/internal/board"
	"github.com/nightfallstudio/bugboard/internal/models"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// Server wraps the upstream client and exposes it as MCP tools.
type Server struct {
	api upstream.API
}

// NewServer creates the MCP server wrapper.
func NewServer(api upstream.API) *Server {
	return &Server{api: api}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("bugboard", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.boardTool())
	srv.AddTool(s.submitBugTool())
	srv.AddTool(s.moveIssueTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// bugboard_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_list_issues",
		mcp.WithDescription("List tracked issues with their derived board column, severity, and category. Returns a JSON array."),
		mcp.WithString("state", mcp.Description("Filter by state: open, closed, or all (default open)")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := request.GetString("state", "open")
	issues, err := s.api.ListIssues(ctx, upstream.ListOptions{State: state, PerPage: 100})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	data, err := json.Marshal(board.NewSnapshot(issues).Cards())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// bugboard_board
func (s *Server) boardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_board",
		mcp.WithDescription("Show the Kanban board: issue numbers and titles grouped by column (backlog, todo, in-progress, testing, done)."),
	)
	return tool, s.handleBoard
}

func (s *Server) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues, err := s.api.ListIssues(ctx, upstream.ListOptions{State: "all", PerPage: 100})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	type cardOut struct {
		Number   int    `json:"number"`
		Title    string `json:"title"`
		Severity string `json:"severity"`
	}
	snapshot := board.NewSnapshot(issues)
	out := make(map[models.Column][]cardOut, len(models.Columns))
	for _, col := range models.Columns {
		cards := snapshot.Column(col)
		entries := make([]cardOut, len(cards))
		for i, c := range cards {
			entries[i] = cardOut{Number: c.Number, Title: c.Title, Severity: string(c.Severity)}
		}
		out[col] = entries
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal board: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// bugboard_submit_bug
func (s *Server) submitBugTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_submit_bug",
		mcp.WithDescription("File a bug report. Returns the created issue number and URL."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Bug title")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What went wrong")),
		mcp.WithString("severity", mcp.Description("critical, high, medium, or low (default medium)")),
		mcp.WithString("category", mcp.Description("Affected area (default general)")),
	)
	return tool, s.handleSubmitBug
}

func (s *Server) handleSubmitBug(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := models.BugReport{
		Title:       request.GetString("title", ""),
		Description: request.GetString("description", ""),
		Severity:    models.Severity(request.GetString("severity", "")),
		Category:    request.GetString("category", ""),
	}
	if report.Title == "" || report.Description == "" {
		return mcp.NewToolResultError("title and description are required"), nil
	}
	report.Normalize()

	issue, err := s.api.CreateIssue(ctx, report.Title, report.RenderBody("assistant"), report.IssueLabels(true))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}

	data, err := json.Marshal(map[string]any{"number": issue.Number, "url": issue.URL})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// bugboard_move_issue
func (s *Server) moveIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_move_issue",
		mcp.WithDescription("Move an issue to a board column by replacing its status label."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Issue number")),
		mcp.WithString("column", mcp.Required(), mcp.Description("Target column: backlog, todo, in-progress, testing, done")),
	)
	return tool, s.handleMoveIssue
}

func (s *Server) handleMoveIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := request.GetInt("number", 0)
	if number < 1 {
		return mcp.NewToolResultError("issue number is required"), nil
	}
	target := models.Column(request.GetString("column", ""))
	if !target.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown column %q", target)), nil
	}

	issues, err := s.api.ListIssues(ctx, upstream.ListOptions{State: "all", PerPage: 100})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	snapshot := board.NewSnapshot(issues)
	if err := snapshot.Move(ctx, number, target, s.api.ReplaceLabels); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to move issue: %v", err)), nil
	}

	data, err := json.Marshal(map[string]any{"number": number, "column": target})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
