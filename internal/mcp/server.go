package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"trk/internal/api"
	"trk/internal/models"
	"trk/internal/store"
)

// Server wraps the trk data layer and exposes it as MCP tools.
type Server struct {
	store store.Store
}

// NewServer creates the MCP server wrapper over the issue store.
func NewServer(s store.Store) *Server {
	return &Server{store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("trk", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueTool())
	srv.AddTool(s.deleteIssueTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// jsonResult marshals v as a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// trk_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("trk_list_issues",
		mcp.WithDescription("List issues, optionally filtered by status, priority, and/or assignee. Returns JSON with total (matching count), count (returned count), and issues. Each issue has: id, title, description, status (open/in_progress/resolved/closed), priority (low/medium/high/critical), reporter, assignee, created_at, updated_at."),
		mcp.WithString("status", mcp.Description("Status filter: open, in_progress, resolved, closed")),
		mcp.WithString("priority", mcp.Description("Priority filter: low, medium, high, critical")),
		mcp.WithString("assignee", mcp.Description("Assignee filter (exact match)")),
		mcp.WithNumber("skip", mcp.Description("Number of issues to skip (default 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum issues to return, 1-100 (default 100)")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.IssueFilter{
		Status:   models.IssueStatus(request.GetString("status", "")),
		Priority: models.IssuePriority(request.GetString("priority", "")),
		Assignee: request.GetString("assignee", ""),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", filter.Status)), nil
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid priority: %s", filter.Priority)), nil
	}

	page := store.Page{
		Skip:  int64(request.GetInt("skip", 0)),
		Limit: int64(request.GetInt("limit", store.DefaultLimit)),
	}
	if page.Skip < 0 || page.Limit < 1 || page.Limit > store.MaxLimit {
		return mcp.NewToolResultError(fmt.Sprintf("skip must be >= 0 and limit between 1 and %d", store.MaxLimit)), nil
	}

	issues, total, err := s.store.ListIssues(ctx, filter, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	return jsonResult(api.ListResponse{Total: total, Count: len(issues), Issues: issues})
}

// trk_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("trk_get_issue",
		mcp.WithDescription("Get a single issue by its numeric id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	issue, err := s.store.GetIssue(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue)
}

// trk_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("trk_create_issue",
		mcp.WithDescription("Create a new issue. Title and reporter are required; status defaults to open, priority to medium."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title (max 200 chars)")),
		mcp.WithString("description", mcp.Description("Detailed description")),
		mcp.WithString("status", mcp.Description("Status: open, in_progress, resolved, closed")),
		mcp.WithString("priority", mcp.Description("Priority: low, medium, high, critical")),
		mcp.WithString("reporter", mcp.Required(), mcp.Description("Reporter name or email (max 100 chars)")),
		mcp.WithString("assignee", mcp.Description("Assignee name or email (max 100 chars)")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := api.CreateRequest{
		Title:       request.GetString("title", ""),
		Description: request.GetString("description", ""),
		Status:      models.IssueStatus(request.GetString("status", "")),
		Priority:    models.IssuePriority(request.GetString("priority", "")),
		Reporter:    request.GetString("reporter", ""),
		Assignee:    request.GetString("assignee", ""),
	}
	if ve := req.Validate(); ve != nil {
		return mcp.NewToolResultError(validationMessage(ve)), nil
	}

	issue := req.Issue()
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(issue)
}

// trk_update_issue
func (s *Server) updateIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("trk_update_issue",
		mcp.WithDescription("Partially update an issue: only the provided fields are changed. Omitted fields keep their stored values."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status: open, in_progress, resolved, closed")),
		mcp.WithString("priority", mcp.Description("New priority: low, medium, high, critical")),
		mcp.WithString("reporter", mcp.Description("New reporter")),
		mcp.WithString("assignee", mcp.Description("New assignee")),
	)
	return tool, s.handleUpdateIssue
}

func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	// Argument presence drives the patch: only keys in the request are
	// applied, mirroring PATCH semantics on the REST surface.
	args := request.GetArguments()
	req := api.UpdateRequest{}
	if _, ok := args["title"]; ok {
		v := request.GetString("title", "")
		req.Title = &v
	}
	if _, ok := args["description"]; ok {
		v := request.GetString("description", "")
		req.Description = &v
	}
	if _, ok := args["status"]; ok {
		v := models.IssueStatus(request.GetString("status", ""))
		req.Status = &v
	}
	if _, ok := args["priority"]; ok {
		v := models.IssuePriority(request.GetString("priority", ""))
		req.Priority = &v
	}
	if _, ok := args["reporter"]; ok {
		v := request.GetString("reporter", "")
		req.Reporter = &v
	}
	if _, ok := args["assignee"]; ok {
		v := request.GetString("assignee", "")
		req.Assignee = &v
	}

	if ve := req.Validate(); ve != nil {
		return mcp.NewToolResultError(validationMessage(ve)), nil
	}

	issue, err := s.store.GetIssue(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.Apply(issue)

	if err := s.store.UpdateIssue(ctx, issue); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update issue: %v", err)), nil
	}
	return jsonResult(issue)
}

// trk_delete_issue
func (s *Server) deleteIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("trk_delete_issue",
		mcp.WithDescription("Delete an issue permanently. This is a hard delete with no recovery."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleDeleteIssue
}

func (s *Server) handleDeleteIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	if err := s.store.DeleteIssue(ctx, int64(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete issue: %v", err)), nil
	}
	return jsonResult(api.MessageResponse{Message: fmt.Sprintf("issue %d deleted", id)})
}

// validationMessage flattens field errors into one tool error string.
func validationMessage(ve *api.ValidationError) string {
	msg := "validation failed:"
	for _, f := range ve.Fields {
		msg += fmt.Sprintf(" %s: %s;", f.Field, f.Message)
	}
	return msg
}
