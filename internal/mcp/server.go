package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/resolver"
	"github.com/joescharf/vibejira/internal/store"
)

// Server wraps the vibejira data layer and exposes it as MCP tools.
type Server struct {
	store    store.Store
	resolver *resolver.Resolver
	version  string
}

// NewServer creates the MCP server wrapper. Ticket lookups go through r so a
// miss reads through to JIRA the same way the HTTP API does.
func NewServer(s store.Store, r *resolver.Resolver, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{store: s, resolver: r, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("vibejira", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.listTicketsTool())
	srv.AddTool(s.getTicketTool())
	srv.AddTool(s.listCommentsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// vibejira_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("vibejira_list_projects",
		mcp.WithDescription("List all mirrored JIRA projects. Returns a JSON array of projects with id, name, jira_key, description, and ticket count."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type projectOut struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		JiraKey     string  `json:"jira_key"`
		Description *string `json:"description"`
		Tickets     int     `json:"tickets"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{
			ID:          p.ID,
			Name:        p.Name,
			JiraKey:     p.JiraKey,
			Description: p.Description,
			Tickets:     len(p.Tickets),
		}
	}
	return jsonResult(out, "projects")
}

// vibejira_list_tickets
func (s *Server) listTicketsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("vibejira_list_tickets",
		mcp.WithDescription("List mirrored tickets, optionally restricted to one project. Comments are omitted; use vibejira_list_comments for them."),
		mcp.WithString("project", mcp.Description("Project JIRA key (e.g. TP1) to filter by")),
	)
	return tool, s.handleListTickets
}

func (s *Server) handleListTickets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter store.TicketListFilter
	if key := request.GetString("project", ""); key != "" {
		p, err := s.store.GetProjectByJiraKey(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", key)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to look up project: %v", err)), nil
		}
		filter.ProjectID = p.ID
	}

	tickets, err := s.store.ListTickets(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tickets: %v", err)), nil
	}
	for _, t := range tickets {
		t.Comments = nil
	}
	return jsonResult(tickets, "tickets")
}

// vibejira_get_ticket
func (s *Server) getTicketTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("vibejira_get_ticket",
		mcp.WithDescription("Get a ticket by its JIRA id (e.g. TP1-42). A ticket not yet mirrored is fetched from JIRA and stored first."),
		mcp.WithString("jira_id", mcp.Required(), mcp.Description("JIRA issue key")),
	)
	return tool, s.handleGetTicket
}

func (s *Server) handleGetTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jiraID, err := request.RequireString("jira_id")
	if err != nil || jiraID == "" {
		return mcp.NewToolResultError("missing required parameter: jira_id"), nil
	}

	t, created, err := s.resolver.Resolve(ctx, jiraID)
	if err != nil {
		var rerr *resolver.Error
		if errors.As(err, &rerr) && rerr.RemoteError != "" {
			return mcp.NewToolResultError(fmt.Sprintf("%s (%d): %s", rerr.Message, rerr.Status, rerr.RemoteError)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := struct {
		*models.Ticket
		Fetched bool `json:"fetched_from_jira"`
	}{Ticket: t, Fetched: created}
	return jsonResult(out, "ticket")
}

// vibejira_list_comments
func (s *Server) listCommentsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("vibejira_list_comments",
		mcp.WithDescription("List comments, optionally restricted to one ticket."),
		mcp.WithString("ticket", mcp.Description("Ticket JIRA id (e.g. TP1-42) to filter by")),
	)
	return tool, s.handleListComments
}

func (s *Server) handleListComments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter store.CommentListFilter
	if jiraID := request.GetString("ticket", ""); jiraID != "" {
		t, err := s.store.GetTicketByJiraID(ctx, jiraID)
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("ticket not found: %s", jiraID)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to look up ticket: %v", err)), nil
		}
		filter.TicketID = t.ID
	}

	comments, err := s.store.ListComments(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list comments: %v", err)), nil
	}
	return jsonResult(comments, "comments")
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
