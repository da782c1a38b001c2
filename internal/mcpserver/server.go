// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Algiz chart-review tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/algiz/internal/notestore"
)

// Server wraps the MCP server with Algiz tools. All tools are read-only:
// clinical writes carry actor identity and edit reasons, which only the
// REST surface collects.
type Server struct {
	mcp *server.MCPServer
	svc *notestore.Service
}

// New creates a new MCP server with all Algiz tools registered.
func New(svc *notestore.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Algiz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through current clinical note content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a clinical note: head fields, full version ledger, and attachments."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier (UUID)")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("list_note_versions",
		mcp.WithDescription("List every version of a note in ledger order, including editor, "+
			"edit reason, word count, and content checksum."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier (UUID)")),
	), s.listNoteVersions)

	s.mcp.AddTool(mcp.NewTool("get_version_diff",
		mcp.WithDescription("Returns the line diff between a version and its predecessor "+
			"as JSON segments tagged unchanged, added, or removed."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier (UUID)")),
		mcp.WithString("version", mcp.Required(), mcp.Description("Version number (1-based)")),
	), s.getVersionDiff)

	s.mcp.AddTool(mcp.NewTool("get_audit_contract",
		mcp.WithDescription("Returns the Algiz documentation audit contract. "+
			"Call this to understand versioning, locking, and why tools here are read-only."),
	), s.getAuditContract)

	// Resource: audit contract.
	s.mcp.AddResource(
		mcp.NewResource("algiz://audit-contract", "Documentation Audit Contract",
			mcp.WithResourceDescription("Versioning, locking, and attribution rules every note follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAuditContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNoteVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versions, err := s.svc.Versions(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(versions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getVersionDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("version")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid version: %s", raw)), nil
	}
	v, err := s.svc.Version(ctx, id, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("version %d not found for note %s", number, id)), nil
	}
	if len(v.DiffFromPrev) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}
	return mcp.NewToolResultText(string(v.DiffFromPrev)), nil
}

func (s *Server) getAuditContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AuditContract), nil
}

func (s *Server) readAuditContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "algiz://audit-contract",
			MIMEType: "text/markdown",
			Text:     AuditContract,
		},
	}, nil
}
