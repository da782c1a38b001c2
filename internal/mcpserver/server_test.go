package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/notestore"
	"github.com/starford/algiz/internal/store"
	"github.com/starford/algiz/internal/testutil"
)

// syncPublisher indexes synchronously so search is queryable right after a
// write, without the production fan-out.
type syncPublisher struct {
	db *store.DB
}

func (p syncPublisher) Publish(noteID string, _ int, title, contentText string) {
	_ = p.db.UpsertSearch(noteID, title, contentText)
}

func testServer(t *testing.T) (*Server, *notestore.Service) {
	t.Helper()

	db := testutil.TestStore(t)
	svc := notestore.NewService(db, syncPublisher{db: db}, nil)
	return New(svc), svc
}

func seedNote(t *testing.T, svc *notestore.Service) *models.Note {
	t.Helper()
	n, err := svc.Create(context.Background(), notestore.CreateParams{
		PatientID:   101,
		Type:        models.TypeSOAP,
		Title:       "Initial Visit",
		ContentText: "Patient reports mild headache.",
		Author:      "dr.adams",
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we dispatch
	// to the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_note":
		result, err = srv.getNote(ctx, req)
	case "list_note_versions":
		result, err = srv.listNoteVersions(ctx, req)
	case "get_version_diff":
		result, err = srv.getVersionDiff(ctx, req)
	case "get_audit_contract":
		result, err = srv.getAuditContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetNote(t *testing.T) {
	srv, svc := testServer(t)
	n := seedNote(t, svc)

	r := callTool(t, srv, "get_note", map[string]interface{}{"note_id": n.ID})
	if r.IsError {
		t.Fatalf("get_note errored: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "Initial Visit") || !strings.Contains(text, n.ID) {
		t.Errorf("get_note result missing note fields: %q", text)
	}
}

func TestGetNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note", map[string]interface{}{"note_id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestListNoteVersions(t *testing.T) {
	srv, svc := testServer(t)
	n := seedNote(t, svc)
	if _, err := svc.Update(context.Background(), n.ID, notestore.UpdateParams{
		ContentText: "Patient reports severe headache.",
		EditReason:  "corrected severity",
		Editor:      "dr.beck",
	}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_note_versions", map[string]interface{}{"note_id": n.ID})
	text := resultText(r)
	if !strings.Contains(text, "corrected severity") {
		t.Errorf("versions output missing edit reason: %q", text)
	}
	if !strings.Contains(text, "dr.beck") {
		t.Errorf("versions output missing editor: %q", text)
	}
}

func TestGetVersionDiff(t *testing.T) {
	srv, svc := testServer(t)
	n := seedNote(t, svc)
	if _, err := svc.Update(context.Background(), n.ID, notestore.UpdateParams{
		ContentText: "Patient reports severe headache.",
		EditReason:  "corrected severity",
		Editor:      "dr.beck",
	}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "get_version_diff", map[string]interface{}{
		"note_id": n.ID,
		"version": "2",
	})
	text := resultText(r)
	if !strings.Contains(text, `"removed"`) || !strings.Contains(text, `"added"`) {
		t.Errorf("diff output missing segments: %q", text)
	}

	// Version 1 has no predecessor.
	r = callTool(t, srv, "get_version_diff", map[string]interface{}{
		"note_id": n.ID,
		"version": "1",
	})
	if got := resultText(r); got != "[]" {
		t.Errorf("v1 diff = %q, want []", got)
	}
}

func TestGetVersionDiffInvalidNumber(t *testing.T) {
	srv, svc := testServer(t)
	n := seedNote(t, svc)

	r := callTool(t, srv, "get_version_diff", map[string]interface{}{
		"note_id": n.ID,
		"version": "zero",
	})
	if !r.IsError {
		t.Error("expected error for non-numeric version")
	}
}

func TestSearchNotes(t *testing.T) {
	srv, svc := testServer(t)
	n := seedNote(t, svc)

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "headache"})
	if r.IsError {
		t.Fatalf("search errored: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), n.ID) {
		t.Errorf("search result missing note id: %q", resultText(r))
	}
}

func TestGetAuditContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_audit_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Locks are permanent") {
		t.Errorf("contract missing locking rule: %q", text)
	}
}
