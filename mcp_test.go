package pagelens

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagelens/audit"
	"github.com/hazyhaar/pagelens/dbopen"
	"github.com/hazyhaar/pagelens/kit"
)

func TestEnrich_StampsContext(t *testing.T) {
	// WHAT: The context enrichment carries transport, request and
	// session IDs to the kit getters.
	// WHY: The audit trail reads exactly these keys per entry.
	ctx := enrich("req_test", "sess_test")(context.Background())

	if got := kit.GetTransport(ctx); got != "mcp" {
		t.Fatalf("transport: got %q", got)
	}
	if got := kit.GetRequestID(ctx); got != "req_test" {
		t.Fatalf("request id: got %q", got)
	}
	if got := kit.GetSessionID(ctx); got != "sess_test" {
		t.Fatalf("session id: got %q", got)
	}
}

func TestEnrichFrom_GeneratesRequestID(t *testing.T) {
	// WHAT: Each decoded tool call gets a fresh req_-prefixed ID; a
	// request without a session leaves the session ID unset.
	// WHY: Audit rows must be traceable per call even before any
	// session exists.
	ctx := enrichFrom(&mcp.CallToolRequest{})(context.Background())

	id := kit.GetRequestID(ctx)
	if !strings.HasPrefix(id, "req_") {
		t.Fatalf("request id: got %q", id)
	}
	if got := kit.GetSessionID(ctx); got != "" {
		t.Fatalf("session id: got %q, want empty", got)
	}

	other := enrichFrom(&mcp.CallToolRequest{})(context.Background())
	if kit.GetRequestID(other) == id {
		t.Fatal("request IDs not unique across calls")
	}
}

func TestDispatch_AuditCarriesContextIDs(t *testing.T) {
	// WHAT: A dispatched action's audit row records the IDs stamped
	// into the context.
	// WHY: Without them the trail cannot correlate actions to calls.
	db := dbopen.OpenMemory(t)
	trail := audit.NewSQLiteLogger(db)
	if err := trail.Init(); err != nil {
		t.Fatal(err)
	}
	svc := &Service{log: slog.Default(), cfg: &Config{}, auditLog: trail}

	ctx := enrich("req_42", "sess_7")(context.Background())
	svc.Dispatch(ctx, ActionRequest{Action: "teleport"})
	trail.Close()

	entries, err := trail.Recent(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	e := entries[0]
	if e.RequestID != "req_42" || e.SessionID != "sess_7" || e.Transport != "mcp" {
		t.Fatalf("entry IDs: %+v", e)
	}
}
