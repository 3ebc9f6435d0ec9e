// CLAUDE:SUMMARY MCP tool surface: interact, analyze, save_baseline, diff and status.
package pagelens

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pagelens/audit"
	"github.com/hazyhaar/pagelens/idgen"
	"github.com/hazyhaar/pagelens/kit"
)

// RegisterMCP registers the pagelens tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerInteractTool(srv)
	s.registerAnalyzeTool(srv)
	s.registerSaveBaselineTool(srv)
	s.registerDiffTool(srv)
	s.registerStatusTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// enrichFrom stamps the transport, a fresh request ID, and the MCP
// session ID into the endpoint context so the audit trail can record
// them.
func enrichFrom(req *mcp.CallToolRequest) func(context.Context) context.Context {
	requestID := idgen.Prefixed("req_", idgen.Default)()
	var sessionID string
	if req.Session != nil {
		sessionID = req.Session.ID()
	}
	return enrich(requestID, sessionID)
}

func enrich(requestID, sessionID string) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		ctx = kit.WithTransport(ctx, "mcp")
		ctx = kit.WithRequestID(ctx, requestID)
		if sessionID != "" {
			ctx = kit.WithSessionID(ctx, sessionID)
		}
		return ctx
	}
}

// audited wraps an endpoint with the audit middleware when the trail is
// enabled. Interact requests are not wrapped: Dispatch records those
// itself with richer fields.
func (s *Service) audited(action string, ep kit.Endpoint) kit.Endpoint {
	if s.auditLog == nil {
		return ep
	}
	return kit.Chain(audit.Middleware(s.auditLog, action))(ep)
}

// --- interact ---

func (s *Service) registerInteractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "pagelens_interact",
		Description: "Perform one browser interaction: click, type, select, hover, press, " +
			"scroll, waitFor, getValue, isVisible, getAttribute, or screenshot. " +
			"Targets may be CSS selectors or loose references like a button label or test id.",
		InputSchema: inputSchema(map[string]any{
			"action":     map[string]any{"type": "string", "description": "Action kind"},
			"target":     map[string]any{"type": "string", "description": "Element reference (selector, label, or test id)"},
			"text":       map[string]any{"type": "string", "description": "Text to type (type)"},
			"value":      map[string]any{"type": "string", "description": "Option value (select) or attribute name (getAttribute)"},
			"direction":  map[string]any{"type": "string", "description": "up, down, top, or bottom (scroll)"},
			"key":        map[string]any{"type": "string", "description": "Key name, e.g. enter or escape (press)"},
			"url":        map[string]any{"type": "string", "description": "Navigate here first when it differs from the current page"},
			"timeout_ms": map[string]any{"type": "integer", "description": "Appearance timeout in milliseconds (waitFor)"},
			"path":       map[string]any{"type": "string", "description": "Output file (screenshot)"},
			"fast":       map[string]any{"type": "boolean", "description": "Use the fast capture path (screenshot, local sessions only)"},
		}, []string{"action"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*ActionRequest)
		return s.Dispatch(ctx, *r), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r ActionRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichFrom(req)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- analyze ---

type analyzeReq struct {
	URL string `json:"url"`
}

func (s *Service) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "pagelens_analyze",
		Description: "Capture a fresh page snapshot: theme, CSS variables, landmarks, " +
			"sections, overlays, interactive elements and a screenshot.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page to analyze; defaults to the current page"},
		}, nil),
	}

	endpoint := s.audited("analyze", func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeReq)
		return s.Analyze(ctx, r.URL)
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r analyzeReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichFrom(req)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- save_baseline ---

func (s *Service) registerSaveBaselineTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "pagelens_save_baseline",
		Description: "Save the current snapshot and screenshot as the comparison baseline, " +
			"overwriting any previous baseline.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page to capture first when no current snapshot exists"},
		}, nil),
	}

	endpoint := s.audited("save_baseline", func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeReq)
		if err := s.SaveBaseline(ctx, r.URL); err != nil {
			return nil, err
		}
		return map[string]string{"status": "baseline saved"}, nil
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r analyzeReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichFrom(req)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- diff ---

func (s *Service) registerDiffTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "pagelens_diff",
		Description: "Compare the live page against the saved baseline: theme, CSS variables, " +
			"sections, actions, layout and pixel-level differences.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page to compare; defaults to the current page"},
		}, nil),
	}

	endpoint := s.audited("diff", func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeReq)
		result, err := s.Diff(ctx, r.URL)
		if errors.Is(err, ErrNoBaseline) {
			return map[string]string{
				"status": "no baseline saved; run pagelens_save_baseline first",
			}, nil
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r analyzeReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichFrom(req)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- status ---

func (s *Service) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagelens_status",
		Description: "Report session state: connection mode, tracked URL, baseline presence.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return s.Status(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil, EnrichCtx: enrichFrom(req)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
