// CLAUDE:SUMMARY Tool-invocation boundary: validates parameters, routes actions, wraps residual panics.
package pagelens

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/pagelens/audit"
	"github.com/hazyhaar/pagelens/internal/interact"
	"github.com/hazyhaar/pagelens/kit"
)

// ActionRequest is the wire shape of one interaction request.
type ActionRequest struct {
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Text      string `json:"text,omitempty"`
	Value     string `json:"value,omitempty"`
	Direction string `json:"direction,omitempty"`
	Key       string `json:"key,omitempty"`
	URL       string `json:"url,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
	Path      string `json:"path,omitempty"`
	Fast      bool   `json:"fast,omitempty"`
}

// requiredParam returns the name of the first missing required
// parameter, or "". Validation happens before any browser call.
func requiredParam(req ActionRequest) string {
	switch req.Action {
	case "click", "hover", "waitFor", "getValue", "isVisible":
		if req.Target == "" {
			return "target"
		}
	case "type":
		if req.Target == "" {
			return "target"
		}
		if req.Text == "" {
			return "text"
		}
	case "select":
		if req.Target == "" {
			return "target"
		}
		if req.Value == "" {
			return "value"
		}
	case "getAttribute":
		if req.Target == "" {
			return "target"
		}
		if req.Value == "" {
			return "value"
		}
	case "press":
		if req.Key == "" {
			return "key"
		}
	case "scroll":
		if req.Direction == "" {
			return "direction"
		}
	}
	return ""
}

// Dispatch routes one action request to the executor and always
// returns a structured result: unknown actions and missing parameters
// get explicit responses, and any residual panic is wrapped into a
// generic error result so the caller never sees a raw fault.
func (s *Service) Dispatch(ctx context.Context, req ActionRequest) (res *interact.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("pagelens: dispatch panic", "action", req.Action, "panic", r)
			res = &interact.Result{
				Success:   false,
				Action:    interact.Kind(req.Action),
				Message:   fmt.Sprintf("internal error while executing %q", req.Action),
				ElapsedMs: time.Since(start).Milliseconds(),
			}
		}
		s.recordAction(ctx, req, res)
	}()

	if missing := requiredParam(req); missing != "" {
		return &interact.Result{
			Success: false,
			Action:  interact.Kind(req.Action),
			Target:  req.Target,
			Message: fmt.Sprintf("missing required parameter %q for action %q", missing, req.Action),
		}
	}

	switch req.Action {
	case "click":
		return s.exec.Click(ctx, req.URL, req.Target)
	case "type":
		return s.exec.Type(ctx, req.URL, req.Target, req.Text)
	case "select":
		return s.exec.Select(ctx, req.URL, req.Target, req.Value)
	case "hover":
		return s.exec.Hover(ctx, req.URL, req.Target)
	case "press":
		return s.exec.Press(ctx, req.URL, req.Key)
	case "scroll":
		return s.exec.Scroll(ctx, req.URL, req.Direction)
	case "waitFor":
		return s.exec.WaitFor(ctx, req.URL, req.Target, time.Duration(req.TimeoutMs)*time.Millisecond)
	case "getValue":
		return s.exec.GetValue(ctx, req.URL, req.Target)
	case "isVisible":
		return s.exec.IsVisible(ctx, req.URL, req.Target)
	case "getAttribute":
		return s.exec.GetAttribute(ctx, req.URL, req.Target, req.Value)
	case "screenshot":
		path := req.Path
		if path == "" {
			path = s.store.CurrentImagePath()
		}
		return s.exec.Screenshot(ctx, req.URL, path, req.Fast)
	default:
		return &interact.Result{
			Success: false,
			Action:  interact.Kind(req.Action),
			Message: fmt.Sprintf("unknown action %q", req.Action),
		}
	}
}

// recordAction writes one audit row per dispatched action, carrying
// the context's transport, request and session IDs. Auditing is
// fire-and-forget; it never affects the result.
func (s *Service) recordAction(ctx context.Context, req ActionRequest, res *interact.Result) {
	if s.auditLog == nil || res == nil {
		return
	}
	e := &audit.Entry{
		Action:     req.Action,
		Target:     req.Target,
		URL:        req.URL,
		DurationMs: res.ElapsedMs,
		Transport:  kit.GetTransport(ctx),
		RequestID:  kit.GetRequestID(ctx),
		SessionID:  kit.GetSessionID(ctx),
	}
	if params, err := json.Marshal(req); err == nil {
		e.Parameters = string(params)
	}
	if res.Success {
		e.Result = res.Message
	} else {
		e.Error = res.Message
	}
	s.auditLog.LogAsync(e)
}
