// Package interact performs one bounded, timed operation against a
// resolved page element and reports a structured outcome. Nothing in
// this package raises to its caller: every failure becomes a Result
// with Success=false and a human-readable explanation.
package interact

import "time"

// Kind names an action.
type Kind string

const (
	KindClick        Kind = "click"
	KindType         Kind = "type"
	KindSelect       Kind = "select"
	KindHover        Kind = "hover"
	KindPress        Kind = "press"
	KindScroll       Kind = "scroll"
	KindWaitFor      Kind = "waitFor"
	KindGetValue     Kind = "getValue"
	KindIsVisible    Kind = "isVisible"
	KindGetAttribute Kind = "getAttribute"
	KindScreenshot   Kind = "screenshot"
)

// Result is the closed outcome of one action. Value/Visible/Enabled
// are populated only by the action kinds that produce them.
type Result struct {
	Success   bool    `json:"success"`
	Action    Kind    `json:"action"`
	Target    string  `json:"target,omitempty"` // resolved query, for messages
	Message   string  `json:"message"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Value     *string `json:"value,omitempty"`
	Visible   *bool   `json:"visible,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
}

func success(kind Kind, target, msg string, start time.Time) *Result {
	return &Result{
		Success:   true,
		Action:    kind,
		Target:    target,
		Message:   msg,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
}

func failure(kind Kind, target, msg string, start time.Time) *Result {
	return &Result{
		Success:   false,
		Action:    kind,
		Target:    target,
		Message:   msg,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
