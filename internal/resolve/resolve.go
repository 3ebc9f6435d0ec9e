// Package resolve maps loose, human-style element references onto
// concrete page-element queries. Resolution always yields some query;
// it never checks that a matching element actually exists. Existence is
// the interaction executor's problem, checked at action time.
package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

// Query is a syntactically valid page-element query. CSS scopes the
// search; Text, when set, narrows it to elements whose text content
// matches. A text-only query searches every element.
type Query struct {
	CSS  string `json:"css,omitempty"`
	Text string `json:"text,omitempty"`
}

// String renders the query for human-readable messages.
func (q Query) String() string {
	switch {
	case q.Text != "" && q.CSS != "" && q.CSS != "*":
		return fmt.Sprintf("%s:text(%q)", q.CSS, q.Text)
	case q.Text != "":
		return fmt.Sprintf("text(%q)", q.Text)
	default:
		return q.CSS
	}
}

// Strategy inspects a reference and either produces a query or defers
// to the next strategy in the chain.
type Strategy func(ref string, snap *snapshot.Snapshot) (Query, bool)

// Resolver is an ordered chain of strategies terminating in a catch-all
// that always succeeds syntactically.
type Resolver struct {
	chain []Strategy
}

// New builds the default chain: selector passthrough, cached-snapshot
// lookup, test-id synthesis, text fallback.
func New() *Resolver {
	return &Resolver{chain: []Strategy{
		selectorPassthrough,
		snapshotLookup,
		testIDSynthesis,
		textFallback,
	}}
}

// Resolve turns any reference string into a query. snap is the advisory
// last full snapshot and may be nil. Cost is linear in the snapshot's
// action list.
func (r *Resolver) Resolve(ref string, snap *snapshot.Snapshot) Query {
	ref = strings.TrimSpace(ref)
	for _, s := range r.chain {
		if q, ok := s(ref, snap); ok {
			return q
		}
	}
	// Unreachable: textFallback always matches.
	return Query{Text: ref}
}

// selectorPassthrough accepts references that already carry selector
// syntax: leading bracket, hash, or dot, or an embedded equals sign.
func selectorPassthrough(ref string, _ *snapshot.Snapshot) (Query, bool) {
	if ref == "" {
		return Query{}, false
	}
	switch ref[0] {
	case '[', '#', '.':
		return Query{CSS: ref}, true
	}
	if strings.ContainsRune(ref, '=') {
		return Query{CSS: ref}, true
	}
	return Query{}, false
}

// snapshotLookup searches the cached snapshot's interactive-action list
// for a case-insensitive substring match against the accessible name
// or, for test-id locators, the identifier embedded in the hint. The
// stored locator is reused as-is: it is already a complete, typed query.
func snapshotLookup(ref string, snap *snapshot.Snapshot) (Query, bool) {
	if snap == nil || ref == "" {
		return Query{}, false
	}
	needle := strings.ToLower(ref)
	for _, a := range snap.Actions {
		if strings.Contains(strings.ToLower(a.Label), needle) {
			return locatorQuery(a), true
		}
		if a.Locator.Kind == snapshot.LocatorTestID &&
			strings.Contains(strings.ToLower(a.Locator.Value), needle) {
			return locatorQuery(a), true
		}
	}
	return Query{}, false
}

func locatorQuery(a snapshot.Action) Query {
	if a.Locator.Kind == snapshot.LocatorRole {
		// Role locators scope by element kind and match on the name.
		return Query{CSS: a.Locator.Selector, Text: a.Locator.Value}
	}
	return Query{CSS: a.Locator.Selector}
}

var wordToken = regexp.MustCompile(`^[\w-]+$`)

// testIDSynthesis turns a bare identifier-like token into a test-id
// attribute query.
func testIDSynthesis(ref string, _ *snapshot.Snapshot) (Query, bool) {
	if !wordToken.MatchString(ref) {
		return Query{}, false
	}
	return Query{CSS: fmt.Sprintf("[data-testid=%q]", ref)}, true
}

// textFallback is the terminal catch-all: a textual-content query over
// every element, using the raw reference.
func textFallback(ref string, _ *snapshot.Snapshot) (Query, bool) {
	return Query{CSS: "*", Text: ref}, true
}
