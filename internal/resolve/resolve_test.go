package resolve

import (
	"testing"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Actions: []snapshot.Action{
			{
				Label: "Submit order",
				Kind:  "button",
				Locator: snapshot.Locator{
					Kind:     snapshot.LocatorTestID,
					Value:    "submit-btn",
					Selector: `[data-testid="submit-btn"]`,
				},
			},
			{
				Label: "Search",
				Kind:  "input",
				Locator: snapshot.Locator{
					Kind:     snapshot.LocatorID,
					Value:    "search-input",
					Selector: "#search-input",
				},
			},
			{
				Label: "Learn more",
				Kind:  "link",
				Locator: snapshot.Locator{
					Kind:     snapshot.LocatorRole,
					Value:    "Learn more",
					Selector: "a",
				},
			},
		},
	}
}

func TestResolve_SelectorPassthrough(t *testing.T) {
	// WHAT: References already carrying selector syntax pass unchanged.
	// WHY: Callers who know CSS must not have their queries rewritten.
	r := New()
	for _, sel := range []string{
		"#login", ".btn-primary", "[aria-label=Close]", `input[type="email"]`,
	} {
		q := r.Resolve(sel, testSnapshot())
		if q.CSS != sel || q.Text != "" {
			t.Errorf("Resolve(%q) = %+v, want passthrough", sel, q)
		}
	}
}

func TestResolve_SnapshotLabelLookup(t *testing.T) {
	// WHAT: A case-insensitive substring of an action label reuses that
	// action's precomputed locator.
	// WHY: "submit" should hit the Submit order button without guessing.
	r := New()
	q := r.Resolve("submit ORDER", testSnapshot())
	if q.CSS != `[data-testid="submit-btn"]` {
		t.Errorf("label lookup: got %+v", q)
	}
}

func TestResolve_SnapshotTestIDLookup(t *testing.T) {
	// WHAT: The identifier inside a test-id hint is also searchable.
	// WHY: Developers reference elements by their test id, not their label.
	r := New()
	q := r.Resolve("search-input", testSnapshot())
	if q.CSS != "#search-input" {
		t.Errorf("testid lookup: got %+v", q)
	}
}

func TestResolve_RoleLocatorScopesByText(t *testing.T) {
	// WHAT: Role-based locators carry the accessible name as a text match.
	// WHY: "a" alone would hit the first link on the page.
	r := New()
	q := r.Resolve("learn", testSnapshot())
	if q.CSS != "a" || q.Text != "Learn more" {
		t.Errorf("role lookup: got %+v", q)
	}
}

func TestResolve_TestIDSynthesis(t *testing.T) {
	// WHAT: A bare identifier-like token absent from the snapshot becomes
	// a deterministic test-id attribute query.
	// WHY: Guaranteed resolution even with no snapshot cached.
	r := New()
	q := r.Resolve("checkout-button", nil)
	if q.CSS != `[data-testid="checkout-button"]` {
		t.Errorf("synthesis: got %+v", q)
	}
}

func TestResolve_TextFallback(t *testing.T) {
	// WHAT: Multi-word references with no snapshot match fall back to a
	// text-content query over every element.
	// WHY: The resolver's contract is that some query always comes back.
	r := New()
	q := r.Resolve("Add to cart now!", nil)
	if q.CSS != "*" || q.Text != "Add to cart now!" {
		t.Errorf("fallback: got %+v", q)
	}
}

func TestResolve_NilSnapshotNeverFails(t *testing.T) {
	// WHAT: Every reference resolves without a cached snapshot.
	// WHY: Resolution is advisory; absence of analysis must not break it.
	r := New()
	for _, ref := range []string{"", "#x", "token", "two words", "a=b"} {
		q := r.Resolve(ref, nil)
		if q.CSS == "" && q.Text == "" && ref != "" {
			t.Errorf("Resolve(%q) produced an empty query", ref)
		}
	}
}

func TestQueryString(t *testing.T) {
	// WHAT: Query rendering for human-readable failure messages.
	// WHY: Messages embed the resolved query; the format should be stable.
	cases := []struct {
		q    Query
		want string
	}{
		{Query{CSS: "#login"}, "#login"},
		{Query{CSS: "*", Text: "Add to cart"}, `text("Add to cart")`},
		{Query{CSS: "a", Text: "Learn more"}, `a:text("Learn more")`},
	}
	for _, c := range cases {
		if got := c.q.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
