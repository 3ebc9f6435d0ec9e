package visdiff

import (
	"testing"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

func baseSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		URL: "http://localhost:3000",
		Theme: snapshot.Theme{
			Mode:         "light",
			Background:   "rgb(255, 255, 255)",
			Foreground:   "rgb(17, 24, 39)",
			Primary:      "rgb(59, 130, 246)",
			FontFamily:   "Inter, sans-serif",
			BaseFontSize: "16px",
			Spacing:      "16px",
			CSSVars:      map[string]string{"--primary": "#3b82f6"},
			Radii:        []string{"8px"},
		},
		Sections: []snapshot.Section{
			{ID: "hero", Name: "Hero", Selector: "#hero"},
			{Name: "Features", Selector: "section:nth-of-type(2)"},
		},
		Actions: []snapshot.Action{
			{Label: "Sign up", Kind: "button"},
			{Label: "Log in", Kind: "link"},
		},
	}
}

func TestStructural_SelfDiffIsEmpty(t *testing.T) {
	// WHAT: Diffing a snapshot against itself yields empty change lists.
	// WHY: The identity case anchors every other comparison.
	snap := baseSnapshot()
	r := Structural(snap, snap)
	if len(r.ThemeChanges) != 0 || len(r.CSSVarChanges) != 0 ||
		len(r.SectionsAdded) != 0 || len(r.SectionsRemoved) != 0 ||
		len(r.ActionsAdded) != 0 || len(r.ActionsRemoved) != 0 ||
		len(r.LayoutChanges) != 0 {
		t.Fatalf("self-diff produced changes: %+v", r)
	}
	Summarize(r)
	if r.Summary != "No changes detected" {
		t.Fatalf("summary: got %q", r.Summary)
	}
}

func TestStructural_NewCSSVarUsesNotSetSentinel(t *testing.T) {
	// WHAT: {A:1} vs {A:1, B:2} reports exactly one change for B with
	// before-value "(not set)".
	// WHY: One-sided variables need sentinels, not empty strings.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Theme.CSSVars = map[string]string{"--primary": "#3b82f6", "--accent": "#f59e0b"}

	r := Structural(before, after)
	if len(r.CSSVarChanges) != 1 {
		t.Fatalf("changes: got %d, want 1", len(r.CSSVarChanges))
	}
	c := r.CSSVarChanges[0]
	if c.Name != "--accent" || c.Before != ValueNotSet || c.After != "#f59e0b" {
		t.Fatalf("change: %+v", c)
	}
}

func TestStructural_RemovedCSSVarUsesRemovedSentinel(t *testing.T) {
	// WHAT: A variable present only in the baseline reports "(removed)".
	// WHY: Distinguishes deletion from a value change.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Theme.CSSVars = map[string]string{}

	r := Structural(before, after)
	if len(r.CSSVarChanges) != 1 || r.CSSVarChanges[0].After != ValueRemoved {
		t.Fatalf("changes: %+v", r.CSSVarChanges)
	}
}

func TestStructural_ChangedCSSVarValue(t *testing.T) {
	// WHAT: A changed variable reports its before and after values.
	// WHY: The theme-regression report hinges on exact value pairs.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Theme.CSSVars = map[string]string{"--primary": "#ef4444"}

	r := Structural(before, after)
	if len(r.CSSVarChanges) != 1 {
		t.Fatalf("changes: got %d, want 1", len(r.CSSVarChanges))
	}
	c := r.CSSVarChanges[0]
	if c.Before != "#3b82f6" || c.After != "#ef4444" {
		t.Fatalf("change: %+v", c)
	}
}

func TestStructural_ThemeScalars(t *testing.T) {
	// WHAT: Scalar theme fields report inequality by name.
	// WHY: Mode flips (light to dark) are the most common regression.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Theme.Mode = "dark"
	after.Theme.Background = "rgb(17, 24, 39)"

	r := Structural(before, after)
	if len(r.ThemeChanges) != 2 {
		t.Fatalf("theme changes: got %d, want 2", len(r.ThemeChanges))
	}
	if r.ThemeChanges[0].Name != "mode" || r.ThemeChanges[0].After != "dark" {
		t.Fatalf("first change: %+v", r.ThemeChanges[0])
	}
}

func TestStructural_PrimaryAndSpacingScalars(t *testing.T) {
	// WHAT: Accent color and spacing unit changes surface as named
	// scalar theme diffs, independent of the CSS-variable table.
	// WHY: These design tokens regress on frameworks that compile
	// custom properties away, so the variable diff alone misses them.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Theme.Primary = "rgb(239, 68, 68)"
	after.Theme.Spacing = "12px"

	r := Structural(before, after)
	if len(r.ThemeChanges) != 2 {
		t.Fatalf("theme changes: got %d, want 2: %+v", len(r.ThemeChanges), r.ThemeChanges)
	}
	if r.ThemeChanges[0].Name != "primary" || r.ThemeChanges[0].Before != "rgb(59, 130, 246)" {
		t.Fatalf("first change: %+v", r.ThemeChanges[0])
	}
	if r.ThemeChanges[1].Name != "spacing" || r.ThemeChanges[1].After != "12px" {
		t.Fatalf("second change: %+v", r.ThemeChanges[1])
	}
}

func TestStructural_SectionIdentPreference(t *testing.T) {
	// WHAT: Section identity prefers the explicit id, else the name.
	// WHY: Renaming a heading inside an id-carrying section is not removal.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Sections = []snapshot.Section{
		{ID: "hero", Name: "Renamed Hero", Selector: "#hero"},
		{Name: "Pricing", Selector: "section:nth-of-type(2)"},
	}

	r := Structural(before, after)
	if len(r.SectionsAdded) != 1 || r.SectionsAdded[0] != "Pricing" {
		t.Fatalf("added: %v", r.SectionsAdded)
	}
	if len(r.SectionsRemoved) != 1 || r.SectionsRemoved[0] != "Features" {
		t.Fatalf("removed: %v", r.SectionsRemoved)
	}
}

func TestStructural_RadiiAsLayoutChanges(t *testing.T) {
	// WHAT: Border-radius set differences land in the layout list.
	// WHY: Radius churn signals a design-system change, not a section change.
	before := baseSnapshot()
	after := baseSnapshot()
	after.Theme.Radii = []string{"4px"}

	r := Structural(before, after)
	if len(r.LayoutChanges) != 2 {
		t.Fatalf("layout changes: %v", r.LayoutChanges)
	}
}

func TestSummarize_Precedence(t *testing.T) {
	// WHAT: Significant pixel difference leads the summary; an
	// insignificant one is mentioned only when nothing else fired.
	// WHY: The summary order is a fixed contract for report consumers.
	r := &Result{
		ThemeChanges: []FieldChange{{Name: "mode"}},
		Pixels:       &PixelStats{DiffPercent: 3.25, Significant: true},
	}
	Summarize(r)
	if r.Summary != "Changed: 3.25% of pixels changed, 1 theme property" {
		t.Fatalf("summary: got %q", r.Summary)
	}

	minor := &Result{Pixels: &PixelStats{DiffPercent: 0.12}}
	Summarize(minor)
	if minor.Summary != "Minor visual difference: 0.12% of pixels changed" {
		t.Fatalf("minor summary: got %q", minor.Summary)
	}
}
