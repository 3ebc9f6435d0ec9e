// Package visdiff compares two page snapshots structurally and two
// screenshots pixel-by-pixel, producing a categorized change report.
// Results are derived values: recomputed on every call, never stored.
package visdiff

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

// Sentinels used for one-sided CSS variable changes.
const (
	ValueNotSet  = "(not set)"
	ValueRemoved = "(removed)"
)

// FieldChange is a before/after pair for a named property.
type FieldChange struct {
	Name   string `json:"name"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// PixelStats is the raster comparison outcome.
type PixelStats struct {
	DiffPixels  int     `json:"diff_pixels"`
	TotalPixels int     `json:"total_pixels"`
	DiffPercent float64 `json:"diff_percent"`
	Significant bool    `json:"significant"`
	DiffImage   string  `json:"diff_image,omitempty"` // empty on dimension mismatch
}

// Result is the full change report between a baseline and a current capture.
type Result struct {
	URL             string        `json:"url"`
	Summary         string        `json:"summary"`
	ThemeChanges    []FieldChange `json:"theme_changes,omitempty"`
	CSSVarChanges   []FieldChange `json:"css_var_changes,omitempty"`
	SectionsAdded   []string      `json:"sections_added,omitempty"`
	SectionsRemoved []string      `json:"sections_removed,omitempty"`
	ActionsAdded    []string      `json:"actions_added,omitempty"`
	ActionsRemoved  []string      `json:"actions_removed,omitempty"`
	LayoutChanges   []string      `json:"layout_changes,omitempty"`
	Pixels          *PixelStats   `json:"pixels,omitempty"`
}

// Structural compares the structural fields of two snapshots. before is
// the baseline, after the current capture.
func Structural(before, after *snapshot.Snapshot) *Result {
	r := &Result{URL: after.URL}

	r.ThemeChanges = themeChanges(before.Theme, after.Theme)
	r.CSSVarChanges = cssVarChanges(before.Theme.CSSVars, after.Theme.CSSVars)

	r.SectionsAdded, r.SectionsRemoved = setDiff(sectionIdents(before.Sections), sectionIdents(after.Sections))
	r.ActionsAdded, r.ActionsRemoved = setDiff(actionNames(before.Actions), actionNames(after.Actions))

	radAdded, radRemoved := setDiff(before.Theme.Radii, after.Theme.Radii)
	for _, v := range radAdded {
		r.LayoutChanges = append(r.LayoutChanges, "border-radius added: "+v)
	}
	for _, v := range radRemoved {
		r.LayoutChanges = append(r.LayoutChanges, "border-radius removed: "+v)
	}

	return r
}

// themeChanges reports inequality over the fixed scalar theme fields.
func themeChanges(before, after snapshot.Theme) []FieldChange {
	fields := []struct {
		name          string
		before, after string
	}{
		{"mode", before.Mode, after.Mode},
		{"background", before.Background, after.Background},
		{"foreground", before.Foreground, after.Foreground},
		{"primary", before.Primary, after.Primary},
		{"font-family", before.FontFamily, after.FontFamily},
		{"base-font-size", before.BaseFontSize, after.BaseFontSize},
		{"spacing", before.Spacing, after.Spacing},
	}
	var changes []FieldChange
	for _, f := range fields {
		if f.before != f.after {
			changes = append(changes, FieldChange{Name: f.name, Before: f.before, After: f.after})
		}
	}
	return changes
}

// cssVarChanges compares the union of custom-property keys, substituting
// sentinels for one-sided values.
func cssVarChanges(before, after map[string]string) []FieldChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []FieldChange
	for _, k := range sorted {
		b, bok := before[k]
		a, aok := after[k]
		if !bok {
			b = ValueNotSet
		}
		if !aok {
			a = ValueRemoved
		}
		if b != a {
			changes = append(changes, FieldChange{Name: k, Before: b, After: a})
		}
	}
	return changes
}

// sectionIdents prefers the explicit id, falling back to the name.
func sectionIdents(sections []snapshot.Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.ID != "" {
			out = append(out, s.ID)
		} else {
			out = append(out, s.Name)
		}
	}
	return out
}

func actionNames(actions []snapshot.Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Label)
	}
	return out
}

// setDiff returns (added, removed): added is in after but not before,
// removed is in before but not after.
func setDiff(before, after []string) (added, removed []string) {
	bset := make(map[string]struct{}, len(before))
	for _, v := range before {
		bset[v] = struct{}{}
	}
	aset := make(map[string]struct{}, len(after))
	for _, v := range after {
		aset[v] = struct{}{}
	}
	for _, v := range after {
		if _, ok := bset[v]; !ok {
			added = append(added, v)
		}
	}
	for _, v := range before {
		if _, ok := aset[v]; !ok {
			removed = append(removed, v)
		}
	}
	return added, removed
}

// Summarize fills in the human summary, in fixed precedence: significant
// pixel difference, theme changes, CSS variable changes, section
// add/remove, layout changes; a nonzero but insignificant pixel
// difference is mentioned only when nothing else fired.
func Summarize(r *Result) {
	var parts []string
	if r.Pixels != nil && r.Pixels.Significant {
		parts = append(parts, fmt.Sprintf("%.2f%% of pixels changed", r.Pixels.DiffPercent))
	}
	if n := len(r.ThemeChanges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d theme %s", n, plural(n, "property", "properties")))
	}
	if n := len(r.CSSVarChanges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d CSS %s", n, plural(n, "variable", "variables")))
	}
	if n := len(r.SectionsAdded); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s added", n, plural(n, "section", "sections")))
	}
	if n := len(r.SectionsRemoved); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s removed", n, plural(n, "section", "sections")))
	}
	if n := len(r.LayoutChanges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d layout %s", n, plural(n, "change", "changes")))
	}

	switch {
	case len(parts) > 0:
		r.Summary = "Changed: " + join(parts)
	case r.Pixels != nil && r.Pixels.DiffPercent > 0:
		r.Summary = fmt.Sprintf("Minor visual difference: %.2f%% of pixels changed", r.Pixels.DiffPercent)
	default:
		r.Summary = "No changes detected"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func join(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
