// Package snapshot defines the immutable page-snapshot record and its
// on-disk store. A snapshot is produced once by an analysis pass and
// never mutated; a new analysis produces a new snapshot.
package snapshot

import "time"

// LocatorKind classifies a precomputed element query, in preference
// order as computed by the producers: test-id attribute, raw DOM id,
// role plus accessible name.
type LocatorKind string

const (
	LocatorTestID LocatorKind = "testid"
	LocatorID     LocatorKind = "id"
	LocatorRole   LocatorKind = "role"
)

// Locator is a typed, ready-to-use element query attached to an
// interactive element during analysis.
type Locator struct {
	Kind     LocatorKind `json:"kind"`
	Value    string      `json:"value"`    // hint payload: testid text, raw id, or role name
	Selector string      `json:"selector"` // complete query string, usable as-is
}

// Action is one interactive element found on the page.
type Action struct {
	Label   string  `json:"label"` // accessible name
	Kind    string  `json:"kind"`  // button, link, input, select, textarea
	Locator Locator `json:"locator"`
	AboveFold bool  `json:"above_fold"`
}

// Landmark is a top-level page region (header, nav, main, footer, aside).
type Landmark struct {
	Role     string `json:"role"`
	Selector string `json:"selector"`
}

// Section is a recognisable content block.
type Section struct {
	ID       string `json:"id,omitempty"` // explicit DOM id when present
	Name     string `json:"name"`         // heading text or derived name
	Selector string `json:"selector"`
}

// Overlay is a floating element covering page content (modal, banner, toast).
type Overlay struct {
	Kind     string `json:"kind"`
	Selector string `json:"selector"`
	Visible  bool   `json:"visible"`
}

// Theme captures the page's computed design scalars plus the full CSS
// custom-property table.
type Theme struct {
	Mode         string            `json:"mode"` // light or dark
	Background   string            `json:"background"`
	Foreground   string            `json:"foreground"`
	Primary      string            `json:"primary,omitempty"` // accent color of buttons/links
	FontFamily   string            `json:"font_family"`
	BaseFontSize string            `json:"base_font_size"`
	Spacing      string            `json:"spacing,omitempty"` // base spacing unit
	CSSVars      map[string]string `json:"css_vars,omitempty"`
	Radii        []string          `json:"radii,omitempty"` // distinct border-radius values in use
}

// Viewport is the page's visible dimensions at capture time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClassUsage is an aggregate histogram of CSS class names, used to spot
// utility-class churn between captures.
type ClassUsage struct {
	Total   int            `json:"total"`
	Classes map[string]int `json:"classes,omitempty"`
}

// Snapshot is the immutable point-in-time description of a loaded page.
type Snapshot struct {
	URL            string      `json:"url"`
	Title          string      `json:"title"`
	Viewport       Viewport    `json:"viewport"`
	Theme          Theme       `json:"theme"`
	Landmarks      []Landmark  `json:"landmarks,omitempty"`
	Sections       []Section   `json:"sections,omitempty"`
	Overlays       []Overlay   `json:"overlays,omitempty"`
	Actions        []Action    `json:"actions,omitempty"`
	ClassUsage     *ClassUsage `json:"class_usage,omitempty"`
	TextSample     string      `json:"text_sample,omitempty"`
	ScreenshotFile string      `json:"screenshot_file,omitempty"`
	CapturedAt     time.Time   `json:"captured_at"`
}
