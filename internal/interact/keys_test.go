package interact

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
)

func TestLookupKey_Named(t *testing.T) {
	// WHAT: Common key names resolve case-insensitively, with aliases.
	// WHY: Callers write "Enter" or "esc", not CDP key codes.
	cases := []struct {
		name string
		want input.Key
	}{
		{"enter", input.Enter},
		{"Enter", input.Enter},
		{"ESCAPE", input.Escape},
		{"esc", input.Escape},
		{"tab", input.Tab},
		{"up", input.ArrowUp},
		{"arrowdown", input.ArrowDown},
		{"pagedown", input.PageDown},
	}
	for _, c := range cases {
		got, ok := lookupKey(c.name)
		if !ok || got != c.want {
			t.Errorf("lookupKey(%q) = %v, %v", c.name, got, ok)
		}
	}
}

func TestLookupKey_SingleRune(t *testing.T) {
	// WHAT: A single character maps directly to its key.
	// WHY: Pressing "a" or "/" needs no name table.
	for _, name := range []string{"a", "Z", "/", "1"} {
		got, ok := lookupKey(name)
		if !ok || got != input.Key([]rune(name)[0]) {
			t.Errorf("lookupKey(%q) = %v, %v", name, got, ok)
		}
	}
}

func TestLookupKey_UnknownName(t *testing.T) {
	// WHAT: Unknown multi-character names report false.
	// WHY: Guessing a key would press something the caller never asked for.
	for _, name := range []string{"superkey", "ctrl+c", ""} {
		if _, ok := lookupKey(name); ok {
			t.Errorf("lookupKey(%q) unexpectedly succeeded", name)
		}
	}
}
