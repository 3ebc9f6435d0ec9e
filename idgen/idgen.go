// Package idgen produces the string identifiers pagelens stamps on
// audit entries and tool requests. Constructors accept a Generator so
// the ID strategy is a startup-time decision rather than a
// compile-time one.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings:
// time-sortable, so audit rows order by ID within one timestamp.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed type prefix to every ID from gen
// (e.g. "act_" for audit entries, "req_" for tool requests).
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the repo-wide generator. Prefixed variants compose on top.
var Default Generator = UUIDv7()
