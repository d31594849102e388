package models

import (
	"fmt"
	"strings"
)

// ZeroRev is the all-zero revision git substitutes for the old (or new)
// side of a ref update when the ref is being created (or deleted)
const ZeroRev = "0000000000000000000000000000000000000000"

// RefUpdate is one line of a post-receive invocation:
// "<old-rev> <new-rev> <ref-name>"
type RefUpdate struct {
	// OldRev is the revision the ref pointed at before the push
	OldRev string
	// NewRev is the revision the ref points at after the push
	NewRev string
	// RefName is the full ref name (e.g. "refs/heads/5150_fix")
	RefName string
}

// ParseRefUpdate parses a single stdin line of the post-receive contract.
// Malformed lines are an error for the whole invocation; the contract is
// produced by git itself, not untrusted input.
func ParseRefUpdate(line string) (RefUpdate, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return RefUpdate{}, fmt.Errorf("malformed ref update %q: want \"<old> <new> <ref>\"", line)
	}
	return RefUpdate{OldRev: fields[0], NewRev: fields[1], RefName: fields[2]}, nil
}

// Created reports whether the push created the ref
func (u RefUpdate) Created() bool {
	return u.OldRev == ZeroRev
}

// Deleted reports whether the push deleted the ref
func (u RefUpdate) Deleted() bool {
	return u.NewRev == ZeroRev
}
