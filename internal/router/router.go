// Package router maps commit messages and ref names to Trac ticket ids.
package router

import (
	"regexp"
	"strconv"
)

var (
	// Ticket number at the root of a branch name, e.g. refs/heads/5150_fix
	ticketFromRef = regexp.MustCompile(`^refs/heads/([0-9]+)`)

	// Merge commit subject for a ticket branch. The second group only
	// matches when the merge target is itself a ticket branch.
	ticketFromMerge = regexp.MustCompile(`Merge branch '([0-9]+)(?:\w*' into ([0-9]+))?`)

	// Explicit "Refs #999"-style tokens anywhere in the message
	explicitRefs = regexp.MustCompile(`Refs #([0-9]+)`)
)

// Role records how a target ticket was matched. All roles receive the
// message the same way; the role is kept for logging.
type Role string

const (
	// RoleExplicit matched a "Refs #N" token in the message
	RoleExplicit Role = "explicit"
	// RoleMergeSource matched the branch being merged in
	RoleMergeSource Role = "merge-source"
	// RoleMergeTarget matched a ticket branch being merged into
	RoleMergeTarget Role = "merge-target"
	// RoleFallback came from the ref name, or the configured default
	RoleFallback Role = "fallback"
)

// Target is one ticket a commit message routes to
type Target struct {
	Ticket int
	Role   Role
}

// TicketFromRef derives a ticket id from a branch name prefixed with its
// ticket number. Refs that do not match the convention yield the default
// ticket, so an administrator can audit hook activity there.
func TicketFromRef(refName string, defaultTicket int) int {
	match := ticketFromRef.FindStringSubmatch(refName)
	if match == nil {
		return defaultTicket
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return defaultTicket
	}
	return id
}

// Route computes every ticket a commit message should be posted to.
// Explicit "Refs #N" tokens and the merge-branch convention both apply;
// a single commit may route to several tickets at once. The ref-derived
// ticket is used only when neither pattern matched.
func Route(message string, refTicket int) []Target {
	var targets []Target

	for _, match := range explicitRefs.FindAllStringSubmatch(message, -1) {
		if id, err := strconv.Atoi(match[1]); err == nil {
			targets = append(targets, Target{Ticket: id, Role: RoleExplicit})
		}
	}

	if match := ticketFromMerge.FindStringSubmatch(message); match != nil {
		if id, err := strconv.Atoi(match[1]); err == nil {
			targets = append(targets, Target{Ticket: id, Role: RoleMergeSource})
		}
		if match[2] != "" {
			if id, err := strconv.Atoi(match[2]); err == nil {
				targets = append(targets, Target{Ticket: id, Role: RoleMergeTarget})
			}
		}
	}

	if len(targets) == 0 {
		targets = append(targets, Target{Ticket: refTicket, Role: RoleFallback})
	}
	return targets
}
