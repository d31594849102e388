package models

import "strings"

// TicketBatch accumulates commit messages per ticket for one ref update.
// Tickets keep first-appearance order and messages keep chronological
// (oldest-first) order, matching the order commits are fed in.
type TicketBatch struct {
	order    []int
	messages map[int][]string
	added    map[pairKey]bool
}

type pairKey struct {
	ticket int
	rev    string
}

// NewTicketBatch creates an empty TicketBatch
func NewTicketBatch() *TicketBatch {
	return &TicketBatch{
		messages: make(map[int][]string),
		added:    make(map[pairKey]bool),
	}
}

// Add appends a commit's message to a ticket's pending comment. A commit
// that reaches the same ticket through overlapping route matches (say an
// explicit ref and a merge match naming the same ticket) is added once.
func (b *TicketBatch) Add(ticket int, rev, message string) {
	key := pairKey{ticket: ticket, rev: rev}
	if b.added[key] {
		return
	}
	b.added[key] = true

	if _, ok := b.messages[ticket]; !ok {
		b.order = append(b.order, ticket)
	}
	b.messages[ticket] = append(b.messages[ticket], message)
}

// Len returns the number of tickets with pending messages
func (b *TicketBatch) Len() int {
	return len(b.order)
}

// Tickets returns ticket ids in first-appearance order
func (b *TicketBatch) Tickets() []int {
	out := make([]int, len(b.order))
	copy(out, b.order)
	return out
}

// Comment joins a ticket's pending messages with the given separator,
// oldest first
func (b *TicketBatch) Comment(ticket int, separator string) string {
	return strings.Join(b.messages[ticket], separator)
}
