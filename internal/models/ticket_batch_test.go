package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketBatchOrdering(t *testing.T) {
	b := NewTicketBatch()
	b.Add(42, "c1", "first")
	b.Add(7, "c1", "first")
	b.Add(42, "c2", "second")
	b.Add(42, "c3", "third")

	assert.Equal(t, []int{42, 7}, b.Tickets())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "first\n----\nsecond\n----\nthird", b.Comment(42, "\n----\n"))
	assert.Equal(t, "first", b.Comment(7, "\n----\n"))
}

func TestTicketBatchDedupesOverlappingRoutes(t *testing.T) {
	b := NewTicketBatch()
	// Same commit routed to the same ticket twice (explicit ref plus merge
	// match) collapses to a single message.
	b.Add(501, "c1", "Merge branch '501_foo' Refs #501")
	b.Add(501, "c1", "Merge branch '501_foo' Refs #501")

	assert.Equal(t, "Merge branch '501_foo' Refs #501", b.Comment(501, "\n----\n"))
	assert.Equal(t, []int{501}, b.Tickets())
}

func TestTicketBatchEmpty(t *testing.T) {
	b := NewTicketBatch()
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Tickets())
	assert.Equal(t, "", b.Comment(1, "\n----\n"))
}

func TestParseRefUpdate(t *testing.T) {
	u, err := ParseRefUpdate("53fdc4 b38057 refs/heads/master")
	assert.NoError(t, err)
	assert.Equal(t, "53fdc4", u.OldRev)
	assert.Equal(t, "b38057", u.NewRev)
	assert.Equal(t, "refs/heads/master", u.RefName)
	assert.False(t, u.Created())
	assert.False(t, u.Deleted())

	u, err = ParseRefUpdate(ZeroRev + " b38057 refs/heads/5150_fix")
	assert.NoError(t, err)
	assert.True(t, u.Created())

	_, err = ParseRefUpdate("only two-tokens")
	assert.Error(t, err)
}
