package trac

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

// Ticket is the slice of Trac's ticket table the hook needs
type Ticket struct {
	ID       int            `db:"id"`
	Summary  sql.NullString `db:"summary"`
	Owner    sql.NullString `db:"owner"`
	Reporter sql.NullString `db:"reporter"`
	CC       sql.NullString `db:"cc"`
}

// LookupTicket fetches a ticket by id. A missing ticket is an error for
// that ticket only; the caller isolates it from the rest of the batch.
func LookupTicket(tx *sqlx.Tx, id int) (*Ticket, error) {
	var t Ticket
	err := tx.Get(&t, tx.Rebind(`SELECT id, summary, owner, reporter, cc FROM ticket WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket #%d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ticket #%d: %w", id, err)
	}
	return &t, nil
}

// nextChangeNum mirrors Trac's permanent changelog numbering: every
// distinct comment changetime counts as one entry
func nextChangeNum(tx *sqlx.Tx, id int) (int, error) {
	var n int
	err := tx.Get(&n, tx.Rebind(`SELECT COUNT(DISTINCT time) FROM ticket_change WHERE ticket = ? AND field = 'comment'`), id)
	if err != nil {
		return 0, fmt.Errorf("changelog for ticket #%d: %w", id, err)
	}
	return n + 1, nil
}

// AppendComment writes a comment change the way Trac's ticket module
// does: a ticket_change row with field 'comment', oldvalue holding the
// change sequence number, newvalue holding the text, and the ticket's
// changetime bumped. Timestamps are microseconds since the epoch (the
// Trac 0.12+ convention).
func AppendComment(tx *sqlx.Tx, id int, author, comment string, now time.Time) (*Ticket, error) {
	t, err := LookupTicket(tx, id)
	if err != nil {
		return nil, err
	}
	cnum, err := nextChangeNum(tx, id)
	if err != nil {
		return nil, err
	}

	ts := now.UnixMicro()
	_, err = tx.Exec(
		tx.Rebind(`INSERT INTO ticket_change (ticket, time, author, field, oldvalue, newvalue) VALUES (?, ?, ?, 'comment', ?, ?)`),
		id, ts, author, strconv.Itoa(cnum), comment,
	)
	if err != nil {
		return nil, fmt.Errorf("append comment to ticket #%d: %w", id, err)
	}
	_, err = tx.Exec(tx.Rebind(`UPDATE ticket SET changetime = ? WHERE id = ?`), ts, id)
	if err != nil {
		return nil, fmt.Errorf("touch ticket #%d: %w", id, err)
	}
	return t, nil
}
