// Package hook runs the post-receive pipeline: ref updates in, ticket
// comments out.
package hook

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sprin/trac-post-receive-hook/internal/config"
	"github.com/sprin/trac-post-receive-hook/internal/git"
	"github.com/sprin/trac-post-receive-hook/internal/models"
	"github.com/sprin/trac-post-receive-hook/internal/router"
	"github.com/sprin/trac-post-receive-hook/internal/trac"
)

// Notifier delivers a ticket change notification after its comment has
// been committed
type Notifier interface {
	Notify(t *trac.Ticket, comment string) error
}

// Hook processes the ref updates of one push
type Hook struct {
	cfg      *config.Config
	history  git.Log
	db       *sqlx.DB
	notifier Notifier
	logger   *log.Logger

	// now is stubbed in tests
	now func() time.Time
}

// New wires up a Hook
func New(cfg *config.Config, history git.Log, db *sqlx.DB, notifier Notifier, logger *log.Logger) *Hook {
	return &Hook{
		cfg:      cfg,
		history:  history,
		db:       db,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Run reads "<old> <new> <ref>" lines from r (the post-receive stdin
// contract) and handles each ref in input order. A malformed line is
// fatal for the invocation; git produces this stream, not users.
func (h *Hook) Run(r io.Reader) error {
	if err := trac.EnsureSchema(h.db); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		update, err := models.ParseRefUpdate(line)
		if err != nil {
			return err
		}
		if err := h.HandleRef(update); err != nil {
			return fmt.Errorf("ref %s: %w", update.RefName, err)
		}
	}
	return scanner.Err()
}

// HandleRef posts all the new commits of one ref update to their
// tickets. Ledger inserts and ticket posts share one transaction; a
// posting failure rolls everything back so a retried push reprocesses
// those commits.
func (h *Hook) HandleRef(update models.RefUpdate) error {
	h.debugf("handling %s", update.RefName)
	if update.Deleted() {
		return nil
	}

	refTicket := router.TicketFromRef(update.RefName, h.cfg.DefaultTicket)
	h.debugf("ref ticket: #%d", refTicket)

	revs, err := h.history.ListNewCommits(update.OldRev, update.NewRev)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		return nil
	}
	h.debugf("pending commits: %v", revs)

	tx, err := h.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seen, err := trac.FilterSeen(tx, revs)
	if err != nil {
		return err
	}

	batch := models.NewTicketBatch()
	// rev-list output is newest first; tickets read oldest first.
	for i := len(revs) - 1; i >= 0; i-- {
		rev := revs[i]
		if seen[rev] && !h.cfg.RepostSeen {
			continue
		}
		if err := trac.Record(tx, rev); err != nil {
			return err
		}

		message, err := h.history.CommitMessage(rev, h.cfg.PrettyFormat)
		if err != nil {
			return err
		}
		commit := models.NewCommitInfo(rev, message)
		h.debugf("handling commit %s: %s", commit.Short(), commit.Message)

		for _, target := range router.Route(commit.Message, refTicket) {
			h.debugf("commit %s -> ticket #%d (%s)", commit.Short(), target.Ticket, target.Role)
			batch.Add(target.Ticket, commit.Rev, commit.Message)
		}
	}

	if !h.cfg.PostComment {
		for _, id := range batch.Tickets() {
			h.logger.Printf("would post to ticket #%d", id)
		}
		return tx.Commit()
	}

	type posted struct {
		ticket  *trac.Ticket
		comment string
	}
	var done []posted
	failed := false
	now := h.now().UTC()

	for _, id := range batch.Tickets() {
		comment := batch.Comment(id, h.cfg.Separator)
		ticket, err := trac.AppendComment(tx, id, h.cfg.Author, comment, now)
		if err != nil {
			// Keep trying the other tickets; the rollback below makes
			// the whole ref eligible for a retried push.
			failed = true
			h.logger.Printf("error posting to ticket #%d: %v", id, err)
			continue
		}
		h.logger.Printf("posting to ticket #%d", id)
		done = append(done, posted{ticket: ticket, comment: comment})
	}

	if failed {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, p := range done {
		if err := h.notifier.Notify(p.ticket, p.comment); err != nil {
			h.logger.Printf("%v", err)
		}
	}
	return nil
}

func (h *Hook) debugf(format string, args ...any) {
	if h.cfg.Verbose {
		h.logger.Printf(format, args...)
	}
}
