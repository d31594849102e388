package hook

import (
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprin/trac-post-receive-hook/internal/config"
	"github.com/sprin/trac-post-receive-hook/internal/git"
	"github.com/sprin/trac-post-receive-hook/internal/models"
	"github.com/sprin/trac-post-receive-hook/internal/trac"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

type fakeNotifier struct {
	notified []int
}

func (f *fakeNotifier) Notify(ticket *trac.Ticket, comment string) error {
	f.notified = append(f.notified, ticket.ID)
	return nil
}

type fixture struct {
	hook     *Hook
	cfg      *config.Config
	db       *sqlx.DB
	dir      string
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE ticket (
		id INTEGER PRIMARY KEY,
		summary TEXT,
		owner TEXT,
		reporter TEXT,
		cc TEXT,
		changetime INTEGER
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ticket_change (
		ticket INTEGER,
		time INTEGER,
		author TEXT,
		field TEXT,
		oldvalue TEXT,
		newvalue TEXT
	)`)
	require.NoError(t, err)

	cfg := &config.Config{
		TracEnv:       "/unused",
		GitDir:        dir,
		PostComment:   true,
		DefaultTicket: 1,
		PrettyFormat:  "%s%n%n%b",
		Author:        "the wire",
		Separator:     "\n----\n",
	}

	history, err := git.Open("", dir)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	logger := log.New(io.Discard, "", 0)

	return &fixture{
		hook:     New(cfg, history, db, notifier, logger),
		cfg:      cfg,
		db:       db,
		dir:      dir,
		notifier: notifier,
	}
}

func (f *fixture) insertTicket(t *testing.T, id int) {
	t.Helper()
	_, err := f.db.Exec(`INSERT INTO ticket (id, summary, owner, reporter, cc, changetime) VALUES (?, 'summary', 'alice', 'bob@example.com', '', 0)`, id)
	require.NoError(t, err)
}

func (f *fixture) commit(t *testing.T, message string) string {
	t.Helper()
	runGit(t, f.dir, "commit", "--allow-empty", "-q", "-m", message)
	return runGit(t, f.dir, "rev-parse", "HEAD")
}

func (f *fixture) pushLine(t *testing.T, branch string) string {
	t.Helper()
	head := runGit(t, f.dir, "rev-parse", "HEAD")
	return fmt.Sprintf("%s %s refs/heads/%s\n", models.ZeroRev, head, branch)
}

func (f *fixture) comments(t *testing.T, ticket int) []string {
	t.Helper()
	var out []string
	require.NoError(t, f.db.Select(&out,
		`SELECT newvalue FROM ticket_change WHERE ticket = ? AND field = 'comment' ORDER BY time, oldvalue`, ticket))
	return out
}

func TestTicketBranchPush(t *testing.T) {
	f := newFixture(t)
	f.insertTicket(t, 5150)
	runGit(t, f.dir, "checkout", "-q", "-b", "5150_fix")
	f.commit(t, "Fix the thing")

	require.NoError(t, f.hook.Run(strings.NewReader(f.pushLine(t, "5150_fix"))))

	assert.Equal(t, []string{"Fix the thing"}, f.comments(t, 5150))
	assert.Equal(t, []int{5150}, f.notifier.notified)
}

func TestDefaultTicketCombinedComment(t *testing.T) {
	f := newFixture(t)
	f.insertTicket(t, 1)
	f.commit(t, "plumbing work")
	f.commit(t, "more plumbing")

	require.NoError(t, f.hook.Run(strings.NewReader(f.pushLine(t, "master"))))

	comments := f.comments(t, 1)
	require.Len(t, comments, 1)
	assert.Equal(t, "plumbing work\n----\nmore plumbing", comments[0])
}

func TestChronologicalOrder(t *testing.T) {
	f := newFixture(t)
	f.insertTicket(t, 42)
	runGit(t, f.dir, "checkout", "-q", "-b", "42_feature")
	f.commit(t, "C1")
	f.commit(t, "C2")
	f.commit(t, "C3")

	require.NoError(t, f.hook.Run(strings.NewReader(f.pushLine(t, "42_feature"))))

	comments := f.comments(t, 42)
	require.Len(t, comments, 1)
	assert.Equal(t, "C1\n----\nC2\n----\nC3", comments[0])
}

func TestExplicitRefRouting(t *testing.T) {
	f := newFixture(t)
	f.insertTicket(t, 42)
	f.commit(t, "See elsewhere\n\nRefs #42")

	require.NoError(t, f.hook.Run(strings.NewReader(f.pushLine(t, "master"))))

	assert.Equal(t, []string{"See elsewhere\n\nRefs #42"}, f.comments(t, 42))
	assert.Empty(t, f.comments(t, 1))
}

func TestRerunDoesNotRepost(t *testing.T) {
	f := newFixture(t)
	f.insertTicket(t, 5150)
	runGit(t, f.dir, "checkout", "-q", "-b", "5150_fix")
	f.commit(t, "Fix the thing")
	line := f.pushLine(t, "5150_fix")

	require.NoError(t, f.hook.Run(strings.NewReader(line)))
	require.NoError(t, f.hook.Run(strings.NewReader(line)))

	assert.Len(t, f.comments(t, 5150), 1)
}

func TestRerunWithRepostSeen(t *testing.T) {
	f := newFixture(t)
	f.cfg.RepostSeen = true
	f.insertTicket(t, 5150)
	runGit(t, f.dir, "checkout", "-q", "-b", "5150_fix")
	f.commit(t, "Fix the thing")
	line := f.pushLine(t, "5150_fix")

	require.NoError(t, f.hook.Run(strings.NewReader(line)))
	require.NoError(t, f.hook.Run(strings.NewReader(line)))

	assert.Len(t, f.comments(t, 5150), 2)
}

func TestPostingFailureRollsBackLedger(t *testing.T) {
	f := newFixture(t)
	// Ticket 5150 does not exist, so posting fails and the ledger insert
	// is rolled back.
	runGit(t, f.dir, "checkout", "-q", "-b", "5150_fix")
	rev := f.commit(t, "Fix the thing")
	line := f.pushLine(t, "5150_fix")

	require.NoError(t, f.hook.Run(strings.NewReader(line)))
	assert.Empty(t, f.notifier.notified)

	var count int
	require.NoError(t, f.db.Get(&count, `SELECT COUNT(*) FROM git_seen WHERE sha1 = ?`, rev))
	assert.Zero(t, count)

	// Once the ticket exists, a retried push posts the commit.
	f.insertTicket(t, 5150)
	require.NoError(t, f.hook.Run(strings.NewReader(line)))
	assert.Equal(t, []string{"Fix the thing"}, f.comments(t, 5150))
}

func TestDryRunStillRecords(t *testing.T) {
	f := newFixture(t)
	f.cfg.PostComment = false
	f.insertTicket(t, 1)
	rev := f.commit(t, "quiet work")

	require.NoError(t, f.hook.Run(strings.NewReader(f.pushLine(t, "master"))))

	assert.Empty(t, f.comments(t, 1))
	var count int
	require.NoError(t, f.db.Get(&count, `SELECT COUNT(*) FROM git_seen WHERE sha1 = ?`, rev))
	assert.Equal(t, 1, count)
}

func TestDeletedRefIsNoOp(t *testing.T) {
	f := newFixture(t)
	head := f.commit(t, "about to delete")
	line := fmt.Sprintf("%s %s refs/heads/doomed\n", head, models.ZeroRev)

	require.NoError(t, f.hook.Run(strings.NewReader(line)))
}

func TestMalformedLineIsFatal(t *testing.T) {
	f := newFixture(t)
	err := f.hook.Run(strings.NewReader("not enough tokens\n"))
	assert.Error(t, err)
}
