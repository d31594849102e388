package trac

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The git_seen table records every commit the hook has processed, so a
// repeated or overlapping push does not repost to tickets.

// EnsureSchema creates the git_seen table if it does not exist. Run once
// at startup (and by init-db), so a freshly initialized environment
// needs no manual setup.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS git_seen (sha1 VARCHAR(40) PRIMARY KEY)`)
	if err != nil {
		return fmt.Errorf("create git_seen: %w", err)
	}
	return nil
}

// FilterSeen returns which of the given revisions are already recorded
func FilterSeen(tx *sqlx.Tx, revs []string) (map[string]bool, error) {
	if len(revs) == 0 {
		return map[string]bool{}, nil
	}
	query, args, err := sqlx.In(`SELECT sha1 FROM git_seen WHERE sha1 IN (?)`, revs)
	if err != nil {
		return nil, err
	}
	var seen []string
	if err := tx.Select(&seen, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query git_seen: %w", err)
	}
	out := make(map[string]bool, len(seen))
	for _, rev := range seen {
		out[rev] = true
	}
	return out, nil
}

// Record inserts a revision into the ledger. A concurrent invocation
// racing on the same commit is an expected no-op, not an error.
func Record(tx *sqlx.Tx, rev string) error {
	_, err := tx.Exec(tx.Rebind(`INSERT INTO git_seen (sha1) VALUES (?) ON CONFLICT (sha1) DO NOTHING`), rev)
	if err != nil {
		return fmt.Errorf("record commit %s: %w", rev, err)
	}
	return nil
}
