// Package git answers the two history questions the hook asks: which
// commits did a ref update introduce, and what is a commit's message.
package git

// Log queries commit history in the pushed-to repository
type Log interface {
	// ListNewCommits returns the revisions reachable from newRev but not
	// from oldRev, newest first. oldRev may be models.ZeroRev for a
	// freshly created ref, meaning all ancestors of newRev.
	ListNewCommits(oldRev, newRev string) ([]string, error)
	// CommitMessage returns a commit's message rendered with the given
	// git pretty-print format, trailing whitespace stripped
	CommitMessage(rev, format string) (string, error)
}

// Open returns a Log for the repository at dir. With a non-empty gitPath
// history is read by shelling out to that executable (any pretty-format
// git accepts); otherwise the in-process backend is used.
func Open(gitPath, dir string) (Log, error) {
	if gitPath != "" {
		return &CLI{GitPath: gitPath, Dir: dir}, nil
	}
	return OpenRepo(dir)
}
