package models

// CommitInfo contains information about a git commit
type CommitInfo struct {
	// Rev is the full 40-character revision id
	Rev string
	// Message is the pretty-formatted commit message
	Message string
}

// NewCommitInfo creates a new CommitInfo
func NewCommitInfo(rev, message string) CommitInfo {
	return CommitInfo{
		Rev:     rev,
		Message: message,
	}
}

// Short returns the abbreviated revision id (7 characters)
func (c CommitInfo) Short() string {
	if len(c.Rev) < 7 {
		return c.Rev
	}
	return c.Rev[:7]
}
