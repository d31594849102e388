package git

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/sprin/trac-post-receive-hook/internal/models"
)

// CLI reads history by invoking the configured git executable, matching
// the hook's historical contract exactly (rev-list plus log -1 with an
// arbitrary pretty-format)
type CLI struct {
	// GitPath is the git executable to invoke
	GitPath string
	// Dir is the repository directory the commands run in
	Dir string
}

// ListNewCommits runs `git rev-list <new> ^<old>`, or `git rev-list
// <new>` when the ref was just created. Output is newest first.
func (c *CLI) ListNewCommits(oldRev, newRev string) ([]string, error) {
	args := []string{"rev-list", newRev}
	if oldRev != models.ZeroRev {
		args = append(args, "^"+oldRev)
	}
	out, err := c.run(args...)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// CommitMessage runs `git log --pretty=format:<format> -1 <rev>`
func (c *CLI) CommitMessage(rev, format string) (string, error) {
	out, err := c.run("log", "--pretty=format:"+format, "-1", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), " \n"), nil
}

func (c *CLI) run(args ...string) ([]byte, error) {
	cmd := exec.Command(c.GitPath, args...)
	cmd.Dir = c.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, &GitError{Command: args[0], Output: strings.TrimSpace(stderr.String())}
	}
	return out, nil
}

// GitError provides better context for git command failures
type GitError struct {
	Command string
	Output  string
}

func (e *GitError) Error() string {
	if e.Output == "" {
		return "git " + e.Command + " failed"
	}
	return "git " + e.Command + ": " + e.Output
}
