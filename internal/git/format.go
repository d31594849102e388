package git

import (
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// FormatCommit renders a commit with a subset of git's pretty-format
// placeholders: %H %h %an %ae %ad %aD %at %s %b %B %n %%. Placeholders
// outside the subset pass through literally, as git itself does. The
// exec backend accepts the full format language; this covers the
// templates a hook config realistically uses.
func FormatCommit(c *object.Commit, format string) (string, error) {
	subject, body := splitMessage(c.Message)

	var out strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			out.WriteByte(format[i])
			continue
		}
		i++
		switch format[i] {
		case 'H':
			out.WriteString(c.Hash.String())
		case 'h':
			out.WriteString(c.Hash.String()[:7])
		case 'n':
			out.WriteByte('\n')
		case 's':
			out.WriteString(subject)
		case 'b':
			out.WriteString(body)
		case 'B':
			out.WriteString(c.Message)
		case '%':
			out.WriteByte('%')
		case 'a':
			if i+1 == len(format) {
				out.WriteString("%a")
				continue
			}
			i++
			switch format[i] {
			case 'n':
				out.WriteString(c.Author.Name)
			case 'e':
				out.WriteString(c.Author.Email)
			case 'd':
				out.WriteString(c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
			case 'D':
				out.WriteString(c.Author.When.Format("Mon, 02 Jan 2006 15:04:05 -0700"))
			case 't':
				out.WriteString(formatUnix(c.Author.When.Unix()))
			default:
				out.WriteString("%a")
				out.WriteByte(format[i])
			}
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	return strings.TrimRight(out.String(), " \n"), nil
}

// splitMessage separates a commit message into git's notion of subject
// (everything before the first blank line, newlines collapsed to spaces)
// and body (everything after it)
func splitMessage(message string) (subject, body string) {
	message = strings.TrimRight(message, "\n")
	if idx := strings.Index(message, "\n\n"); idx >= 0 {
		subject = strings.ReplaceAll(message[:idx], "\n", " ")
		body = strings.TrimLeft(message[idx+2:], "\n")
		return subject, body
	}
	return strings.ReplaceAll(message, "\n", " "), ""
}

func formatUnix(sec int64) string {
	return strconv.FormatInt(sec, 10)
}
