// Package notify sends ticket change emails after a comment is posted.
package notify

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/sprin/trac-post-receive-hook/internal/config"
	"github.com/sprin/trac-post-receive-hook/internal/trac"
)

// Sender delivers an assembled message; swapped out in tests
type Sender func(addr, from string, to []string, msg []byte) error

// Notifier emails ticket watchers through the tracker's configured SMTP
// relay. Formatting here is deliberately plain; Trac's own templates are
// out of scope.
type Notifier struct {
	enabled bool
	server  string
	port    int
	from    string
	replyTo string
	project string
	url     string
	send    Sender
}

// New builds a Notifier from the Trac environment, with hook config
// overrides applied on top
func New(env *trac.Env, cfg config.NotificationConfig) *Notifier {
	n := &Notifier{
		enabled: env.Notification.SMTPEnabled,
		server:  env.Notification.SMTPServer,
		port:    env.Notification.SMTPPort,
		from:    env.Notification.SMTPFrom,
		replyTo: env.Notification.SMTPReplyTo,
		project: env.Project.Name,
		url:     env.Project.URL,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
	if cfg.Enabled != nil {
		n.enabled = *cfg.Enabled
	}
	if cfg.SMTPServer != "" {
		n.server = cfg.SMTPServer
	}
	if cfg.SMTPPort != 0 {
		n.port = cfg.SMTPPort
	}
	if cfg.SMTPFrom != "" {
		n.from = cfg.SMTPFrom
	}
	return n
}

// Notify emails the ticket's reporter, owner and cc list about the new
// comment. Disabled notification or an empty recipient list is a no-op.
func (n *Notifier) Notify(t *trac.Ticket, comment string) error {
	if !n.enabled {
		return nil
	}
	to := recipients(t)
	if len(to) == 0 {
		return nil
	}

	msg := n.assemble(t, comment, to)
	addr := net.JoinHostPort(n.server, strconv.Itoa(n.port))
	if err := n.send(addr, n.from, to, msg); err != nil {
		return fmt.Errorf("notify ticket #%d: %w", t.ID, err)
	}
	return nil
}

func (n *Notifier) assemble(t *trac.Ticket, comment string, to []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	if n.replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", n.replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", n.subject(t))
	b.WriteString("\r\n")
	b.WriteString(comment)
	if n.url != "" {
		fmt.Fprintf(&b, "\r\n\r\n-- \nTicket URL: %s/ticket/%d\r\n", strings.TrimRight(n.url, "/"), t.ID)
	}
	return []byte(b.String())
}

func (n *Notifier) subject(t *trac.Ticket) string {
	project := n.project
	if project == "" {
		project = "trac"
	}
	return fmt.Sprintf("Re: [%s] #%d: %s", project, t.ID, t.Summary.String)
}

// recipients collects the reporter, owner and comma-separated cc list,
// dropping empties and duplicates but keeping order
func recipients(t *trac.Ticket) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	add(t.Reporter.String)
	add(t.Owner.String)
	for _, cc := range strings.Split(t.CC.String, ",") {
		add(cc)
	}
	return out
}
