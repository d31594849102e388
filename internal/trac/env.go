// Package trac talks to a Trac environment: its configuration, its
// database, and the hook's seen-commit ledger inside that database.
package trac

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	ini "github.com/vaughan0/go-ini"
)

// Env is a Trac environment on disk (the directory trac-admin initenv
// created)
type Env struct {
	// Path is the environment root
	Path string
	// Database is the [trac] database connection string
	Database string

	Project      ProjectInfo
	Notification NotificationInfo
}

// ProjectInfo is the [project] section of trac.ini
type ProjectInfo struct {
	Name string
	URL  string
}

// NotificationInfo is the [notification] section of trac.ini
type NotificationInfo struct {
	SMTPEnabled bool
	SMTPServer  string
	SMTPPort    int
	SMTPFrom    string
	SMTPReplyTo string
}

// OpenEnv reads <path>/conf/trac.ini
func OpenEnv(path string) (*Env, error) {
	file, err := ini.LoadFile(filepath.Join(path, "conf", "trac.ini"))
	if err != nil {
		return nil, fmt.Errorf("open trac environment %s: %w", path, err)
	}

	env := &Env{Path: path}
	env.Database = getDefault(file, "trac", "database", "sqlite:db/trac.db")
	env.Project.Name, _ = file.Get("project", "name")
	env.Project.URL, _ = file.Get("project", "url")

	enabled, _ := file.Get("notification", "smtp_enabled")
	env.Notification.SMTPEnabled = isTrue(enabled)
	env.Notification.SMTPServer = getDefault(file, "notification", "smtp_server", "localhost")
	env.Notification.SMTPPort = getIntDefault(file, "notification", "smtp_port", 25)
	env.Notification.SMTPFrom = getDefault(file, "notification", "smtp_from", "trac@localhost")
	env.Notification.SMTPReplyTo, _ = file.Get("notification", "smtp_replyto")
	return env, nil
}

// DriverDSN maps a Trac connection string to a database/sql driver name
// and DSN. A non-empty override takes precedence over the environment's
// configured string. Relative sqlite paths resolve against the
// environment root, as Trac resolves them.
func (e *Env) DriverDSN(override string) (driver, dsn string, err error) {
	connstr := e.Database
	if override != "" {
		connstr = override
	}
	switch {
	case strings.HasPrefix(connstr, "sqlite:"):
		p := strings.TrimPrefix(connstr, "sqlite:")
		if !filepath.IsAbs(p) {
			p = filepath.Join(e.Path, p)
		}
		return "sqlite3", p, nil
	case strings.HasPrefix(connstr, "postgres://"):
		return "postgres", connstr, nil
	}
	return "", "", fmt.Errorf("unsupported database connection string %q", connstr)
}

// Connect opens the environment's database
func (e *Env) Connect(override string) (*sqlx.DB, error) {
	driver, dsn, err := e.DriverDSN(override)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func getDefault(file ini.File, section, key, fallback string) string {
	if v, ok := file.Get(section, key); ok && v != "" {
		return v
	}
	return fallback
}

func getIntDefault(file ini.File, section, key string, fallback int) int {
	v, ok := file.Get(section, key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "enabled", "yes", "on", "1":
		return true
	}
	return false
}
