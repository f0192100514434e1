// Package dbutil is the data-access helper used by the learning tests and the CLI.
//
// It pairs a session view (what the current unit of work sees, including its
// uncommitted changes) with a durable view read over a separate connection
// that only ever sees committed rows.
package dbutil

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tasklearn/internal/db/gorm"
	"github.com/thebtf/tasklearn/internal/fixture"
	"github.com/thebtf/tasklearn/pkg/models"
)

// Helper issues the fixed queries of the exercises.
type Helper struct {
	session *gorm.Session
	durable *sql.DB
	loader  *fixture.Loader
}

// New creates a helper bound to session. The durable view connects to dsn
// with its own pool.
func New(session *gorm.Session, dsn string, loader *fixture.Loader) (*Helper, error) {
	durable, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open durable connection: %w", err)
	}
	durable.SetMaxOpenConns(1)
	return &Helper{session: session, durable: durable, loader: loader}, nil
}

// Close releases the durable connection. The session is left to its owner.
func (h *Helper) Close() error {
	return h.durable.Close()
}

// Session returns the session the helper reads through.
func (h *Helper) Session() *gorm.Session {
	return h.session
}

// SetSession rebinds the helper to another session.
func (h *Helper) SetSession(s *gorm.Session) {
	h.session = s
}

// InitDB clears both tables and reloads the sample dataset.
func (h *Helper) InitDB(ctx context.Context) error {
	if h.loader == nil {
		return fmt.Errorf("init db: no fixture loader configured")
	}
	return h.loader.Reset(ctx)
}

// PullUsers returns every user with its tasks, as the session sees them.
func (h *Helper) PullUsers() ([]*models.User, error) {
	return h.session.Users()
}

// PullTasks returns every task, as the session sees them.
func (h *Helper) PullTasks() ([]*models.Task, error) {
	return h.session.Tasks()
}

// PullTaskTitles returns every task title, as the session sees them.
func (h *Helper) PullTaskTitles() ([]string, error) {
	return h.session.TaskTitles()
}

// DBTaskTitles returns committed task titles, bypassing the session.
// Errors are logged and yield an empty list.
func (h *Helper) DBTaskTitles(ctx context.Context) []string {
	titles, err := h.DBTaskTitlesE(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Read committed task titles")
		return []string{}
	}
	return titles
}

// DBTaskTitlesE is DBTaskTitles with the error returned.
func (h *Helper) DBTaskTitlesE(ctx context.Context) ([]string, error) {
	return h.queryStrings(ctx, "SELECT title FROM tasks ORDER BY id")
}

// DBUsernames returns committed usernames, bypassing the session.
// Errors are logged and yield an empty list.
func (h *Helper) DBUsernames(ctx context.Context) []string {
	names, err := h.DBUsernamesE(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Read committed usernames")
		return []string{}
	}
	return names
}

// DBUsernamesE is DBUsernames with the error returned.
func (h *Helper) DBUsernamesE(ctx context.Context) ([]string, error) {
	return h.queryStrings(ctx, "SELECT username FROM users ORDER BY id")
}

func (h *Helper) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := h.durable.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
