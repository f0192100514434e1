// Package fixture resets the users and tasks tables to a fixed sample dataset.
package fixture

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tasklearn/internal/config"
	"github.com/thebtf/tasklearn/internal/privacy"
	"github.com/thebtf/tasklearn/pkg/models"
)

// Sample file names, both on the database host and in the embedded copy.
const (
	UserFile = "sample_user.csv"
	TaskFile = "sample_task.csv"
)

// DeadlineLayout is the date format of the deadline column.
const DeadlineLayout = "2006-01-02"

//go:embed data/*.csv
var dataFS embed.FS

// table describes one COPY target. Columns are listed explicitly because the
// CSV column order need not match the table's.
type table struct {
	name    string
	file    string
	columns []string
}

// users before tasks: tasks.owner references users.id.
var tables = []table{
	{name: "users", file: UserFile, columns: []string{"id", "username", "password", "email"}},
	{name: "tasks", file: TaskFile, columns: []string{"id", "title", "description", "deadline", "done", "owner"}},
}

// Options configures a Loader.
type Options struct {
	DSN string
	// Dir holds sample_user.csv and sample_task.csv. In stdin mode an empty Dir
	// means the embedded copies; in server mode it is a path on the database host.
	Dir  string
	Mode string
}

// Loader reloads the sample dataset.
type Loader struct {
	dsn  string
	dir  string
	mode string
}

// NewLoader creates a loader. An empty mode means config.FixtureModeStdin.
func NewLoader(opts Options) *Loader {
	mode := opts.Mode
	if mode == "" {
		mode = config.FixtureModeStdin
	}
	return &Loader{dsn: opts.DSN, dir: opts.Dir, mode: mode}
}

// FromConfig creates a loader from application settings.
func FromConfig(cfg *config.Config) *Loader {
	return NewLoader(Options{DSN: cfg.DatabaseDSN, Dir: cfg.FixtureDir, Mode: cfg.FixtureMode})
}

// Reset deletes every task and user, bulk loads both sample files and moves the
// id sequences past the loaded ids. It runs in one transaction on its own
// connection, so callers never observe a half-loaded dataset.
func (l *Loader) Reset(ctx context.Context) error {
	start := time.Now()

	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect %s: %w", privacy.RedactDSN(l.dsn), err)
	}
	defer func() { _ = conn.Close(ctx) }()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Warn().Err(err).Msg("Fixture rollback failed")
		}
	}()

	// tasks first: the foreign key has no ON DELETE action
	for _, stmt := range []string{"DELETE FROM tasks", "DELETE FROM users"} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	for _, t := range tables {
		n, err := l.copyTable(ctx, tx, t)
		if err != nil {
			return fmt.Errorf("load %s: %w", t.name, err)
		}
		log.Debug().Str("table", t.name).Int64("rows", n).Msg("Fixture loaded")
	}

	for _, t := range tables {
		if _, err := tx.Exec(ctx, resyncSequenceSQL(t.name)); err != nil {
			return fmt.Errorf("resync %s sequence: %w", t.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info().Str("mode", l.mode).Dur("elapsed", time.Since(start)).Msg("Fixture dataset reset")
	return nil
}

func (l *Loader) copyTable(ctx context.Context, tx pgx.Tx, t table) (int64, error) {
	switch l.mode {
	case config.FixtureModeServer:
		path := filepath.Join(l.dir, t.file)
		tag, err := tx.Exec(ctx, copyFromFileSQL(t, path))
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	case config.FixtureModeStdin:
		r, err := l.open(t.file)
		if err != nil {
			return 0, err
		}
		defer func() { _ = r.Close() }()
		tag, err := tx.Conn().PgConn().CopyFrom(ctx, r, copyFromStdinSQL(t))
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	default:
		return 0, fmt.Errorf("unknown fixture mode %q", l.mode)
	}
}

// open returns the named sample file from Dir, or the embedded copy when Dir is empty.
func (l *Loader) open(name string) (io.ReadCloser, error) {
	if l.dir == "" {
		return dataFS.Open("data/" + name)
	}
	return os.Open(filepath.Join(l.dir, name))
}

func columnList(t table) string {
	quoted := make([]string, len(t.columns))
	for i, c := range t.columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func copyFromStdinSQL(t table) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true, DELIMITER ',')",
		pq.QuoteIdentifier(t.name), columnList(t))
}

// copyFromFileSQL reads path on the database server; the role needs
// pg_read_server_files or superuser.
func copyFromFileSQL(t table, path string) string {
	return fmt.Sprintf("COPY %s (%s) FROM %s WITH (FORMAT csv, HEADER true, DELIMITER ',')",
		pq.QuoteIdentifier(t.name), columnList(t), pq.QuoteLiteral(path))
}

// resyncSequenceSQL makes the next generated id max(id)+1 (1 for an empty table).
func resyncSequenceSQL(name string) string {
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence(%s, 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s",
		pq.QuoteLiteral(name), pq.QuoteIdentifier(name))
}

// Users parses the embedded sample users, in file order, without tasks.
func Users() ([]*models.User, error) {
	records, err := readEmbedded(UserFile, 4)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(records))
	for i, rec := range records {
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: id: %w", UserFile, i+2, err)
		}
		u := models.NewUser(rec[1], rec[2], rec[3])
		u.ID = id
		users = append(users, u)
	}
	return users, nil
}

// Tasks parses the embedded sample tasks, in file order.
func Tasks() ([]*models.Task, error) {
	records, err := readEmbedded(TaskFile, 6)
	if err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0, len(records))
	for i, rec := range records {
		t, err := parseTask(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", TaskFile, i+2, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func parseTask(rec []string) (*models.Task, error) {
	id, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	var deadline time.Time
	if rec[3] != "" {
		deadline, err = time.Parse(DeadlineLayout, rec[3])
		if err != nil {
			return nil, fmt.Errorf("deadline: %w", err)
		}
	}
	done, err := strconv.ParseBool(rec[4])
	if err != nil {
		return nil, fmt.Errorf("done: %w", err)
	}

	t := models.NewTask(rec[1], rec[2], deadline, done)
	t.ID = id
	if rec[5] != "" {
		owner, err := strconv.ParseInt(rec[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("owner: %w", err)
		}
		t.SetOwner(owner)
	}
	return t, nil
}

// readEmbedded returns the data rows of an embedded CSV file, header dropped.
func readEmbedded(name string, fields int) ([][]string, error) {
	f, err := dataFS.Open("data/" + name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: missing header", name)
	}
	return records[1:], nil
}
