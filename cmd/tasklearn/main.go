// Package main provides the tasklearn command line entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tasklearn/internal/config"
	"github.com/thebtf/tasklearn/internal/db"
	"github.com/thebtf/tasklearn/internal/db/gorm"
	"github.com/thebtf/tasklearn/internal/fixture"
	"github.com/thebtf/tasklearn/internal/privacy"
	"github.com/thebtf/tasklearn/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

const usage = `usage: tasklearn [-config path] <command>

commands:
  migrate   apply schema migrations
  seed      reload the sample users and tasks
  tasks     print committed tasks
  users     print committed users with their task titles
  titles    print committed task titles
  status    print database health as JSON
`

func main() {
	configPath := flag.String("config", config.SettingsPath(), "Path to settings.yaml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0)); err != nil {
		log.Error().Err(err).Str("command", flag.Arg(0)).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string) error {
	if cmd != "migrate" && cmd != "seed" && cmd != "tasks" && cmd != "users" && cmd != "titles" && cmd != "status" {
		return fmt.Errorf("unknown command %q", cmd)
	}

	log.Debug().
		Str("version", Version).
		Str("command", cmd).
		Str("dsn", privacy.RedactDSN(cfg.DatabaseDSN)).
		Msg("Starting tasklearn")

	// Migrations run when the store opens.
	store, err := gorm.NewStore(gorm.Config{
		DSN:      cfg.DatabaseDSN,
		MaxConns: cfg.MaxConns,
		LogLevel: gorm.ParseLogLevel(cfg.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	switch cmd {
	case "migrate":
		if err := store.Ping(); err != nil {
			return err
		}
		log.Info().Msg("Schema is up to date")
		return nil
	case "seed":
		resetCtx, cancel := store.WithTimeout(ctx, gorm.SlowQueryTimeout, "fixture_reset")
		defer cancel()
		return fixture.FromConfig(cfg).Reset(resetCtx)
	case "tasks":
		return printTasks(ctx, gorm.NewTaskStore(store))
	case "users":
		return printUsers(ctx, gorm.NewUserStore(store))
	case "titles":
		titles, err := gorm.NewTaskStore(store).GetTaskTitles(ctx)
		if err != nil {
			return err
		}
		for _, title := range titles {
			fmt.Println(title)
		}
		return nil
	default:
		return printStatus(ctx, store)
	}
}

func printTasks(ctx context.Context, tasks db.TaskReader) error {
	all, err := tasks.GetAllTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range all {
		fmt.Printf("%d\t%s\t%s\t%s\t%s\n", t.ID, doneMark(t), formatDeadline(t.Deadline), formatOwner(t), t.Title)
	}
	return nil
}

func printUsers(ctx context.Context, users db.UserReader) error {
	all, err := users.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range all {
		fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, strings.Join(u.TaskTitles(), ", "))
	}
	return nil
}

func printStatus(ctx context.Context, store *gorm.Store) error {
	info := store.HealthCheck(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return err
	}
	if info.Status == "unhealthy" {
		return fmt.Errorf("database unhealthy: %s", info.Error)
	}
	return nil
}

func doneMark(t *models.Task) string {
	if t.Done {
		return "[x]"
	}
	return "[ ]"
}

func formatDeadline(d time.Time) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format(fixture.DeadlineLayout)
}

func formatOwner(t *models.Task) string {
	if !t.HasOwner() {
		return "-"
	}
	return fmt.Sprintf("user#%d", *t.OwnerID)
}
