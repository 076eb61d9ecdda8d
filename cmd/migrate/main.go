package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/infrastructure/config"
	"github.com/roastery/backend/internal/infrastructure/logger"
	"github.com/roastery/backend/internal/infrastructure/migration"
	"github.com/roastery/backend/migrations"
)

// command is one migrate subcommand. File commands run without a database.
type command struct {
	usage string
	args  int
	file  func(dir string, args []string, log *zap.Logger) error
	db    func(m *migration.Migrator, args []string, log *zap.Logger) error
}

var commands = map[string]command{
	"up":      {usage: "up", db: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() }},
	"down":    {usage: "down", db: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() }},
	"step":    {usage: "step <n>", args: 1, db: runStep},
	"goto":    {usage: "goto <version>", args: 1, db: runGoto},
	"force":   {usage: "force <version>", args: 1, db: runForce},
	"version": {usage: "version", db: runVersion},
	"create":  {usage: "create <name> [description]", args: 1, file: runCreate},
	"list":    {usage: "list", file: runList},
}

func main() {
	path := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	timeout := flag.Duration("timeout", 30*time.Second, "How long to wait for the database")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	if len(args)-1 < cmd.args {
		fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{
		Level:      *logLevel,
		Format:     "console",
		TimeFormat: "2006-01-02 15:04:05",
		Service:    "roastery-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(cmd, *path, args[1:], *timeout, log); err != nil {
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(cmd command, path string, args []string, timeout time.Duration, log *zap.Logger) error {
	if cmd.file != nil {
		dir, err := resolvePath(path)
		if err != nil {
			return err
		}
		return cmd.file(dir, args, log)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if path != "" {
		dir, err := resolvePath(path)
		if err != nil {
			return err
		}
		m, err = migration.New(db, dir, log)
		if err != nil {
			return err
		}
	} else if m, err = migration.NewFromFS(db, migrations.FS, log); err != nil {
		return err
	}
	defer m.Close()

	return cmd.db(m, args, log)
}

func runStep(m *migration.Migrator, args []string, _ *zap.Logger) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n == 0 {
		return fmt.Errorf("invalid step count %q", args[0])
	}
	return m.Steps(n)
}

func runGoto(m *migration.Migrator, args []string, _ *zap.Logger) error {
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid version %q", args[0])
	}
	return m.GoTo(uint(version))
}

func runForce(m *migration.Migrator, args []string, _ *zap.Logger) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q", args[0])
	}
	return m.Force(version)
}

func runVersion(m *migration.Migrator, _ []string, log *zap.Logger) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	if dirty {
		return errors.New("database is dirty; fix the failed migration and run force")
	}
	return nil
}

func runCreate(dir string, args []string, log *zap.Logger) error {
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(dir string, _ []string, log *zap.Logger) error {
	names, err := migration.ListMigrations(dir)
	if err != nil {
		return err
	}
	log.Info("Available migrations", zap.String("dir", dir), zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

// resolvePath defaults to ./migrations and makes the path absolute
func resolvePath(path string) (string, error) {
	if path == "" {
		path = "migrations"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return abs, nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Roastery database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show the current version; fails when dirty
  force <version>       Set the version without running migrations
  create <name> [desc]  Create the next numbered migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: embedded set; ./migrations for create/list)
  -log-level string     Log level: debug, info, warn, error (default: info)
  -timeout duration     Database connect timeout (default: 30s)

Database settings come from ROASTERY_DATABASE_HOST, _PORT, _USER, _PASSWORD,
_DBNAME and _SSLMODE.
`)
}
