// Command migrate manages the record store schema on postgres.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/portal/internal/infrastructure/config"
	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/erp/portal/internal/infrastructure/migration"
	"github.com/erp/portal/migrations"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// command is one subcommand. Commands without a run function work on the
// source tree and never open the database.
type command struct {
	usage   string
	minArgs int
	local   func(dir string, args []string, log *zap.Logger) error
	run     func(m *migration.Migrator, args []string, log *zap.Logger) error
}

var commands = map[string]command{
	"up":   {usage: "up", run: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() }},
	"down": {usage: "down", run: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() }},
	"step": {usage: "step <n>", minArgs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {usage: "goto <version>", minArgs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"force": {usage: "force <version>", minArgs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"version": {usage: "version", run: func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	}},
	"create": {usage: "create <name> [description]", minArgs: 1, local: func(dir string, args []string, log *zap.Logger) error {
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		log.Info("Created migration pair",
			zap.String("version", mf.Version),
			zap.String("up", mf.UpPath),
			zap.String("down", mf.DownPath))
		return nil
	}},
	"list": {usage: "list", local: func(dir string, _ []string, log *zap.Logger) error {
		names, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		log.Info("Migrations in source tree", zap.String("dir", dir), zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return nil
	}},
}

func main() {
	path := flag.String("path", "", "migrations directory; the embedded set is used when empty")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if len(args) < cmd.minArgs {
		log.Fatal("Missing argument", zap.String("usage", "migrate "+cmd.usage))
	}

	if cmd.local != nil {
		dir := *path
		if dir == "" {
			dir = defaultMigrationsPath
		}
		if err := cmd.local(dir, args, log); err != nil {
			log.Fatal("Command failed", zap.String("command", name), zap.Error(err))
		}
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverSQLite {
		log.Fatal("SQL migrations target postgres; the server creates sqlite tables itself")
	}

	m, release, err := openMigrator(cfg.Database.DSN(), *path, log)
	if err != nil {
		log.Fatal("Failed to open migrator", zap.Error(err))
	}
	err = cmd.run(m, args, log)
	release()
	if err != nil {
		log.Fatal("Command failed", zap.String("command", name), zap.Error(err))
	}
}

// openMigrator reads dir when given and the embedded migrations otherwise.
// release closes the migrator, which also closes its connection.
func openMigrator(dsn, dir string, log *zap.Logger) (*migration.Migrator, func(), error) {
	if dir != "" {
		m, err := migration.NewFromURL(dsn, dir, log)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _ = m.Close() }, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-path dir] [-log-level level] <command>")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range []string{"up", "down", "step", "goto", "version", "force", "create", "list"} {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\ncreate and list work on the source tree; the others need DB_* settings.")
}
