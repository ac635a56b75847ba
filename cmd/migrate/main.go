// Command migrate applies the embedded schema migrations to the agentflow
// database.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/agentflow/pkg/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "AGENTFLOW_DB_DSN"

var dbEnv = &database.Env{
	Host:            "AGENTFLOW_DB_HOST",
	Port:            "AGENTFLOW_DB_PORT",
	Name:            "AGENTFLOW_DB_NAME",
	User:            "AGENTFLOW_DB_USER",
	Password:        "AGENTFLOW_DB_PASSWORD",
	SSLMode:         "AGENTFLOW_DB_SSL_MODE",
	ApplicationName: "AGENTFLOW_DB_APPLICATION_NAME",
}

type action int

const (
	actionUsage action = iota
	actionUp
	actionDown
	actionSteps
	actionVersion
	actionForce
)

type options struct {
	dsn    string
	action action
	n      int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts, usage, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.action == actionUsage {
		fmt.Fprintln(out, "usage: migrate [-dsn url] -up | -down | -steps N | -version | -force N")
		usage(out)
		return nil
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, opts.dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return apply(m, opts, out)
}

func apply(m *migrate.Migrate, opts options, out io.Writer) error {
	ignoreNoChange := func(err error) error {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}

	switch opts.action {
	case actionVersion:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "version: none")
			return nil
		}
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)
	case actionForce:
		if err := m.Force(opts.n); err != nil {
			return fmt.Errorf("force version %d: %w", opts.n, err)
		}
		fmt.Fprintf(out, "forced to version %d\n", opts.n)
	case actionUp:
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("apply up migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
	case actionDown:
		if err := ignoreNoChange(m.Down()); err != nil {
			return fmt.Errorf("apply down migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations reverted")
	case actionSteps:
		if err := ignoreNoChange(m.Steps(opts.n)); err != nil {
			return fmt.Errorf("apply %d steps: %w", opts.n, err)
		}
		fmt.Fprintf(out, "applied %d migration steps\n", opts.n)
	}
	return nil
}

// parseArgs selects exactly one action. The DSN comes from -dsn, then
// AGENTFLOW_DB_DSN, then the AGENTFLOW_DB_* connection variables.
func parseArgs(args []string) (options, func(io.Writer), error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		dsn     = fs.String("dsn", "", "Database connection URL")
		up      = fs.Bool("up", false, "Run all up migrations")
		down    = fs.Bool("down", false, "Run all down migrations")
		steps   = fs.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = fs.Bool("version", false, "Print current migration version")
		force   = fs.Int("force", -1, "Force set version (use with caution)")
	)
	usage := func(w io.Writer) {
		fs.SetOutput(w)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, usage, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var opts options
	selected := 0
	pick := func(ok bool, a action, n int) {
		if ok {
			opts.action, opts.n = a, n
			selected++
		}
	}
	pick(*up, actionUp, 0)
	pick(*down, actionDown, 0)
	pick(set["steps"] && *steps != 0, actionSteps, *steps)
	pick(*version, actionVersion, 0)
	pick(set["force"], actionForce, *force)

	if selected > 1 {
		return options{}, usage, fmt.Errorf("choose one of -up, -down, -steps, -version, -force")
	}
	if selected == 0 {
		return options{action: actionUsage}, usage, nil
	}

	opts.dsn = *dsn
	if opts.dsn == "" {
		opts.dsn = os.Getenv(envDSN)
	}
	if opts.dsn == "" {
		cfg := database.Config{}
		if err := cfg.Finalize(dbEnv); err != nil {
			return options{}, usage, fmt.Errorf("database config: %w", err)
		}
		opts.dsn = cfg.URL()
	}
	return opts, usage, nil
}
