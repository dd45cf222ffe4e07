// Package main is the entry point for the sapphire address book tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/dshills/sapphire/internal/config"
	"github.com/dshills/sapphire/internal/logging"
	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/sample/contacts"
	"github.com/dshills/sapphire/internal/workspace"
	"github.com/dshills/sapphire/internal/xmlbind"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	file     string
	config   string
	logLevel string
	console  bool
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var opts options
	fs := flag.NewFlagSet("sapphire", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "contacts.xml", "Address book document")
	fs.StringVar(&opts.file, "f", "contacts.xml", "Address book document (shorthand)")
	fs.StringVar(&opts.config, "config", "", "Service configuration file (TOML or YAML)")
	fs.StringVar(&opts.config, "c", "", "Service configuration file (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.console, "log-console", false, "Human-readable log output")
	fs.BoolVar(&opts.version, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "sapphire - XML address book editor\n\n")
		fmt.Fprintf(stderr, "Usage: sapphire [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-32s %s\n", c.usage, c.help)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return opts, nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.logLevel)
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "sapphire %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}
	if len(rest) == 0 {
		fmt.Fprintf(stderr, "Error: missing command\n")
		return 2
	}
	cmd, ok := lookup(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		return 2
	}
	if n := len(rest) - 1; n < cmd.min || n > cmd.max {
		fmt.Fprintf(stderr, "Usage: sapphire %s\n", cmd.usage)
		return 2
	}

	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(opts.logLevel),
		Output:  stderr,
		Prefix:  "sapphire",
		Console: opts.console,
	})

	env, err := setup(opts, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer env.ws.Close()

	env.out = stdout
	env.ctx = ctx
	if err := cmd.run(env, rest[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// env is what commands operate on.
type env struct {
	ctx   context.Context
	out   io.Writer
	log   *logging.Logger
	model *contacts.Model
	ws    *workspace.Workspace
	doc   *workspace.Document
}

func setup(opts options, log *logging.Logger) (*env, error) {
	reg := model.DefaultRegistry()
	schemas := xmlbind.NewSchemaRegistry()
	if err := schemas.Register(contacts.Namespace, "1.0.0", "contacts.xsd"); err != nil {
		return nil, err
	}

	if opts.config != "" {
		abs, err := filepath.Abs(opts.config)
		if err != nil {
			return nil, err
		}
		cfs := osfs.New(filepath.Dir(abs))
		f, err := config.Load(cfs, filepath.Base(abs))
		if err != nil {
			return nil, err
		}
		if err := config.Build(reg, f, config.WithSchemas(schemas)); err != nil {
			return nil, err
		}
		log.Debug("configuration loaded", "path", abs, "services", len(f.Services))
	}

	abs, err := filepath.Abs(opts.file)
	if err != nil {
		return nil, err
	}
	m := contacts.New(model.WithRegistry(reg), model.WithLogger(log))
	ws := workspace.New(osfs.New(filepath.Dir(abs)),
		workspace.WithLogger(log),
		workspace.WithRootOptions(xmlbind.WithSchemas(schemas)))
	doc, err := ws.Open(filepath.Base(abs), m.AddressBook)
	if err != nil {
		return nil, err
	}
	return &env{log: log, model: m, ws: ws, doc: doc}, nil
}
