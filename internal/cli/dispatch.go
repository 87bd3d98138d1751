// Package cli parses the command line and runs commands against a loaded
// store session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/backend"
	"fluxtodo/internal/commands"
	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/logging"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
)

// BackendFactory opens the backend a command session runs against.
// Tests inject a FakeService through it.
type BackendFactory func(ctx context.Context, cfg *config.Config) (*backend.Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend
// factory. A nil factory opens the backend named in config.toml.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	if factory == nil {
		factory = backend.Open
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	name := args[0]
	if strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}
	return d.dispatch(ctx, name, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args []string, out, errOut io.Writer) int {
	cmd, found := d.registry.Find(name)
	if !found {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		if guess, ok := d.registry.Suggest(name); ok {
			fmt.Fprintf(errOut, "did you mean: %s?\n", guess)
		}
		return exitcode.UserError
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var (
		configDir string
		quiet     bool
		debug     bool
	)
	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVarP(&quiet, "quiet", "q", false, "")
	fs.BoolVar(&debug, "debug", false, "")
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(out, "%s\n\n  %s\n", cmd.Synopsis(), cmd.Usage())
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger, closeLog, err := logging.New(cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer closeLog()
	logger = logger.With("cmd", cmd.Name())
	ctx = logging.WithLogger(ctx, logger)

	if !cmd.NeedsAuth() {
		return cmd.Run(ctx, cfg, nil, fs.Args(), out, errOut)
	}

	b, err := d.factory(ctx, cfg)
	if err != nil {
		return backendError(cfg, err, errOut)
	}
	defer b.Close()

	sess := store.NewSession(b.Service,
		store.WithIdentity(b.Identity),
		store.WithLogger(logger),
		store.WithPageSize(cfg.Store.PageSize),
		store.WithBulkLimit(cfg.Store.BulkConcurrency),
	)
	defer sess.Close()

	if err := commands.LoadSession(ctx, sess); err != nil {
		logger.Debug("session load failed", "err", err)
		return loadError(err, errOut)
	}
	return cmd.Run(ctx, cfg, sess, fs.Args(), out, errOut)
}

func backendError(cfg *config.Config, err error, errOut io.Writer) int {
	switch {
	case errors.Is(err, backend.ErrNoOAuthClient):
		fmt.Fprintf(errOut, "error: %s not found in %s\n", config.OAuthClientFile, cfg.Dir)
		return exitcode.AuthError
	case errors.Is(err, backend.ErrNotLoggedIn):
		fmt.Fprintln(errOut, "error: not logged in (run: fluxtodo login)")
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: backend error: %s\n", err)
	return exitcode.BackendError
}

// loadError reports a failed initial load. Session.Load joins the list and
// task fetch errors; the first one is printed.
func loadError(err error, errOut io.Writer) int {
	if errors.Is(err, store.ErrNotAuthenticated) {
		fmt.Fprintln(errOut, "error: not signed in (set user in config.toml or run: fluxtodo login)")
		return exitcode.AuthError
	}
	msg := err.Error()
	var opErr *store.OpError
	if errors.As(err, &opErr) {
		msg = opErr.Message
	}
	if service.IsUnauthorized(err) {
		fmt.Fprintf(errOut, "error: auth error: %s\n", msg)
		return exitcode.AuthError
	}
	msg, _, _ = strings.Cut(msg, "\n")
	fmt.Fprintf(errOut, "error: backend error: %s\n", msg)
	return exitcode.BackendError
}
