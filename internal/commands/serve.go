package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/api"
	"fluxtodo/internal/backend"
	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/logging"
	"fluxtodo/internal/store"
)

const shutdownTimeout = 5 * time.Second

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command: the JSON HTTP API over the local
// SQLite database, one tenant per bearer token.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the HTTP API" }
func (c *ServeCmd) Usage() string     { return "fluxtodo serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsAuth() bool   { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	logger := logging.FromContext(ctx)

	db, err := backend.OpenServerDB(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: open database: %v\n", err)
		return exitcode.ServerError
	}
	defer db.Close()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: listen %s: %v\n", addr, err)
		return exitcode.ServerError
	}
	if len(cfg.Server.Tokens) == 0 {
		logger.Warn("no server.tokens configured; bearer tokens are taken as user ids")
	}
	srv := &http.Server{
		Handler:           api.NewServer(db, cfg.Server.Tokens, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "listening on http://%s\n", ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "error: serve: %v\n", err)
			return exitcode.ServerError
		}
		return exitcode.Success
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(errOut, "error: shutdown: %v\n", err)
		return exitcode.ServerError
	}
	logger.Info("server stopped", "addr", ln.Addr().String())
	return exitcode.Success
}
