package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/logging"
	"fluxtodo/internal/store"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct {
	all bool
}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "fluxtodo logout [--all] [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVarP(&c.all, "all", "a", false, "also remove "+config.OAuthClientFile)
}

// Run removes token.json. The OAuth client file is kept unless --all is
// given, so a later login does not need it copied in again.
func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	logger := logging.FromContext(ctx)

	hadToken := cfg.HasToken()
	if hadToken {
		if err := cfg.RemoveToken(); err != nil {
			fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
			return exitcode.AuthError
		}
		logger.Info("removed oauth token", "path", cfg.TokenPath())
	}

	if c.all {
		err := os.Remove(cfg.OAuthClientPath())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(errOut, "error: failed to remove %s: %v\n", config.OAuthClientFile, err)
			return exitcode.AuthError
		}
		if err == nil {
			logger.Info("removed oauth client", "path", cfg.OAuthClientPath())
		}
	}

	if !hadToken {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}
	return ok(cfg, out)
}
