package commands

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/store"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct {
	verbose bool
}

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "fluxtodo version [-v]" }
func (c *VersionCmd) NeedsAuth() bool   { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "also print build and config details")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "fluxtodo %s\n", Version)
	if !c.verbose {
		return exitcode.Success
	}

	fmt.Fprintf(out, "go:       %s\n", runtime.Version())
	if rev := vcsRevision(); rev != "" {
		fmt.Fprintf(out, "revision: %s\n", rev)
	}
	fmt.Fprintf(out, "config:   %s\n", cfg.Dir)
	fmt.Fprintf(out, "backend:  %s\n", cfg.Backend)
	return exitcode.Success
}

// vcsRevision returns the short commit the binary was built from, if the
// build recorded one.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value[:min(len(s.Value), 12)]
		}
	}
	return ""
}
