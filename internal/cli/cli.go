// Package cli implements the wcm command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wcm/pkg/buildinfo"
	"github.com/matzehuels/wcm/pkg/config"
	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "wcm"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// dir is where the configuration search starts; file overrides it.
	dir  string
	file string

	verbose bool

	// out receives command output.
	out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		dir:    ".",
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command output.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "wcm versions, vendors and serves web component dependencies",
		Long:          `wcm indexes HTML import graphs, installs versioned component dependencies and runs an intercepting proxy that serves them from a versioned, cached location.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.out)
	root.PersistentFlags().StringVarP(&c.dir, "dir", "C", ".", "project directory to search for configuration")
	root.PersistentFlags().StringVar(&c.file, "config", "", "configuration file (overrides the search)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.proxyCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.manifestCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// ReportError prints err for the user, with its code when it has one.
func (c *CLI) ReportError(err error) {
	if code := wcmerrors.GetCode(err); code != "" {
		c.Logger.Error(wcmerrors.UserMessage(err), "code", code)
		return
	}
	c.Logger.Error(err.Error())
}

// =============================================================================
// Shared Helpers
// =============================================================================

// loadConfig loads and validates the project configuration. Unknown keys
// are logged as warnings.
func (c *CLI) loadConfig() (*config.Config, error) {
	var (
		cfg      *config.Config
		warnings []string
		err      error
	)
	if c.file != "" {
		cfg, warnings, err = config.LoadFile(c.file)
	} else {
		cfg, warnings, err = config.Load(c.dir)
	}
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		c.Logger.Warn(w, "source", cfg.File)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded configuration", "from", cfg.String(), "dir", cfg.Dir)
	return cfg, nil
}

// openStore opens the configured object store. The caller closes it.
func (c *CLI) openStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	sc, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}
	b, err := store.Open(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backendName(sc), err)
	}
	c.Logger.Debug("opened store", "backend", backendName(sc))
	return b, nil
}

func backendName(sc store.Config) string {
	if sc.Backend == "" {
		return store.BackendFile
	}
	return sc.Backend
}
