package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/wcm/pkg/store"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the proxy content cache",
	}

	cmd.AddCommand(c.cacheFlushCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheFlushCommand creates the "cache flush" subcommand. The stored
// manifest is kept.
func (c *CLI) cacheFlushCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "flush",
		Aliases: []string{"clear"},
		Short:   "Drop all cached responses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			b, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := store.NewContentCache(b).Flush(cmd.Context()); err != nil {
				return err
			}
			c.printSuccess("Cache flushed")
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file store directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			sc, err := cfg.StoreConfig()
			if err != nil {
				return err
			}
			if b := backendName(sc); b != store.BackendFile {
				c.printWarning("store backend is %s, not file", b)
			}
			c.printPlain("%s", sc.Dir)
			return nil
		},
	}
}
