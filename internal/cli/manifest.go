package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/wcm/pkg/resolve"
	"github.com/matzehuels/wcm/pkg/store"
)

// manifestCommand creates the stored manifest command.
func (c *CLI) manifestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Read or replace the manifest held by the proxy store",
	}

	cmd.AddCommand(c.manifestGetCommand())
	cmd.AddCommand(c.manifestSetCommand())
	cmd.AddCommand(c.manifestClearCommand())

	return cmd
}

// manifestGetCommand creates the "manifest get" subcommand.
func (c *CLI) manifestGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the stored manifest as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, done, err := c.manifestStore(cmd)
			if err != nil {
				return err
			}
			defer done()

			m, ok, err := ms.Load(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				c.printPlain("null")
				return nil
			}
			data, err := m.Marshal()
			if err != nil {
				return err
			}
			_, err = c.out.Write(data)
			return err
		},
	}
}

// manifestSetCommand creates the "manifest set" subcommand.
func (c *CLI) manifestSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set [file]",
		Short: "Store a manifest file (default browser.manifestUrl)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			path := cfg.ManifestPath()
			if len(args) == 1 {
				path = args[0]
			}
			m, err := resolve.LoadManifest(path)
			if err != nil {
				return err
			}

			b, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := store.NewManifestStore(b).Save(cmd.Context(), m); err != nil {
				return err
			}
			c.printSuccess("Stored manifest with %d dependencies", len(m))
			c.printFile(path)
			return nil
		},
	}
}

// manifestClearCommand creates the "manifest clear" subcommand.
func (c *CLI) manifestClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, done, err := c.manifestStore(cmd)
			if err != nil {
				return err
			}
			defer done()
			if err := ms.Clear(cmd.Context()); err != nil {
				return err
			}
			c.printSuccess("Manifest cleared")
			return nil
		},
	}
}

func (c *CLI) manifestStore(cmd *cobra.Command) (*store.ManifestStore, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b, err := c.openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewManifestStore(b), func() { _ = b.Close() }, nil
}
