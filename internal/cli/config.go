package cli

import (
	"github.com/spf13/cobra"
)

// configCommand creates the configuration inspection command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
	}

	cmd.AddCommand(c.configListCommand())
	cmd.AddCommand(c.configGetCommand())

	return cmd
}

// configListCommand creates the "config list" subcommand.
func (c *CLI) configListCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every configuration value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			list := cfg.List()
			if plain || !c.isTerminal() {
				for _, s := range list {
					c.printPlain("%s: %s", s.Key, s.Value)
				}
				return nil
			}

			rows := make([][]string, len(list))
			for i, s := range list {
				rows[i] = []string{s.Key, s.Value}
			}
			c.printInfo("Configuration from %s", StyleHighlight.Render(cfg.String()))
			c.printTable([]string{"Key", "Value"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print key: value lines")

	return cmd
}

// configGetCommand creates the "config get" subcommand.
func (c *CLI) configGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <namespace.key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			c.printPlain("%s", v)
			return nil
		},
	}
}
