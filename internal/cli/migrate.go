package cli

import (
	"context"
	"iter"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wcm/pkg/config"
	"github.com/matzehuels/wcm/pkg/install"
	"github.com/matzehuels/wcm/pkg/migrate"
)

// migrateCommand creates the node_modules migration command.
func (c *CLI) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate node_modules dependencies to the versioned layout",
	}

	cmd.AddCommand(c.migrateListCommand())
	cmd.AddCommand(c.migrateRunCommand())

	return cmd
}

// migrateListCommand creates the "migrate list" subcommand.
func (c *CLI) migrateListCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the installed dependencies of this project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m, err := migrate.New(c.Logger).List(migrateOptions(cfg))
			if err != nil {
				return err
			}
			if out != "" {
				if err := m.Save(out); err != nil {
					return err
				}
				c.printSuccess("Wrote %d dependencies", len(m))
				c.printFile(out)
				return nil
			}
			for _, name := range m.Names() {
				c.printPlain("%s: %s", name, m[name])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the dependencies as a manifest JSON file")

	return cmd
}

// migrateRunCommand creates the "migrate run" subcommand.
func (c *CLI) migrateRunCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Copy every dependency to migration.depsOutDir/name/version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m := migrate.New(c.Logger)
			opts := migrateOptions(cfg)

			prog := newProgress(c.Logger)
			res, err := c.runStream(cmd.Context(), "Migrating dependencies", plain,
				func(ctx context.Context) iter.Seq[install.Event] { return m.Run(ctx, opts) })
			if err != nil {
				return err
			}
			prog.done("Migration finished")
			c.printCounts(res.Progress.Completed, "migrated", len(res.Errors), "errors")
			return res.Err()
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print progress lines instead of the interactive display")

	return cmd
}

func migrateOptions(cfg *config.Config) migrate.Options {
	return migrate.Options{
		ProjectDir:      cfg.Dir,
		DepsRootDir:     cfg.Migration.DepsRootDir,
		DepsOutDir:      cfg.Migration.DepsOutDir,
		PackageFile:     cfg.Migration.PackageFile,
		NameKey:         cfg.Migration.PackageLookupName,
		VersionKey:      cfg.Migration.PackageLookupVersion,
		DependenciesKey: cfg.Migration.PackageLookupDependencies,
	}
}
