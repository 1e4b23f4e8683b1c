package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/index"
	"github.com/matzehuels/wcm/pkg/render/nodelink"
)

// depsCommand creates the dependency inspection command.
func (c *CLI) depsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect the reference graph of the component groups",
	}

	cmd.AddCommand(c.depsListCommand())
	cmd.AddCommand(c.depsGraphCommand())

	return cmd
}

// depsListCommand creates the "deps list" subcommand.
func (c *CLI) depsListCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files referenced from every group entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m, err := index.ParseMode(mode)
			if err != nil {
				return err
			}

			src := cfg.SrcRoot()
			var failed int
			for n, err := range index.New(cfg.Walker()).IndexGroups(cfg.Groups(), src, m) {
				if err != nil {
					failed++
					c.Logger.Warn("index", "err", wcmerrors.UserMessage(err))
					continue
				}
				c.printPlain("%s\t%s", n.Kind, relTo(src, n.Path))
			}
			if failed > 0 {
				return fmt.Errorf("%d file(s) could not be indexed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "all", "which references to list: all, internal or external")

	return cmd
}

// depsGraphCommand creates the "deps graph" subcommand.
func (c *CLI) depsGraphCommand() *cobra.Command {
	var (
		group    string
		mode     string
		format   string
		output   string
		detailed bool
		lr       bool
	)

	cmd := &cobra.Command{
		Use:   "graph <entry>",
		Short: "Export the reference graph of one entry document",
		Long: `Export the reference graph of an entry document (relative to
bundle.bundleSrcDir) as Graphviz DOT, SVG or PNG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m, err := index.ParseMode(mode)
			if err != nil {
				return err
			}
			if group == "" {
				group = filepath.ToSlash(filepath.Dir(args[0]))
			}

			g, err := index.New(cfg.Walker()).Graph(index.Options{
				SrcRoot:   cfg.SrcRoot(),
				GroupRoot: group,
				Entry:     args[0],
				Mode:      m,
			})
			if err != nil {
				return err
			}

			dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed, LeftToRight: lr})
			out, err := nodelink.Render(cmd.Context(), dot, format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := c.out.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}
			c.printSuccess("Wrote %s graph", format)
			c.printFile(output)
			c.printCounts(len(g.Nodes), "nodes", len(g.Edges), "edges")
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "group root (default the entry's directory)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "all", "which references to include: all, internal or external")
	cmd.Flags().StringVarP(&format, "format", "f", nodelink.FormatDOT, "output format: dot, svg or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include reference kind and partition in labels")
	cmd.Flags().BoolVar(&lr, "lr", false, "lay the graph out left to right")

	return cmd
}

func relTo(base, path string) string {
	if r, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}
