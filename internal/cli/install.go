package cli

import (
	"context"
	"iter"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wcm/pkg/index"
	"github.com/matzehuels/wcm/pkg/install"
	"github.com/matzehuels/wcm/pkg/observability"
	"github.com/matzehuels/wcm/pkg/resolve"
)

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var (
		remote   string
		manifest string
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install all versioned dependencies of this project",
		Long: `Download every external dependency referenced from the configured component
groups (bundle.components) into browser.interceptDest, following the imports
of downloaded documents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if remote == "" {
				remote = cfg.Install.Remote
			}
			base, err := url.Parse(remote)
			if err != nil {
				return err
			}
			if manifest == "" {
				manifest = cfg.ManifestPath()
			}
			m, err := resolve.LoadManifest(manifest)
			if err != nil {
				return err
			}
			dlOpts, err := cfg.DownloaderOptions()
			if err != nil {
				return err
			}

			walker := cfg.Walker()
			orch := install.New(install.Config{
				Indexer:    index.New(walker),
				Walker:     walker,
				Downloader: install.NewHTTPDownloader(&dlOpts),
				Hooks:      observability.NewLogInstallHooks(c.Logger),
				Logger:     c.Logger,
			})
			opts := install.Options{
				Groups:        cfg.Groups(),
				SrcRoot:       cfg.SrcRoot(),
				ProjectRoot:   cfg.Dir,
				Remote:        base,
				Manifest:      m,
				InterceptSrc:  cfg.Browser.InterceptSrc,
				InterceptDest: cfg.Browser.InterceptDest,
			}
			if len(opts.Groups) == 0 {
				c.printWarning("No component groups configured (bundle.components)")
				return nil
			}

			prog := newProgress(c.Logger)
			res, err := c.runStream(cmd.Context(), "Installing dependencies", plain,
				func(ctx context.Context) iter.Seq[install.Event] { return orch.Run(ctx, opts) })
			if err != nil {
				return err
			}
			prog.done("Install finished")
			c.printCounts(res.Progress.Completed, "installed", len(res.Errors), "errors")
			return res.Err()
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "base URL of versioned assets (default install.remote)")
	cmd.Flags().StringVar(&manifest, "manifest", "", "manifest file (default browser.manifestUrl)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print progress lines instead of the interactive display")

	return cmd
}
