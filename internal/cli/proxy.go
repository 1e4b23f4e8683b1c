package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wcm/pkg/config"
	"github.com/matzehuels/wcm/pkg/observability"
	"github.com/matzehuels/wcm/pkg/proxy"
	"github.com/matzehuels/wcm/pkg/resolve"
)

const shutdownTimeout = 5 * time.Second

type proxyOpts struct {
	host        string
	port        int
	upstream    string
	remote      string
	manifest    string
	skipWaiting bool
}

// proxyCommand creates the proxy command.
func (c *CLI) proxyCommand() *cobra.Command {
	var opts proxyOpts

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the intercepting dependency proxy",
		Long: `Run an HTTP proxy in front of the application server.

Requests for paths under browser.interceptSrc are rewritten to their versioned
location under browser.interceptDest using the stored manifest, fetched from
the remote once and served from the cache afterwards. Everything else is
forwarded to the upstream unchanged.

Control endpoints live under /wcm: GET/POST /wcm/manifest, POST /wcm/flush,
POST /wcm/rpc and GET /wcm/state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts.applyDefaults(cmd, cfg)
			return c.serve(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (default proxy.host)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (default proxy.port)")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "", "application origin (default proxy.upstream)")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "origin serving versioned assets (default proxy.remote or the upstream)")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "manifest file to load on start (default browser.manifestUrl, if present)")
	cmd.Flags().BoolVar(&opts.skipWaiting, "skip-waiting", false, "activate without waiting (default proxy.skipWaiting)")

	return cmd
}

func (o *proxyOpts) applyDefaults(cmd *cobra.Command, cfg *config.Config) {
	if o.host != "" {
		cfg.Proxy.Host = o.host
	}
	if o.port != 0 {
		cfg.Proxy.Port = o.port
	}
	if o.upstream == "" {
		o.upstream = cfg.Proxy.Upstream
	}
	if o.remote == "" {
		o.remote = cfg.Proxy.Remote
	}
	if !cmd.Flags().Changed("skip-waiting") {
		o.skipWaiting = cfg.Proxy.SkipWaiting
	}
}

func (c *CLI) serve(ctx context.Context, cfg *config.Config, opts proxyOpts) error {
	upstream, err := parseOrigin("upstream", opts.upstream)
	if err != nil {
		return err
	}
	var remote *url.URL
	if opts.remote != "" {
		if remote, err = parseOrigin("remote", opts.remote); err != nil {
			return err
		}
	}

	backend, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	engine, err := proxy.NewEngine(proxy.Config{
		Upstream:      upstream,
		Remote:        remote,
		InterceptSrc:  cfg.Browser.InterceptSrc,
		InterceptDest: cfg.Browser.InterceptDest,
		Backend:       backend,
		Hooks:         observability.NewLogProxyHooks(c.Logger),
		Logger:        c.Logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	srv := &http.Server{
		Handler:           proxy.NewRouter(engine),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.Logger.Info("shutting down proxy")
		return srv.Shutdown(sctx)
	})

	if err := c.seedManifest(gctx, engine, cfg, opts.manifest); err != nil {
		c.Logger.Error("load manifest", "err", err)
	}
	if err := engine.Start(opts.skipWaiting); err != nil {
		stop()
		_ = g.Wait()
		return err
	}

	c.printSuccess("Proxy listening on http://%s", ln.Addr())
	c.printDetail("upstream %s", upstream)
	if remote != nil {
		c.printDetail("remote   %s", remote)
	}
	c.printDetail("intercept %s %s %s", cfg.Browser.InterceptSrc, iconArrow, cfg.Browser.InterceptDest)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// seedManifest stores the manifest file through the control loop. An
// absent default file is not an error.
func (c *CLI) seedManifest(ctx context.Context, engine *proxy.Engine, cfg *config.Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = cfg.ManifestPath()
	}
	if _, err := os.Stat(path); err != nil && !explicit {
		c.Logger.Debug("no manifest file", "path", path)
		return nil
	}
	m, err := resolve.LoadManifest(path)
	if err != nil {
		return err
	}
	if reply := engine.Call(ctx, proxy.SetManifest{Manifest: m}); reply.Err != nil {
		return reply.Err
	}
	c.Logger.Info("manifest loaded", "path", path, "dependencies", len(m))
	return nil
}

func parseOrigin(name, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", name, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s %q must be an absolute URL", name, raw)
	}
	return u, nil
}
