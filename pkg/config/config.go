package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/index"
	"github.com/matzehuels/wcm/pkg/install"
	"github.com/matzehuels/wcm/pkg/resolve"
	"github.com/matzehuels/wcm/pkg/store"
	"github.com/matzehuels/wcm/pkg/walk"
)

const appName = "wcm"

// Browser configures interception of dependency requests.
type Browser struct {
	ManifestURL   string `toml:"manifestUrl" json:"manifestUrl"`
	InterceptSrc  string `toml:"interceptSrc" json:"interceptSrc"`
	InterceptDest string `toml:"interceptDest" json:"interceptDest"`
}

// Bundle configures the project's component groups.
type Bundle struct {
	SrcDir string `toml:"bundleSrcDir" json:"bundleSrcDir"`
	OutDir string `toml:"bundleOutDir" json:"bundleOutDir"`

	// WebRoot is the directory that root-relative references such as
	// "/bower_components/a/a.html" resolve against. Empty means the project
	// directory.
	WebRoot string `toml:"webRoot" json:"webRoot"`

	// Components maps a group root to its entry documents, relative to
	// SrcDir.
	Components map[string][]string `toml:"components" json:"components"`
}

// Migration configures the node_modules migration.
type Migration struct {
	DepsRootDir               string `toml:"depsRootDir" json:"depsRootDir"`
	DepsOutDir                string `toml:"depsOutDir" json:"depsOutDir"`
	PackageFile               string `toml:"packageFile" json:"packageFile"`
	PackageLookupName         string `toml:"packageLookupName" json:"packageLookupName"`
	PackageLookupDependencies string `toml:"packageLookupDependencies" json:"packageLookupDependencies"`
	PackageLookupVersion      string `toml:"packageLookupVersion" json:"packageLookupVersion"`
}

// Proxy configures the intercepting proxy server.
type Proxy struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`

	// Upstream is the application origin that non-intercepted requests are
	// forwarded to.
	Upstream string `toml:"upstream" json:"upstream"`

	// Remote serves versioned dependencies. Empty means Upstream.
	Remote string `toml:"remote" json:"remote"`

	SkipWaiting bool `toml:"skipWaiting" json:"skipWaiting"`
}

// Install configures the dependency installer.
type Install struct {
	Remote      string `toml:"remote" json:"remote"`
	Host        string `toml:"host" json:"host"`
	ContentType string `toml:"contentType" json:"contentType"`
	ListType    bool   `toml:"listType" json:"listType"`
	Attempts    int    `toml:"attempts" json:"attempts"`

	// Timeout is a Go duration string, e.g. "30s".
	Timeout string `toml:"timeout" json:"timeout"`
}

// Config is the complete project configuration.
type Config struct {
	Browser   Browser      `toml:"browser" json:"browser"`
	Bundle    Bundle       `toml:"bundle" json:"bundle"`
	Migration Migration    `toml:"migration" json:"migration"`
	Proxy     Proxy        `toml:"proxy" json:"proxy"`
	Store     store.Config `toml:"store" json:"store"`
	Install   Install      `toml:"install" json:"install"`

	// Dir is the directory relative paths are resolved against: the
	// directory of the loaded file, or the search start when none was found.
	Dir string `toml:"-" json:"-"`

	// File is the loaded configuration file, or "" for pure defaults.
	File string `toml:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Browser: Browser{
			ManifestURL:   "manifest.json",
			InterceptSrc:  resolve.DefaultInterceptSrc,
			InterceptDest: resolve.DefaultInterceptDest,
		},
		Bundle: Bundle{
			SrcDir:     "./src",
			OutDir:     "./dist",
			Components: map[string][]string{},
		},
		Migration: Migration{
			DepsRootDir:               "node_modules",
			DepsOutDir:                resolve.DefaultInterceptDest,
			PackageFile:               "package.json",
			PackageLookupName:         "name",
			PackageLookupDependencies: "dependencies",
			PackageLookupVersion:      "version",
		},
		Proxy: Proxy{
			Host:     "localhost",
			Port:     8080,
			Upstream: "http://localhost:8081",
		},
		Store: store.Config{
			Backend: store.BackendFile,
		},
		Install: Install{
			Remote:      install.DefaultRemote,
			Host:        install.DefaultRemoteHost,
			ContentType: install.DefaultContentType,
			ListType:    true,
			Attempts:    3,
			Timeout:     "30s",
		},
	}
}

// Path resolves p against c.Dir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ManifestPath is the absolute location of the manifest file.
func (c *Config) ManifestPath() string { return c.Path(c.Browser.ManifestURL) }

// SrcRoot is the absolute bundle source directory.
func (c *Config) SrcRoot() string { return c.Path(c.Bundle.SrcDir) }

// WebRoot is the absolute directory served at "/".
func (c *Config) WebRoot() string {
	if c.Bundle.WebRoot == "" {
		return c.Dir
	}
	return c.Path(c.Bundle.WebRoot)
}

// Walker returns a document walker rooted at WebRoot.
func (c *Config) Walker() *walk.Walker { return walk.New(nil, c.WebRoot()) }

// Groups returns the configured component groups.
func (c *Config) Groups() index.Groups { return index.Groups(c.Bundle.Components) }

// Addr is the proxy listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Proxy.Host, strconv.Itoa(c.Proxy.Port))
}

// InstallTimeout parses Install.Timeout. Empty means zero.
func (c *Config) InstallTimeout() (time.Duration, error) {
	if c.Install.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Install.Timeout)
	if err != nil {
		return 0, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidConfig, err, "install.timeout")
	}
	return d, nil
}

// StoreConfig returns the store configuration with the file backend
// directory defaulted to the user cache directory.
func (c *Config) StoreConfig() (store.Config, error) {
	cfg := c.Store
	if cfg.Dir != "" {
		cfg.Dir = c.Path(cfg.Dir)
		return cfg, nil
	}
	dir, err := DefaultStoreDir()
	if err != nil {
		return cfg, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidConfig, err, "store.dir")
	}
	cfg.Dir = dir
	return cfg, nil
}

// DefaultStoreDir follows the XDG cache convention: $XDG_CACHE_HOME/wcm or
// ~/.cache/wcm.
func DefaultStoreDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	switch {
	case c.Browser.InterceptSrc == "":
		return wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "browser.interceptSrc must not be empty")
	case c.Browser.InterceptDest == "":
		return wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "browser.interceptDest must not be empty")
	case c.Browser.InterceptSrc == c.Browser.InterceptDest:
		return wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "browser.interceptSrc and browser.interceptDest must differ")
	case c.Proxy.Port < 0 || c.Proxy.Port > 65535:
		return wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "proxy.port %d out of range", c.Proxy.Port)
	}
	for root, entries := range c.Bundle.Components {
		if len(entries) == 0 {
			return wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "bundle.components.%s has no entries", root)
		}
	}
	if _, err := c.InstallTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) String() string {
	if c.File == "" {
		return "defaults"
	}
	return fmt.Sprintf("config %s", c.File)
}

// DownloaderOptions builds installer download options from Install.
func (c *Config) DownloaderOptions() (install.DownloaderOptions, error) {
	timeout, err := c.InstallTimeout()
	if err != nil {
		return install.DownloaderOptions{}, err
	}
	headers := map[string]string{}
	if c.Install.Host != "" {
		headers["Host"] = c.Install.Host
	}
	if c.Install.ContentType != "" {
		headers["Content-Type"] = c.Install.ContentType
	}
	return install.DownloaderOptions{
		Headers:  headers,
		ListType: c.Install.ListType,
		Attempts: c.Install.Attempts,
		Delay:    time.Second,
		Timeout:  timeout,
	}, nil
}
