// Package cli implements the flatmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/anatomaps/flatmap/pkg/buildinfo"
	"github.com/anatomaps/flatmap/pkg/cache"
	"github.com/anatomaps/flatmap/pkg/flatmap"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flatmap"

	// defaultServeAddr is the default listen address for the control API.
	defaultServeAddr = "localhost:8449"
)

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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "flatmap",
		Short:        "Flatmap drives anatomical connectivity maps from the terminal",
		Long:         `Flatmap loads anatomical map bundles and drives their visibility state: path types, systems, taxon restrictions, centrelines, and SCKAN filtering. Maps can be inspected, explored interactively, exported as connectivity graphs, or served over an HTTP control API.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Map Loading
// =============================================================================

// viewerFlags holds the flags shared by every command that loads a map.
type viewerFlags struct {
	source      string   // bundle directory root or map server base URL
	optionsFile string   // TOML options file
	sckan       string   // SCKAN visibility override
	disabled    []string // path types to start disabled
	refresh     bool     // bypass cached bundle documents
}

// register adds the shared map-loading flags to cmd.
func (f *viewerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", ".", "bundle directory or map server URL")
	cmd.Flags().StringVar(&f.optionsFile, "options", "", "viewer options file (TOML)")
	cmd.Flags().StringVar(&f.sckan, "sckan", "", "SCKAN visibility: all, valid, invalid, none")
	cmd.Flags().StringSliceVar(&f.disabled, "disable-type", nil, "path types to start disabled")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "refetch bundle documents, ignoring the cache")
}

// options assembles viewer options from the options file and flag overrides.
// Flags win over file values.
func (f *viewerFlags) options(logger *log.Logger) (flatmap.Options, error) {
	opts := flatmap.Options{}
	if f.optionsFile != "" {
		var err error
		opts, err = flatmap.LoadOptions(f.optionsFile)
		if err != nil {
			return flatmap.Options{}, err
		}
	}
	if f.sckan != "" {
		opts.SCKAN = f.sckan
	}
	opts.DisabledPathTypes = append(opts.DisabledPathTypes, f.disabled...)
	if f.refresh {
		opts.Refresh = true
	}
	if opts.CacheDir == "" {
		if dir, err := cacheDir(); err == nil {
			opts.CacheDir = filepath.Join(dir, "bundles")
		}
	}
	opts.Logger = logger
	return opts, nil
}

// loadMap resolves the bundle source and blocks until the map is ready,
// showing a spinner while documents load.
func (c *CLI) loadMap(ctx context.Context, mapID string, flags *viewerFlags) (*flatmap.Map, error) {
	opts, err := flags.options(c.Logger)
	if err != nil {
		return nil, err
	}
	src, err := openSource(flags.source, opts)
	if err != nil {
		return nil, err
	}
	m, err := flatmap.NewFromSource(src, mapID, opts)
	if err != nil {
		return nil, err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading map %s...", mapID))
	spinner.Start()
	err = m.EnsureReady(ctx)
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	return m, nil
}

// openSource picks the bundle source for a --source value: URLs fetch from a
// map server with a local document cache, anything else is a bundle
// directory on disk.
func openSource(source string, opts flatmap.Options) (flatmap.Source, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return flatmap.NewHTTPSource(source, opts)
	}
	return flatmap.NewDirSource(source), nil
}

// =============================================================================
// Export Cache
// =============================================================================

// newExportCache opens the on-disk export cache shared by graph and serve.
// Any failure to open it degrades to uncached operation.
func newExportCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(filepath.Join(dir, "exports"))
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flatmap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
