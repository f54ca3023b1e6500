package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/loomcms/loom/internal/config"
	"github.com/loomcms/loom/internal/graph"
	"github.com/loomcms/loom/internal/resolver"
	"github.com/loomcms/loom/internal/slogutil"
	"github.com/loomcms/loom/internal/theme"
)

var (
	cfgPath  string
	logLevel string

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom: content graph and theme resolution engine",
	Long: `Loom maintains a path-addressed content graph (entities connected by
typed, weighted associations) and resolves theme files through explicit
inheritance chains.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		log = slogutil.New(os.Stderr, slogutil.LevelFromString(level), cfg.Logging.Format)
		slog.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore builds the configured graph store.
func openStore() (graph.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return graph.NewMemoryStore(), nil
	default:
		return graph.OpenSQLiteStore(cfg.Store.Path)
	}
}

// openManager builds an association manager with the audit observer.
func openManager() (*graph.Manager, func(), error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	m := graph.NewManager(store, log)
	m.SetObserver(&graph.LogObserver{Log: log})
	return m, func() { _ = store.Close() }, nil
}

// siteFS returns the site root filesystem holding themes/.
func siteFS() billy.Filesystem {
	return osfs.New(cfg.SiteRoot)
}

// openThemes loads the registry and wires the chain builder and resolver.
func openThemes() (*theme.Registry, *theme.ChainBuilder, *resolver.Resolver, error) {
	fs := siteFS()
	registry := theme.NewRegistry(fs, log)
	chains := theme.NewChainBuilder(registry, log)
	res := resolver.New(fs, registry, chains, cfg.Resolver.CacheTTL, log)
	if err := registry.Load(); err != nil {
		return nil, nil, nil, err
	}
	return registry, chains, res, nil
}
