package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nightfallstudio/bugboard/internal/config"
	"github.com/nightfallstudio/bugboard/internal/kvstore"
	"github.com/nightfallstudio/bugboard/internal/output"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "bugboard",
	Short: "Bugboard - issue-tracker gateway and Kanban board tools",
	Long: `bugboard fronts an upstream issue tracker for bug reporting clients.
It runs the API gateway that rate-limits, attributes, and caches client
traffic, and provides board tooling: issue listings, a Kanban view, and
column moves expressed as status-label mutations.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/bugboard/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "bugboard")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BUGBOARD")
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}

// loadConfig builds the typed configuration from the initialized viper.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// openStore opens the configured key-value store: SQLite when store.path
// is set, in-memory otherwise.
func openStore(cfg *config.Config) (kvstore.Store, error) {
	if cfg.Store.Path == "" {
		return kvstore.NewMemory(), nil
	}

	s, err := kvstore.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// newUpstream creates the authenticated upstream client.
func newUpstream(cfg *config.Config) (*upstream.Client, error) {
	client, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("upstream client: %w", err)
	}
	return client, nil
}
