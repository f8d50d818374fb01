package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsre/conflux/internal/aggregate"
	"github.com/mattsre/conflux/internal/analyzer"
	"github.com/mattsre/conflux/internal/applier"
	"github.com/mattsre/conflux/internal/escalate"
	"github.com/mattsre/conflux/internal/githost"
	"github.com/mattsre/conflux/internal/llm"
	"github.com/mattsre/conflux/internal/notify"
	"github.com/mattsre/conflux/internal/orchestrator"
	"github.com/mattsre/conflux/internal/output"
	"github.com/mattsre/conflux/internal/poller"
	"github.com/mattsre/conflux/internal/store"
	"github.com/mattsre/conflux/internal/tracker"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "conflux",
	Short: "Automated merge-conflict resolution for pull requests",
	Long: `conflux watches pull requests for merge conflicts, gathers context,
asks an AI collaborator for an assessment, and either proposes a
validated resolution branch or escalates to a human with a summary.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", buildVersion, buildCommit, buildDate)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/conflux/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("conflux %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
		},
	})
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "conflux")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CONFLUX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "conflux")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "conflux.db"))
	viper.SetDefault("gate.threshold", 85)
	viper.SetDefault("gate.force_threshold", 50)
	viper.SetDefault("validation.poll_interval", "30s")
	viper.SetDefault("validation.timeout", "20m")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("tracker.base_url", "")
	viper.SetDefault("tracker.email", "")
	viper.SetDefault("tracker.token", "")
	viper.SetDefault("tracker.cache_ttl", "5m")
	viper.SetDefault("notify.chat_webhook", "")
	viper.SetDefault("notify.email.api_key", "")
	viper.SetDefault("notify.email.from", "")
	viper.SetDefault("notify.email.to", []string{})
	viper.SetDefault("serve.addr", ":8420")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// buildOrchestrator wires the full pipeline from configuration.
func buildOrchestrator() (*orchestrator.Orchestrator, error) {
	st, err := getStore()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	host := githost.NewGitHubClient()

	var trackerClient tracker.Client
	if base := viper.GetString("tracker.base_url"); base != "" {
		jira := tracker.NewJiraClient(base, viper.GetString("tracker.email"), viper.GetString("tracker.token"))
		cached, err := tracker.NewCachedClient(jira, viper.GetDuration("tracker.cache_ttl"))
		if err != nil {
			return nil, fmt.Errorf("build tracker cache: %w", err)
		}
		trackerClient = cached
	} else {
		trackerClient = tracker.Disabled{}
	}

	ai := llm.NewClient(viper.GetString("anthropic.api_key"), viper.GetString("anthropic.model"))

	var channels []notify.Channel
	if url := viper.GetString("notify.chat_webhook"); url != "" {
		channels = append(channels, notify.NewChatChannel(url))
	}
	if key := viper.GetString("notify.email.api_key"); key != "" {
		channels = append(channels, notify.NewEmailChannel(key,
			viper.GetString("notify.email.from"), viper.GetStringSlice("notify.email.to")))
	}
	channels = append(channels, notify.NewCommentChannel(host))

	cfg := orchestrator.Config{
		ConfidenceThreshold: viper.GetInt("gate.threshold"),
		ForceThreshold:      viper.GetInt("gate.force_threshold"),
		ValidationTimeout:   viperDuration("validation.timeout", 20*time.Minute),
	}

	return orchestrator.New(
		host,
		st,
		aggregate.New(host, trackerClient, logger),
		analyzer.New(ai, nil),
		applier.New(host, logger),
		poller.New(host, viperDuration("validation.poll_interval", poller.DefaultInterval), logger),
		escalate.New(host, st, logger),
		notify.New(logger, channels...),
		cfg,
		logger,
	), nil
}

func viperDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
