package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/logger"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/pipeline"
)

// Version is stamped at build time with -ldflags "-X github.com/ppiankov/cardset/internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cardset",
	Short: "Cardset - themed card sets from Wikipedia categories",
	Long: `Cardset turns a free-text topic into a set of cards.

It finds the Wikipedia category that best matches the topic, fetches the
Wikidata entities of its members, keeps the homogeneous subset that reads
as a set, and picks one Commons image per card.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cardset %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cardset/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (diagnostics and claims)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-env", "", "log encoding: prod (JSON) or dev (console)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.env", rootCmd.PersistentFlags().Lookup("log-env"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".cardset"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CARDSET_*, e.g. CARDSET_HTTP_TIMEOUT
	viper.SetEnvPrefix("CARDSET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// app is what every command that talks to the wiki APIs needs
type app struct {
	config   *model.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	renderer *pipeline.Renderer
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	renderer, err := pipeline.NewRenderer(cfg.Output.Format, cfg.Output.Verbose)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.NewPipeline(cfg, log, nil)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	return &app{config: cfg, logger: log, pipeline: p, renderer: renderer}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// withTimeout bounds a command by its --timeout flag, when it has one
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := cmd.Flags().GetDuration("timeout")
	if err != nil || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
