// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"reel/internal/config"
	"reel/internal/log"
)

// Version is set at build time via ldflags.
var Version = "dev"

// useConfigDir is the value of a bare --download: save to the configured dir.
const useConfigDir = "default"

// Global flags
var (
	flagDownload string
	flagLanguage string
	flagNoSubs   bool
	flagSources  []string
	flagQuality  string
	flagPlayer   string
	flagContinue bool
	flagJSON     bool
	flagDebug    bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var (
	logger    = log.With("cmd")
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "reel [query]",
	Short: "Stream movies and TV shows from the terminal",
	Long: `reel searches for movies and TV shows, lets you pick which source to
stream from, and plays the result with mpv/vlc or downloads it with ffmpeg.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              searchRun,
	SilenceUsage:      true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagDownload, "download", "d", "", "Download instead of playing; --download=DIR overrides download_dir")
	flags.Lookup("download").NoOptDefVal = useConfigDir
	flags.StringVarP(&flagLanguage, "language", "l", "", "Subtitle language (default: english)")
	flags.BoolVarP(&flagNoSubs, "no-subs", "n", false, "Disable subtitles")
	flags.StringSliceVarP(&flagSources, "sources", "s", nil, "Source order, e.g. consumet,flixhq (unlisted sources are dropped)")
	flags.StringVarP(&flagQuality, "quality", "q", "", "Video quality: 360 | 480 | 720 | 1080 | auto")
	flags.StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	flags.BoolVarP(&flagContinue, "continue", "c", false, "Auto-resume from history")
	flags.BoolVarP(&flagJSON, "json", "j", false, "Print the resolved stream as JSON instead of playing")
	flags.BoolVarP(&flagDebug, "debug", "x", false, "Debug logging")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if len(flagSources) > 0 {
		cfg.Sources = flagSources
	}
	if flagQuality != "" {
		cfg.Quality = flagQuality
	}
	if flagLanguage != "" {
		cfg.SubsLanguage = flagLanguage
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logPath, err := config.LogPath()
	if err != nil {
		return err
	}
	logCloser, err = log.Setup(log.Options{Path: logPath, Debug: cfg.Debug, JSON: cfg.LogJSON})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"version": Version,
		"command": cmd.Name(),
		"player":  cfg.Player,
		"sources": cfg.Sources,
	}).Debug("configuration loaded")
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "reel", Version)
	},
}
