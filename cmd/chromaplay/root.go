package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/chromaplay/internal/config"
)

var (
	// global flags
	audioBackend string
	mprisService string
	searchLimit  int
	overlayPath  string
	noCache      bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "chromaplay",
	Short: "terminal track browser with album-art color themes",
	Long: `chromaplay searches the spotify catalog, plays track previews and paints the
terminal with an animated gradient built from the selected track's album art.

when run without a subcommand, it starts the interactive TUI.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&audioBackend, "backend", "b", "", "audio backend: beep or mpris")
	rootCmd.PersistentFlags().StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name for the mpris backend (e.g., org.mpris.MediaPlayer2.vlc)")
	rootCmd.PersistentFlags().IntVarP(&searchLimit, "limit", "l", 0, "maximum search results")
	rootCmd.PersistentFlags().StringVar(&overlayPath, "overlay", "", "write the themed page to this html file")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the search cache")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads .env and the environment, then applies any flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read .env: %v\n", err)
	}

	cfg := config.Load()
	flags := cmd.Flags()

	if flags.Changed("backend") {
		switch audioBackend {
		case config.BackendBeep, config.BackendMpris:
			cfg.AudioBackend = audioBackend
		default:
			return nil, fmt.Errorf("unknown audio backend %q", audioBackend)
		}
	}
	if mprisService != "" {
		cfg.MprisService = mprisService
	}
	if flags.Changed("limit") {
		if searchLimit < 1 || searchLimit > config.MaxSearchLimit {
			return nil, fmt.Errorf("limit must be between 1 and %d", config.MaxSearchLimit)
		}
		cfg.SearchLimit = searchLimit
	}
	if overlayPath != "" {
		cfg.OverlayPath = overlayPath
	}
	if flags.Changed("no-cache") {
		cfg.NoCache = noCache
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
