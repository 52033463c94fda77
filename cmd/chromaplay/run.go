package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/artwork"
	"karolbroda.com/chromaplay/internal/audio"
	"karolbroda.com/chromaplay/internal/cache"
	"karolbroda.com/chromaplay/internal/catalog"
	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/logger"
	"karolbroda.com/chromaplay/internal/overlay"
	"karolbroda.com/chromaplay/internal/pipeline"
	"karolbroda.com/chromaplay/internal/player"
	"karolbroda.com/chromaplay/internal/state"
	"karolbroda.com/chromaplay/internal/terminal"
	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/transport"
	"karolbroda.com/chromaplay/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive track browser",
	Long:  `starts the terminal track browser: search, select, and play previews under an album-art theme.`,
	RunE:  runApp,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runApp(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		cancel()
		terminal.Reset()
		os.Exit(0)
	}()

	defer terminal.Reset()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := setupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	defer logger.Sync()

	cat, err := newCatalog(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: search unavailable: %v\n", err)
	}

	source, closeSource, err := newAudioSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	store := state.NewStore()
	// without a catalog there is nothing to search; start on the idle screen
	store.SetPanelOpen(cat != nil)
	doc := theme.NewDocument()

	ctrl := transport.NewController(transport.Config{
		Source: source,
		Sink:   store,
		Logger: log.Named("transport"),
	})

	pl := pipeline.New(pipeline.Config{
		Catalog:   cat,
		Palette:   artwork.NewExtractor(artwork.ExtractorConfig{Logger: log.Named("artwork")}),
		Applier:   doc,
		Store:     store,
		Transport: ctrl,
		Logger:    log.Named("pipeline"),
	})

	var ov *overlay.Writer
	if cfg.OverlayPath != "" {
		ov, err = overlay.New(overlay.Config{Path: cfg.OverlayPath, Document: doc, Logger: log.Named("overlay")})
		if err != nil {
			return fmt.Errorf("failed to set up overlay: %w", err)
		}
		if err := ov.Attach(store); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not write overlay: %v\n", err)
		}
	}

	model := ui.NewModel(ui.ModelConfig{
		Store:     store,
		Pipeline:  pl,
		Transport: ctrl,
		TermCaps:  terminal.DetectCapabilities(),
		Logger:    log.Named("ui"),
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	log.Info("starting",
		zap.String("backend", cfg.AudioBackend),
		zap.Bool("catalog", cat != nil),
		zap.Bool("overlay", cfg.OverlayPath != ""))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}

	if ov != nil {
		log.Info("overlay closed", zap.String("path", ov.Path()), zap.Int("writes", ov.Writes()))
		if err := ov.LastError(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: last overlay write failed: %v\n", err)
		}
	}

	return nil
}

func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	err := logger.Init(logger.Config{
		Level:      logger.Level(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
	})
	return logger.L(), err
}

// newCatalog builds the spotify catalog, behind the search cache unless it
// is disabled. Without credentials it returns nil and the TUI shows empty
// results.
func newCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalog.Service, error) {
	if !cfg.HasSpotifyCredentials() {
		return nil, fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET", catalog.ErrNotConfigured)
	}

	authCtx, cancel := context.WithTimeout(ctx, config.HTTPTimeoutSeconds*time.Second)
	defer cancel()

	spotify, err := catalog.NewSpotify(authCtx, catalog.SpotifyConfig{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		Limit:        cfg.SearchLimit,
		Logger:       log.Named("spotify"),
	})
	if err != nil {
		return nil, err
	}

	if cfg.NoCache {
		return spotify, nil
	}

	searchCache, err := cache.New(cfg.CacheTTL)
	if err != nil {
		log.Warn("search cache is memory only", zap.Error(err))
	}
	return catalog.NewCached(spotify, searchCache, log.Named("cache")), nil
}

// newAudioSource opens the configured backend. The returned func releases
// anything the source holds beyond its own Close.
func newAudioSource(cfg *config.Config, log *zap.Logger) (transport.AudioSource, func(), error) {
	switch cfg.AudioBackend {
	case config.BackendMpris:
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to session bus: %w", err)
		}

		svc, err := player.NewService(bus, player.Config{
			Service:  cfg.MprisService,
			Interval: config.PositionInterval,
			Logger:   log.Named("mpris"),
		})
		if err != nil {
			bus.Close()
			return nil, nil, fmt.Errorf("failed to create player service: %w", err)
		}

		if err := svc.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not set up dbus signals: %v\n", err)
		}
		return svc, func() {
			svc.Stop()
			bus.Close()
		}, nil

	default:
		p := audio.New(audio.Config{
			Timeout:  config.HTTPTimeoutSeconds * time.Second,
			Interval: config.PositionInterval,
			Logger:   log.Named("audio"),
		})
		return p, func() { _ = p.Close() }, nil
	}
}
