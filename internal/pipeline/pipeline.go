package pipeline

import (
	"context"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/artwork"
	"karolbroda.com/chromaplay/internal/catalog"
	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/state"
	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/track"
)

// Token identifies one selection or search. Only results carrying the latest
// token are allowed to touch shared state.
type Token uint64

// Transport is the part of the transport controller the pipeline drives.
type Transport interface {
	Load(url string)
	Play()
}

// imageExtractor is implemented by palette services that can also hand back
// the decoded artwork.
type imageExtractor interface {
	ExtractWithImage(ctx context.Context, imageURL string, count int) ([]artwork.RGB, image.Image, error)
}

type SearchMsg struct {
	Token  Token
	Query  string
	Tracks []track.Track
	Err    error
}

type FeaturesMsg struct {
	Token    Token
	TrackID  string
	Features *track.AudioFeatures
	Err      error
}

type PaletteMsg struct {
	Token  Token
	Track  track.Track
	Colors []artwork.RGB
	Image  image.Image
	Err    error
}

type Config struct {
	Catalog   catalog.Service
	Palette   artwork.Service
	Applier   theme.Applier
	Store     *state.Store
	Transport Transport
	Logger    *zap.Logger

	// RequestTimeout bounds catalog calls. Palette requests are not bounded
	// here; the palette service owns its own fetch timeout.
	RequestTimeout time.Duration
}

// Pipeline coordinates search and selection. Its methods must be called from
// the event loop; the I/O runs inside the returned commands.
type Pipeline struct {
	catalog   catalog.Service
	palette   artwork.Service
	applier   theme.Applier
	store     *state.Store
	transport Transport
	log       *zap.Logger
	timeout   time.Duration

	selection Token
	search    Token
	art       image.Image
}

func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.HTTPTimeoutSeconds * time.Second
	}
	return &Pipeline{
		catalog:   cfg.Catalog,
		palette:   cfg.Palette,
		applier:   cfg.Applier,
		store:     cfg.Store,
		transport: cfg.Transport,
		log:       log,
		timeout:   timeout,
	}
}

func (p *Pipeline) Current() Token {
	return p.selection
}

// Artwork is the decoded album art of the current selection, once known.
func (p *Pipeline) Artwork() image.Image {
	return p.art
}

// Search records the query and returns the command that runs it.
func (p *Pipeline) Search(query string) tea.Cmd {
	p.search++
	token := p.search
	p.store.SetSearch(query)

	svc := p.catalog
	timeout := p.timeout
	return func() tea.Msg {
		if svc == nil {
			return SearchMsg{Token: token, Query: query, Err: catalog.ErrNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		tracks, err := svc.Search(ctx, query)
		return SearchMsg{Token: token, Query: query, Tracks: tracks, Err: err}
	}
}

// Select makes t the current selection and starts its features and palette
// requests concurrently.
func (p *Pipeline) Select(t track.Track) tea.Cmd {
	p.selection++
	token := p.selection
	p.art = nil

	p.store.SetSelected(&t)
	p.store.SetFeatures(nil)

	p.log.Debug("selection started",
		zap.Uint64("token", uint64(token)),
		zap.String("track", t.ID))

	return tea.Batch(p.fetchFeatures(token, t.ID), p.fetchPalette(token, t))
}

func (p *Pipeline) fetchFeatures(token Token, trackID string) tea.Cmd {
	svc := p.catalog
	timeout := p.timeout
	return func() tea.Msg {
		if svc == nil {
			return FeaturesMsg{Token: token, TrackID: trackID, Err: catalog.ErrNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		f, err := svc.Features(ctx, trackID)
		return FeaturesMsg{Token: token, TrackID: trackID, Features: f, Err: err}
	}
}

func (p *Pipeline) fetchPalette(token Token, t track.Track) tea.Cmd {
	svc := p.palette
	return func() tea.Msg {
		if t.AlbumArtURL == "" || svc == nil {
			return PaletteMsg{Token: token, Track: t, Err: artwork.ErrEmptyURL}
		}

		ctx := context.Background()
		if withImage, ok := svc.(imageExtractor); ok {
			colors, img, err := withImage.ExtractWithImage(ctx, t.AlbumArtURL, config.PaletteSize)
			return PaletteMsg{Token: token, Track: t, Colors: colors, Image: img, Err: err}
		}
		colors, err := svc.Extract(ctx, t.AlbumArtURL, config.PaletteSize)
		return PaletteMsg{Token: token, Track: t, Colors: colors, Err: err}
	}
}

// Update routes a pipeline message to its handler and reports whether it
// was current and applied. Other messages return false.
func (p *Pipeline) Update(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case SearchMsg:
		return p.HandleSearch(msg)
	case FeaturesMsg:
		return p.HandleFeatures(msg)
	case PaletteMsg:
		return p.HandlePalette(msg)
	}
	return false
}

// HandleSearch stores the results of the latest search. A failed search
// leaves an empty result list.
func (p *Pipeline) HandleSearch(msg SearchMsg) bool {
	if msg.Token != p.search {
		p.log.Debug("stale search discarded", zap.Uint64("token", uint64(msg.Token)), zap.String("query", msg.Query))
		return false
	}
	if msg.Err != nil {
		p.log.Warn("search failed", zap.String("query", msg.Query), zap.Error(msg.Err))
		p.store.SetResults(nil)
		return true
	}
	p.store.SetResults(msg.Tracks)
	return true
}

func (p *Pipeline) HandleFeatures(msg FeaturesMsg) bool {
	if msg.Token != p.selection {
		p.log.Debug("stale features discarded", zap.Uint64("token", uint64(msg.Token)), zap.String("track", msg.TrackID))
		return false
	}
	if msg.Err != nil {
		p.log.Debug("features unavailable", zap.String("track", msg.TrackID), zap.Error(msg.Err))
		p.store.SetFeatures(nil)
		return true
	}
	p.store.SetFeatures(msg.Features)
	return true
}

// HandlePalette applies the theme for the current selection and then hands
// the preview to the transport. A palette error skips the theme but still
// starts playback.
func (p *Pipeline) HandlePalette(msg PaletteMsg) bool {
	fields := []zap.Field{
		zap.Uint64("token", uint64(msg.Token)),
		zap.String("track", msg.Track.ID),
	}
	if msg.Token != p.selection {
		p.log.Debug("stale palette discarded", fields...)
		return false
	}

	if msg.Err != nil {
		p.log.Debug("palette unavailable", append(fields, zap.Error(msg.Err))...)
	} else if palette, err := theme.PaletteFrom(msg.Colors); err != nil {
		p.log.Warn("palette rejected", append(fields, zap.Error(err))...)
	} else {
		th := theme.Build(palette)
		if p.applier != nil {
			p.applier.Apply(th)
		}
		p.store.SetTheme(&th)
		p.art = msg.Image
		p.log.Debug("theme applied", append(fields, zap.String("theme", th.Name))...)
	}

	if !msg.Track.HasPreview() {
		p.log.Debug("no preview, transport left alone", fields...)
		return true
	}
	if p.transport != nil {
		p.transport.Load(msg.Track.PreviewURL)
		p.transport.Play()
	}
	return true
}
