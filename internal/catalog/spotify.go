package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"karolbroda.com/chromaplay/internal/track"
)

// preferredArtSize is the edge length, in pixels, of the album image we pick
// when several sizes are offered. Large enough for palette extraction.
const preferredArtSize = 300

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	Limit        int

	// HTTPClient skips the client credentials exchange when set.
	HTTPClient *http.Client
	BaseURL    string
	TokenURL   string
	Logger     *zap.Logger
}

type Spotify struct {
	client *spotifyclient.Client
	limit  int
	log    *zap.Logger
}

func NewSpotify(ctx context.Context, cfg SpotifyConfig) (*Spotify, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, ErrNotConfigured
		}
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = spotifyauth.TokenURL
		}
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		// fetch once up front so bad credentials fail here, not on first search
		token, err := creds.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get spotify token: %w", err)
		}
		// client credentials tokens have no refresh token; renewal is a new
		// exchange, which must outlive ctx
		source := oauth2.ReuseTokenSource(token, creds.TokenSource(context.Background()))
		httpClient = oauth2.NewClient(context.Background(), source)
	}

	var opts []spotifyclient.ClientOption
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, spotifyclient.WithBaseURL(base))
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 20
	}

	return &Spotify{
		client: spotifyclient.New(httpClient, opts...),
		limit:  limit,
		log:    log,
	}, nil
}

func (s *Spotify) Search(ctx context.Context, query string) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	results, err := s.client.Search(ctx, query, spotifyclient.SearchTypeTrack, spotifyclient.Limit(s.limit))
	if err != nil {
		return nil, fmt.Errorf("spotify search failed: %w", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]track.Track, 0, len(results.Tracks.Tracks))
	for _, ft := range results.Tracks.Tracks {
		t := fromFullTrack(ft)
		if !t.IsValid() {
			continue
		}
		tracks = append(tracks, t)
	}

	s.log.Debug("spotify search",
		zap.String("query", query),
		zap.Int("results", len(tracks)))

	return tracks, nil
}

func (s *Spotify) Features(ctx context.Context, trackID string) (*track.AudioFeatures, error) {
	if trackID == "" {
		return nil, ErrNoFeatures
	}

	features, err := s.client.GetAudioFeatures(ctx, spotifyclient.ID(trackID))
	if err != nil {
		return nil, fmt.Errorf("spotify audio features failed: %w", err)
	}
	if len(features) == 0 || features[0] == nil {
		return nil, ErrNoFeatures
	}

	f := features[0]
	return &track.AudioFeatures{
		TrackID:      trackID,
		Danceability: float64(f.Danceability),
		Energy:       float64(f.Energy),
		Valence:      float64(f.Valence),
		Tempo:        float64(f.Tempo),
	}, nil
}

func fromFullTrack(ft spotifyclient.FullTrack) track.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}

	return track.Track{
		ID:           string(ft.ID),
		Name:         ft.Name,
		Artists:      artists,
		Album:        ft.Album.Name,
		AlbumArtURL:  pickImage(ft.Album.Images),
		PreviewURL:   ft.PreviewURL,
		DurationSecs: int64(ft.Duration) / 1000,
	}
}

// pickImage returns the smallest image at least preferredArtSize wide, or
// the largest one available.
func pickImage(images []spotifyclient.Image) string {
	best := ""
	bestWidth := 0
	for _, img := range images {
		w := int(img.Width)
		switch {
		case best == "":
			best, bestWidth = img.URL, w
		case bestWidth < preferredArtSize && w > bestWidth:
			best, bestWidth = img.URL, w
		case w >= preferredArtSize && w < bestWidth:
			best, bestWidth = img.URL, w
		}
	}
	return best
}
