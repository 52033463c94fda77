package catalog

import (
	"context"
	"errors"

	"karolbroda.com/chromaplay/internal/track"
)

var (
	ErrNotConfigured = errors.New("catalog credentials not configured")
	ErrNoFeatures    = errors.New("no audio features for track")
)

// Service looks up tracks and their audio analysis.
type Service interface {
	Search(ctx context.Context, query string) ([]track.Track, error)
	Features(ctx context.Context, trackID string) (*track.AudioFeatures, error)
}
