package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/cache"
	"karolbroda.com/chromaplay/internal/track"
)

// SearchStore is the slice of the disk cache the decorator needs.
type SearchStore interface {
	Get(query string) (*cache.SearchEntry, error)
	Set(query string, tracks []track.Track) error
}

// Cached serves repeated searches from a SearchStore. Feature lookups are
// passed through untouched.
type Cached struct {
	next  Service
	store SearchStore
	log   *zap.Logger
}

func NewCached(next Service, store SearchStore, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, store: store, log: log}
}

func (c *Cached) Search(ctx context.Context, query string) ([]track.Track, error) {
	entry, err := c.store.Get(query)
	if err == nil {
		c.log.Debug("search cache hit", zap.String("query", query), zap.Int("results", len(entry.Tracks)))
		return append([]track.Track(nil), entry.Tracks...), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheExpired) {
		c.log.Debug("search cache read failed", zap.String("query", query), zap.Error(err))
	}

	tracks, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(tracks) > 0 {
		if err := c.store.Set(query, tracks); err != nil {
			c.log.Warn("search cache write failed", zap.String("query", query), zap.Error(err))
		}
	}
	return tracks, nil
}

func (c *Cached) Features(ctx context.Context, trackID string) (*track.AudioFeatures, error) {
	return c.next.Features(ctx, trackID)
}
