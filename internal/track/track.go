package track

import "strings"

// Track is a single playable catalog entry. Values are never mutated after
// they come back from a catalog.
type Track struct {
	ID           string
	Name         string
	Artists      []string
	Album        string
	AlbumArtURL  string
	PreviewURL   string
	DurationSecs int64
}

// AudioFeatures is the analysis record for a track. The player only checks
// for its presence; the fields are shown as a one-line summary.
type AudioFeatures struct {
	TrackID      string
	Danceability float64
	Energy       float64
	Valence      float64
	Tempo        float64
}

func (t *Track) IsValid() bool {
	if t == nil {
		return false
	}
	return t.ID != "" && t.Name != ""
}

func (t *Track) HasPreview() bool {
	return t != nil && t.PreviewURL != ""
}

func (t *Track) IsSameTrack(other *Track) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.ID != "" && other.ID != "" {
		return t.ID == other.ID
	}
	return t.Name == other.Name && t.ArtistLine() == other.ArtistLine()
}

// ArtistLine joins the artist names the way they are shown in lists.
func (t *Track) ArtistLine() string {
	if t == nil {
		return ""
	}
	return strings.Join(t.Artists, ", ")
}
