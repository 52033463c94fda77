package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"karolbroda.com/chromaplay/internal/cache"
	"karolbroda.com/chromaplay/internal/track"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testEntries() []*cache.SearchEntry {
	return []*cache.SearchEntry{
		{Query: "blue monk", CreatedAt: 100, ExpiresAt: 200, Tracks: make([]track.Track, 1)},
		{Query: "Autumn Leaves", CreatedAt: 300, ExpiresAt: 400, Tracks: make([]track.Track, 3)},
		{Query: "blue in green", CreatedAt: 200, ExpiresAt: 300, Tracks: make([]track.Track, 2)},
	}
}

func queries(entries []*cache.SearchEntry) string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return strings.Join(out, "|")
}

func TestSortCacheEntries(t *testing.T) {
	tests := []struct {
		by   string
		want string
	}{
		{"date", "Autumn Leaves|blue in green|blue monk"},
		{"query", "Autumn Leaves|blue in green|blue monk"},
		{"size", "Autumn Leaves|blue in green|blue monk"},
		{"unknown", "blue monk|Autumn Leaves|blue in green"},
	}
	for _, tt := range tests {
		t.Run(tt.by, func(t *testing.T) {
			entries := testEntries()
			sortCacheEntries(entries, tt.by)
			if got := queries(entries); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFindSimilarQueries(t *testing.T) {
	entries := testEntries()

	if got := queries(findSimilarQueries(entries, "BLUE")); got != "blue monk|blue in green" {
		t.Errorf("substring match = %s", got)
	}
	if got := queries(findSimilarQueries(entries, "green leaves")); got != "Autumn Leaves|blue in green" {
		t.Errorf("word match = %s", got)
	}
	if got := findSimilarQueries(entries, "   "); got != nil {
		t.Errorf("blank query should have no suggestions, got %v", got)
	}
	if got := findSimilarQueries(nil, "blue"); got != nil {
		t.Errorf("empty cache should have no suggestions, got %v", got)
	}
}

func TestPrintCacheEntriesMarksExpired(t *testing.T) {
	var buf bytes.Buffer
	printCacheEntries(&buf, testEntries(), time.Unix(250, 0))

	out := buf.String()
	for _, want := range []string{"QUERY", "blue monk", "expired", "fresh", "total: 3 searches"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTracks(t *testing.T) {
	tracks := []track.Track{
		{ID: "a", Name: "So What", Artists: []string{"Miles Davis"}, Album: "Kind of Blue", DurationSecs: 562, PreviewURL: "https://p/a"},
		{ID: "b", Name: "Freddie Freeloader", Artists: []string{"Miles Davis"}, Album: "Kind of Blue", DurationSecs: 589},
	}
	features := map[string]*track.AudioFeatures{"a": {TrackID: "a", Energy: 0.5, Tempo: 136}}

	var buf bytes.Buffer
	printTracks(&buf, tracks, features)
	out := buf.String()

	for _, want := range []string{"ENERGY", "So What", "9:22", "yes", "0.50", "136", "total: 2 tracks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIsYes(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES": true, " yes ": true, "n": false, "": false} {
		if got := isYes(in); got != want {
			t.Errorf("isYes(%q) = %v", in, got)
		}
	}
}
