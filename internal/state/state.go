package state

import (
	"sync"

	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/track"
	"karolbroda.com/chromaplay/internal/transport"
)

type Field int

const (
	FieldSearch Field = iota
	FieldResults
	FieldSelected
	FieldTheme
	FieldFeatures
	FieldTransport
	FieldPanel
)

func (f Field) String() string {
	switch f {
	case FieldSearch:
		return "search"
	case FieldResults:
		return "results"
	case FieldSelected:
		return "selected"
	case FieldTheme:
		return "theme"
	case FieldFeatures:
		return "features"
	case FieldTransport:
		return "transport"
	case FieldPanel:
		return "panel"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the store at one revision.
type Snapshot struct {
	Revision  uint64
	Search    string
	Results   []track.Track
	Selected  *track.Track
	Theme     *theme.Theme
	Features  *track.AudioFeatures
	Transport transport.State
	PanelOpen bool
}

type Listener func(field Field, snap Snapshot)

// Store holds the view state. Every setter bumps the revision and notifies
// listeners synchronously, after the lock is released.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []Listener
}

func NewStore() *Store {
	return &Store{snap: Snapshot{PanelOpen: true}}
}

func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Search
}

func (s *Store) Results() []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]track.Track(nil), s.snap.Results...)
}

func (s *Store) Selected() *track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Selected == nil {
		return nil
	}
	t := *s.snap.Selected
	return &t
}

func (s *Store) Theme() *theme.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Theme == nil {
		return nil
	}
	t := *s.snap.Theme
	return &t
}

func (s *Store) Features() *track.AudioFeatures {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Features == nil {
		return nil
	}
	f := *s.snap.Features
	return &f
}

func (s *Store) Transport() transport.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Transport
}

func (s *Store) PanelOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.PanelOpen
}

func (s *Store) SetSearch(q string) {
	s.update(FieldSearch, func(snap *Snapshot) { snap.Search = q })
}

func (s *Store) SetResults(results []track.Track) {
	cp := append([]track.Track(nil), results...)
	s.update(FieldResults, func(snap *Snapshot) { snap.Results = cp })
}

func (s *Store) SetSelected(t *track.Track) {
	var cp *track.Track
	if t != nil {
		v := *t
		cp = &v
	}
	s.update(FieldSelected, func(snap *Snapshot) { snap.Selected = cp })
}

func (s *Store) SetTheme(t *theme.Theme) {
	var cp *theme.Theme
	if t != nil {
		v := *t
		cp = &v
	}
	s.update(FieldTheme, func(snap *Snapshot) { snap.Theme = cp })
}

func (s *Store) SetFeatures(f *track.AudioFeatures) {
	var cp *track.AudioFeatures
	if f != nil {
		v := *f
		cp = &v
	}
	s.update(FieldFeatures, func(snap *Snapshot) { snap.Features = cp })
}

// SetTransport satisfies transport.Sink.
func (s *Store) SetTransport(ts transport.State) {
	s.update(FieldTransport, func(snap *Snapshot) { snap.Transport = ts })
}

func (s *Store) SetPanelOpen(open bool) {
	s.update(FieldPanel, func(snap *Snapshot) { snap.PanelOpen = open })
}

func (s *Store) TogglePanel() {
	s.update(FieldPanel, func(snap *Snapshot) { snap.PanelOpen = !snap.PanelOpen })
}

func (s *Store) update(field Field, mutate func(*Snapshot)) {
	s.mu.Lock()
	mutate(&s.snap)
	s.snap.Revision++
	snap := s.copyLocked()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(field, snap)
	}
}

func (s *Store) copyLocked() Snapshot {
	snap := s.snap
	snap.Results = append([]track.Track(nil), s.snap.Results...)
	return snap
}
