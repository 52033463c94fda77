package player

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/track"
	"karolbroda.com/chromaplay/internal/transport"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"

	loopTrack = "Track"
	loopNone  = "None"

	// a pause this close to the end counts as the clip finishing
	endSlackSeconds = 1.0
)

// busObject is the part of dbus.BusObject the service calls.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
	GetProperty(p string) (dbus.Variant, error)
	SetProperty(p string, v interface{}) error
}

// State mirrors the loaded clip. Playing follows our own Play and Pause
// calls; remote status changes only clear it when the clip has ended.
type State struct {
	URL           string
	TrackID       string
	Position      float64
	Duration      float64
	DurationKnown bool
	Playing       bool

	// confirmed is set once the remote reports Playing after a load, so the
	// Stopped it may send while switching to the new uri is not an end.
	confirmed bool
}

type Config struct {
	Service  string
	Interval time.Duration
	Logger   *zap.Logger
}

// Service drives an MPRIS player over the session bus. It implements
// transport.AudioSource: loads go through OpenUri and progress comes from
// the Seeked and PropertiesChanged signals plus Position polling.
type Service struct {
	bus      *dbus.Conn
	obj      busObject
	service  string
	interval time.Duration
	log      *zap.Logger

	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	updates    chan transport.Update

	mu    sync.RWMutex
	state State
}

func NewService(bus *dbus.Conn, cfg Config) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	s, err := newService(bus.Object(cfg.Service, mprisPath), cfg)
	if err != nil {
		return nil, err
	}
	s.bus = bus
	return s, nil
}

func newService(obj busObject, cfg Config) (*Service, error) {
	if cfg.Service == "" {
		return nil, errors.New("empty mpris service name")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		obj:      obj,
		service:  cfg.Service,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		updates:  make(chan transport.Update, 16),
	}, nil
}

// Start subscribes to the player's signals and begins position polling.
func (s *Service) Start() error {
	go s.pollLoop()

	if s.bus == nil {
		return nil
	}

	signalChan := make(chan *dbus.Signal, 10)
	s.signalChan = signalChan
	s.bus.Signal(signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		s.service, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
		s.service, mprisPlayerIface, mprisPath,
	)

	err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchPropertiesChanged).Err
	if err != nil {
		return fmt.Errorf("failed to add properties match: %w", err)
	}

	err = s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchSeeked).Err
	if err != nil {
		return fmt.Errorf("failed to add seeked match: %w", err)
	}

	go s.signalLoop()

	return nil
}

func (s *Service) Updates() <-chan transport.Update {
	return s.updates
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) Load(url string) error {
	if err := s.obj.Call(mprisPlayerIface+".OpenUri", 0, url).Err; err != nil {
		return fmt.Errorf("failed to open uri: %w", err)
	}

	s.mu.Lock()
	s.state = State{URL: url}
	s.mu.Unlock()

	// OpenUri starts playback on most players; loads are paused until Play
	if err := s.obj.Call(mprisPlayerIface+".Pause", 0).Err; err != nil {
		s.log.Debug("pause after open failed", zap.Error(err))
	}
	return nil
}

func (s *Service) Play() error {
	if err := s.obj.Call(mprisPlayerIface+".Play", 0).Err; err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}
	s.setPlaying(true)
	return nil
}

func (s *Service) Pause() error {
	if err := s.obj.Call(mprisPlayerIface+".Pause", 0).Err; err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	s.setPlaying(false)
	return nil
}

// Seek uses SetPosition when the track id is known and falls back to a
// relative Seek from the last known position otherwise.
func (s *Service) Seek(seconds float64) error {
	s.mu.RLock()
	trackID := s.state.TrackID
	current := s.state.Position
	s.mu.RUnlock()

	target := int64(seconds * 1_000_000)

	var err error
	if trackID != "" {
		err = s.obj.Call(mprisPlayerIface+".SetPosition", 0, dbus.ObjectPath(trackID), target).Err
	} else {
		err = s.obj.Call(mprisPlayerIface+".Seek", 0, target-int64(current*1_000_000)).Err
	}
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	s.mu.Lock()
	s.state.Position = seconds
	s.mu.Unlock()
	return nil
}

func (s *Service) SetLoop(loop bool) error {
	status := loopNone
	if loop {
		status = loopTrack
	}
	if err := s.obj.SetProperty(mprisPlayerIface+".LoopStatus", dbus.MakeVariant(status)); err != nil {
		return fmt.Errorf("failed to set loop status: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	s.Stop()
	return nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// NowPlaying reads the player's current metadata.
func (s *Service) NowPlaying() (*track.Track, error) {
	prop, err := s.obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	t := trackFromMetadata(metadata)
	return &t, nil
}

func (s *Service) PlaybackStatus() (string, error) {
	prop, err := s.obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return "", fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected playback status type %T", prop.Value())
	}
	return status, nil
}

func (s *Service) GetCurrentPosition() (float64, error) {
	prop, err := s.obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	positionMicroseconds, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	if positionMicroseconds < 0 {
		return 0, nil
	}

	return float64(positionMicroseconds) / 1_000_000, nil
}

// Poll reads the position once and reports it if something is playing.
func (s *Service) Poll() error {
	s.mu.RLock()
	loaded := s.state.URL != ""
	playing := s.state.Playing
	s.mu.RUnlock()
	if !loaded || !playing {
		return nil
	}

	pos, err := s.GetCurrentPosition()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Position = pos
	u := s.updateLocked()
	s.mu.Unlock()

	s.emit(u)
	return nil
}

func (s *Service) pollLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.Poll(); err != nil {
				s.log.Debug("mpris poll failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		s.handleSeeked(sig)
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.state.URL == "" {
		s.mu.Unlock()
		return
	}

	changed := false
	ended := false

	if metadataVariant, exists := changedProps["Metadata"]; exists {
		if metadata, ok := metadataVariant.Value().(map[string]dbus.Variant); ok {
			if id := extractString(metadata, "mpris:trackid"); id != "" {
				s.state.TrackID = id
			}
			if length := extractDurationSeconds(metadata, "mpris:length"); length > 0 {
				s.state.Duration = length
				s.state.DurationKnown = true
				changed = true
			}
		}
	}

	if playbackVariant, exists := changedProps["PlaybackStatus"]; exists {
		if status, ok := playbackVariant.Value().(string); ok && s.statusEndedLocked(status) {
			s.state.Playing = false
			ended = true
			changed = true
		}
	}

	u := s.updateLocked()
	u.Ended = ended
	s.mu.Unlock()

	if changed {
		s.emit(u)
	}
}

func (s *Service) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	positionMicroseconds, ok := sig.Body[0].(int64)
	if !ok || positionMicroseconds < 0 {
		return
	}

	s.mu.Lock()
	if s.state.URL == "" {
		s.mu.Unlock()
		return
	}
	s.state.Position = float64(positionMicroseconds) / 1_000_000
	u := s.updateLocked()
	s.mu.Unlock()

	s.emit(u)
}

// statusEndedLocked reports whether a remote status change means the clip
// finished. Paused and Playing echoes of our own calls are ignored.
func (s *Service) statusEndedLocked(status string) bool {
	if status == "Playing" {
		if s.state.Playing {
			s.state.confirmed = true
		}
		return false
	}
	if !s.state.Playing || !s.state.confirmed {
		return false
	}
	switch status {
	case "Stopped":
		return true
	case "Paused":
		return s.state.DurationKnown && s.state.Position >= s.state.Duration-endSlackSeconds
	}
	return false
}

func (s *Service) setPlaying(playing bool) {
	s.mu.Lock()
	s.state.Playing = playing
	s.mu.Unlock()
}

func (s *Service) updateLocked() transport.Update {
	return transport.Update{
		URL:           s.state.URL,
		Position:      s.state.Position,
		Duration:      s.state.Duration,
		DurationKnown: s.state.DurationKnown,
	}
}

func (s *Service) emit(u transport.Update) {
	select {
	case s.updates <- u:
	default:
	}
}

// ListPlayers returns the MPRIS bus names currently registered.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	if err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

func Identity(bus *dbus.Conn, serviceName string) string {
	variant, err := bus.Object(serviceName, mprisPath).GetProperty(mprisRootIface + ".Identity")
	if err != nil {
		return ""
	}
	identity, _ := variant.Value().(string)
	return identity
}

func trackFromMetadata(metadata map[string]dbus.Variant) track.Track {
	return track.Track{
		ID:           extractString(metadata, "mpris:trackid"),
		Name:         extractString(metadata, "xesam:title"),
		Artists:      extractStrings(metadata, "xesam:artist"),
		Album:        extractString(metadata, "xesam:album"),
		AlbumArtURL:  extractString(metadata, "mpris:artUrl"),
		PreviewURL:   extractString(metadata, "xesam:url"),
		DurationSecs: int64(extractDurationSeconds(metadata, "mpris:length")),
	}
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case string:
		return typed
	case dbus.ObjectPath:
		return string(typed)
	default:
		return ""
	}
}

func extractStrings(metadata map[string]dbus.Variant, key string) []string {
	variant, exists := metadata[key]
	if !exists {
		return nil
	}

	switch typed := variant.Value().(type) {
	case []string:
		return typed
	case string:
		return []string{typed}
	default:
		return nil
	}
}

func extractDurationSeconds(metadata map[string]dbus.Variant, key string) float64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return float64(typed) / 1_000_000
	case uint64:
		return float64(typed) / 1_000_000
	default:
		return 0
	}
}
