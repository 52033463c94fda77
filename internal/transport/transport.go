package transport

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// AudioSource is the capability set the controller drives. Implementations
// report progress and errors asynchronously through Updates.
type AudioSource interface {
	Load(url string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetLoop(loop bool) error
	Updates() <-chan Update
	Close() error
}

// Update is a progress report from an AudioSource. URL names the media it
// belongs to so reports from a replaced load can be told apart.
type Update struct {
	URL           string
	Position      float64
	Duration      float64
	DurationKnown bool
	Ended         bool
	Err           error
}

type Phase int

const (
	Idle Phase = iota
	LoadedPaused
	LoadedPlaying
)

func (p Phase) String() string {
	switch p {
	case LoadedPaused:
		return "paused"
	case LoadedPlaying:
		return "playing"
	default:
		return "idle"
	}
}

type State struct {
	Playing       bool
	CurrentTime   float64
	Duration      float64
	DurationKnown bool
	Loop          bool
	SourceURL     string
}

func (s State) Loaded() bool {
	return s.SourceURL != ""
}

func (s State) Phase() Phase {
	switch {
	case !s.Loaded():
		return Idle
	case s.Playing:
		return LoadedPlaying
	default:
		return LoadedPaused
	}
}

// Sink receives every state change.
type Sink interface {
	SetTransport(s State)
}

type Config struct {
	Source AudioSource
	Sink   Sink
	Logger *zap.Logger
}

// Controller owns playback state for a single audio source. It is not safe
// for concurrent use; call it from the event loop.
type Controller struct {
	source AudioSource
	sink   Sink
	log    *zap.Logger
	state  State
}

type UpdateMsg struct {
	Update Update
}

func NewController(cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		source: cfg.Source,
		sink:   cfg.Sink,
		log:    log,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Load replaces the current media. Playback does not start; the loop flag
// carries over to the new media. An empty url is ignored.
func (c *Controller) Load(url string) {
	if url == "" {
		return
	}

	c.state.SourceURL = url
	c.state.Playing = false
	c.state.CurrentTime = 0
	c.state.Duration = 0
	c.state.DurationKnown = false

	if c.source != nil {
		if err := c.source.Load(url); err != nil {
			c.log.Warn("audio load failed", zap.String("url", url), zap.Error(err))
		}
		if err := c.source.SetLoop(c.state.Loop); err != nil {
			c.log.Debug("set loop failed", zap.Error(err))
		}
	}
	c.notify()
}

func (c *Controller) Play() {
	if c.state.Phase() != LoadedPaused {
		return
	}
	c.state.Playing = true
	if c.source != nil {
		if err := c.source.Play(); err != nil {
			c.log.Warn("audio play failed", zap.Error(err))
		}
	}
	c.notify()
}

func (c *Controller) Pause() {
	if c.state.Phase() != LoadedPlaying {
		return
	}
	c.state.Playing = false
	if c.source != nil {
		if err := c.source.Pause(); err != nil {
			c.log.Warn("audio pause failed", zap.Error(err))
		}
	}
	c.notify()
}

func (c *Controller) TogglePlay() {
	if c.state.Playing {
		c.Pause()
		return
	}
	c.Play()
}

// Seek moves to t seconds. With a known duration t is clamped to
// [0, duration]; without one only the lower bound applies.
func (c *Controller) Seek(t float64) {
	if !c.state.Loaded() {
		return
	}
	if t < 0 {
		t = 0
	}
	if c.state.DurationKnown && t > c.state.Duration {
		t = c.state.Duration
	}

	c.state.CurrentTime = t
	if c.source != nil {
		if err := c.source.Seek(t); err != nil {
			c.log.Warn("audio seek failed", zap.Float64("position", t), zap.Error(err))
		}
	}
	c.notify()
}

func (c *Controller) SeekBy(delta float64) {
	c.Seek(c.state.CurrentTime + delta)
}

func (c *Controller) ToggleRepeat() {
	c.state.Loop = !c.state.Loop
	if c.source != nil && c.state.Loaded() {
		if err := c.source.SetLoop(c.state.Loop); err != nil {
			c.log.Debug("set loop failed", zap.Error(err))
		}
	}
	c.notify()
}

// HandleUpdate folds a source report into the state. Position reports never
// change Playing or Loop; an end-of-media report pauses.
func (c *Controller) HandleUpdate(u Update) {
	if !c.state.Loaded() || (u.URL != "" && u.URL != c.state.SourceURL) {
		return
	}
	if u.Err != nil {
		c.log.Warn("audio source error", zap.String("url", c.state.SourceURL), zap.Error(u.Err))
		return
	}

	if u.DurationKnown {
		c.state.Duration = u.Duration
		c.state.DurationKnown = true
	}

	pos := u.Position
	if pos < 0 {
		pos = 0
	}
	if c.state.DurationKnown && pos > c.state.Duration {
		pos = c.state.Duration
	}
	c.state.CurrentTime = pos

	if u.Ended && c.state.Playing {
		c.state.Playing = false
	}
	c.notify()
}

// Listen waits for the next source report. Re-issue it after each UpdateMsg.
func (c *Controller) Listen() tea.Cmd {
	if c.source == nil {
		return nil
	}
	updates := c.source.Updates()
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return UpdateMsg{Update: u}
	}
}

func (c *Controller) Close() error {
	if c.source == nil {
		return nil
	}
	return c.source.Close()
}

func (c *Controller) notify() {
	if c.sink != nil {
		c.sink.SetTransport(c.state)
	}
}
