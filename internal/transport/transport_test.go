package transport

import (
	"errors"
	"testing"
)

type fakeSource struct {
	calls   []string
	loop    bool
	seekTo  float64
	updates chan Update
}

func newFakeSource() *fakeSource {
	return &fakeSource{updates: make(chan Update, 4)}
}

func (f *fakeSource) Load(url string) error { f.calls = append(f.calls, "load:"+url); return nil }
func (f *fakeSource) Play() error { f.calls = append(f.calls, "play"); return nil }
func (f *fakeSource) Pause() error { f.calls = append(f.calls, "pause"); return nil }
func (f *fakeSource) Seek(s float64) error { f.calls = append(f.calls, "seek"); f.seekTo = s; return nil }
func (f *fakeSource) SetLoop(loop bool) error { f.loop = loop; return nil }
func (f *fakeSource) Updates() <-chan Update { return f.updates }
func (f *fakeSource) Close() error { close(f.updates); return nil }

type recordingSink struct {
	states []State
}

func (r *recordingSink) SetTransport(s State) { r.states = append(r.states, s) }

func newTestController() (*Controller, *fakeSource, *recordingSink) {
	src := newFakeSource()
	sink := &recordingSink{}
	return NewController(Config{Source: src, Sink: sink}), src, sink
}

func TestIdleOperationsAreNoOps(t *testing.T) {
	c, src, sink := newTestController()

	c.TogglePlay()
	c.Play()
	c.Pause()
	c.Seek(10)

	if c.State().Phase() != Idle {
		t.Errorf("phase = %v, want idle", c.State().Phase())
	}
	if len(src.calls) != 0 {
		t.Errorf("source calls = %v, want none", src.calls)
	}
	if len(sink.states) != 0 {
		t.Errorf("sink got %d updates, want 0", len(sink.states))
	}
}

func TestLoadDoesNotAutoplay(t *testing.T) {
	c, src, _ := newTestController()

	c.Load("https://p.scdn.co/a.mp3")

	s := c.State()
	if s.Phase() != LoadedPaused {
		t.Fatalf("phase = %v, want paused", s.Phase())
	}
	if s.CurrentTime != 0 || s.DurationKnown {
		t.Errorf("state = %+v", s)
	}
	if len(src.calls) != 1 || src.calls[0] != "load:https://p.scdn.co/a.mp3" {
		t.Errorf("calls = %v", src.calls)
	}

	c.Load("")
	if c.State().SourceURL != "https://p.scdn.co/a.mp3" {
		t.Error("empty url should not replace the loaded source")
	}
}

func TestPlayPauseToggle(t *testing.T) {
	c, src, _ := newTestController()
	c.Load("a")

	c.TogglePlay()
	if c.State().Phase() != LoadedPlaying {
		t.Fatalf("phase = %v, want playing", c.State().Phase())
	}
	c.Play()
	c.TogglePlay()
	if c.State().Phase() != LoadedPaused {
		t.Fatalf("phase = %v, want paused", c.State().Phase())
	}
	c.Pause()

	want := []string{"load:a", "play", "pause"}
	if len(src.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", src.calls, want)
	}
	for i := range want {
		if src.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, src.calls[i], want[i])
		}
	}
}

func TestSeekClamps(t *testing.T) {
	tests := []struct {
		name          string
		durationKnown bool
		duration      float64
		seek          float64
		want          float64
	}{
		{"within", true, 30, 12.5, 12.5},
		{"past end", true, 30, 45, 30},
		{"negative", true, 30, -3, 0},
		{"unknown duration passes through", false, 0, 90, 90},
		{"unknown duration floors at zero", false, 0, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, src, _ := newTestController()
			c.Load("a")
			if tt.durationKnown {
				c.HandleUpdate(Update{URL: "a", Duration: tt.duration, DurationKnown: true})
			}
			c.TogglePlay()

			c.Seek(tt.seek)

			if got := c.State().CurrentTime; got != tt.want {
				t.Errorf("CurrentTime = %v, want %v", got, tt.want)
			}
			if src.seekTo != tt.want {
				t.Errorf("source seeked to %v, want %v", src.seekTo, tt.want)
			}
			if !c.State().Playing {
				t.Error("seek should not change Playing")
			}
		})
	}
}

func TestRepeatToggleAndPersistence(t *testing.T) {
	c, src, _ := newTestController()

	c.ToggleRepeat()
	c.ToggleRepeat()
	if c.State().Loop {
		t.Fatal("two toggles should restore Loop")
	}

	c.ToggleRepeat()
	c.Load("a")
	c.Load("b")
	if !c.State().Loop {
		t.Error("Loop should survive Load")
	}
	if !src.loop {
		t.Error("loop flag should be pushed to the source on Load")
	}
}

func TestHandleUpdate(t *testing.T) {
	c, _, sink := newTestController()
	c.Load("a")
	c.Play()

	c.HandleUpdate(Update{URL: "a", Position: 3.2, Duration: 29.9, DurationKnown: true})
	s := c.State()
	if s.CurrentTime != 3.2 || s.Duration != 29.9 || !s.DurationKnown || !s.Playing {
		t.Fatalf("state = %+v", s)
	}

	c.HandleUpdate(Update{URL: "old", Position: 20})
	if c.State().CurrentTime != 3.2 {
		t.Error("update for a replaced source should be ignored")
	}

	c.HandleUpdate(Update{URL: "a", Err: errors.New("decode")})
	if c.State().CurrentTime != 3.2 {
		t.Error("error update should not move position")
	}

	c.HandleUpdate(Update{URL: "a", Position: 29.9, DurationKnown: true, Duration: 29.9, Ended: true})
	if c.State().Playing {
		t.Error("ended should pause")
	}
	if c.State().Loop {
		t.Error("ended should not touch Loop")
	}

	if len(sink.states) == 0 || sink.states[len(sink.states)-1] != c.State() {
		t.Error("sink should hold the latest state")
	}
}

func TestListen(t *testing.T) {
	c, src, _ := newTestController()

	src.updates <- Update{URL: "a", Position: 1}
	msg, ok := c.Listen()().(UpdateMsg)
	if !ok || msg.Update.Position != 1 {
		t.Fatalf("Listen() = %#v", msg)
	}

	_ = c.Close()
	if got := c.Listen()(); got != nil {
		t.Errorf("Listen after close = %#v, want nil", got)
	}

	if NewController(Config{}).Listen() != nil {
		t.Error("Listen without a source should be nil")
	}
}
