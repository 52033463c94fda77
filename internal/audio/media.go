package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// media is one decoded clip. Fields other than url and buffer belong to the
// audio thread and are only touched with the output locked.
type media struct {
	url    string
	buffer *beep.Buffer
	seeker beep.StreamSeeker
	ctrl   *beep.Ctrl
	loop   bool
	ended  bool
	onEnd  func(*media)
}

func newMedia(url string, buf *beep.Buffer, loop bool, onEnd func(*media)) *media {
	return &media{
		url:    url,
		buffer: buf,
		seeker: buf.Streamer(0, buf.Len()),
		loop:   loop,
		onEnd:  onEnd,
	}
}

// attach builds a fresh control and resampling chain for the mixer. A
// control still in the mixer from an earlier attach is cut loose so only
// one chain reads the seeker.
func (m *media) attach(paused bool, rate beep.SampleRate) beep.Streamer {
	if m.ctrl != nil {
		m.ctrl.Streamer = nil
	}
	m.ctrl = &beep.Ctrl{Streamer: m, Paused: paused}
	if m.buffer.Format().SampleRate == rate {
		return m.ctrl
	}
	return beep.Resample(resampleQuality, m.buffer.Format().SampleRate, rate, m.ctrl)
}

func (m *media) Stream(samples [][2]float64) (int, bool) {
	if m.ended {
		return 0, false
	}

	filled := 0
	for filled < len(samples) {
		n, ok := m.seeker.Stream(samples[filled:])
		filled += n
		if ok && n > 0 {
			continue
		}

		if !m.loop {
			m.ended = true
			if m.onEnd != nil {
				go m.onEnd(m)
			}
			return filled, filled > 0
		}
		if err := m.seeker.Seek(0); err != nil || m.seeker.Len() == 0 {
			return filled, filled > 0
		}
	}
	return filled, true
}

func (m *media) Err() error {
	return m.seeker.Err()
}

func (m *media) seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	pos := m.buffer.Format().SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if last := m.seeker.Len() - 1; pos > last {
		pos = last
	}
	if pos < 0 {
		pos = 0
	}
	return m.seeker.Seek(pos)
}

func (m *media) position() float64 {
	return m.buffer.Format().SampleRate.D(m.seeker.Position()).Seconds()
}

func (m *media) duration() float64 {
	return m.buffer.Format().SampleRate.D(m.buffer.Len()).Seconds()
}
