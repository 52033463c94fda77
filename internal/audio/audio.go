package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/transport"
)

const (
	defaultSampleRate = beep.SampleRate(44100)
	resampleQuality   = 4
	updateBuffer      = 16
)

var ErrClosed = errors.New("audio player closed")

// Output is the device the decoded audio is mixed into.
type Output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, bufferSize int) error { return speaker.Init(sr, bufferSize) }
func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Clear() { speaker.Clear() }
func (speakerOutput) Lock() { speaker.Lock() }
func (speakerOutput) Unlock() { speaker.Unlock() }

type DecodeFunc func(rc io.ReadCloser) (beep.Streamer, beep.Format, error)

func decodeMP3(rc io.ReadCloser) (beep.Streamer, beep.Format, error) {
	s, format, err := mp3.Decode(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return s, format, nil
}

type Config struct {
	Client     *http.Client
	Timeout    time.Duration
	SampleRate beep.SampleRate
	Interval   time.Duration
	Logger     *zap.Logger

	Output Output
	Decode DecodeFunc
}

// Player plays preview clips through the local speaker. Clips are fully
// decoded into memory so seeking is exact. It implements transport.AudioSource.
type Player struct {
	client   *http.Client
	timeout  time.Duration
	rate     beep.SampleRate
	interval time.Duration
	log      *zap.Logger
	out      Output
	decode   DecodeFunc

	initOnce sync.Once
	initErr  error

	mu          sync.Mutex
	gen         uint64
	cancel      context.CancelFunc
	current     *media
	playing     bool
	loop        bool
	pendingSeek float64

	updates   chan transport.Update
	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg Config) *Player {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	out := cfg.Output
	if out == nil {
		out = speakerOutput{}
	}
	decode := cfg.Decode
	if decode == nil {
		decode = decodeMP3
	}

	p := &Player{
		client:   client,
		timeout:  timeout,
		rate:     rate,
		interval: interval,
		log:      log,
		out:      out,
		decode:   decode,
		updates:  make(chan transport.Update, updateBuffer),
		done:     make(chan struct{}),
	}
	go p.reportLoop()
	return p
}

func (p *Player) Updates() <-chan transport.Update {
	return p.updates
}

// Load starts fetching and decoding url in the background. Any previous clip
// is stopped at once; a slower earlier load finishing later is dropped.
func (p *Player) Load(url string) error {
	if p.isClosed() {
		return ErrClosed
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	p.cancel = cancel
	p.current = nil
	p.playing = false
	p.pendingSeek = 0
	p.mu.Unlock()

	p.out.Clear()

	go p.fetch(ctx, gen, url)
	return nil
}

func (p *Player) fetch(ctx context.Context, gen uint64, url string) {
	buf, err := p.download(ctx, url)
	if err != nil {
		if !p.isCurrent(gen) {
			return
		}
		p.send(transport.Update{URL: url, Err: err})
		return
	}

	if err := p.ensureOutput(); err != nil {
		p.send(transport.Update{URL: url, Err: err})
		return
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.log.Debug("stale audio load dropped", zap.String("url", url))
		return
	}
	m := newMedia(url, buf, p.loop, p.onEnd)
	p.current = m
	seekTo := p.pendingSeek
	playing := p.playing
	p.mu.Unlock()

	p.out.Lock()
	if seekTo > 0 {
		_ = m.seek(seekTo)
	}
	stream := m.attach(!playing, p.rate)
	p.out.Unlock()
	p.out.Play(stream)

	p.log.Debug("audio loaded",
		zap.String("url", url),
		zap.Float64("duration", m.duration()))

	p.send(transport.Update{
		URL:           url,
		Position:      seekTo,
		Duration:      m.duration(),
		DurationKnown: true,
	})
}

func (p *Player) download(ctx context.Context, url string) (*beep.Buffer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("audio fetch returned status %d", resp.StatusCode)
	}

	streamer, format, err := p.decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if closer, ok := streamer.(io.Closer); ok {
		_ = closer.Close()
	}
	_ = resp.Body.Close()

	if buf.Len() == 0 {
		return nil, errors.New("decoded audio is empty")
	}
	return buf, nil
}

func (p *Player) ensureOutput() error {
	p.initOnce.Do(func() {
		p.initErr = p.out.Init(p.rate, p.rate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("failed to open audio output: %w", p.initErr)
	}
	return nil
}

func (p *Player) Play() error {
	if p.isClosed() {
		return ErrClosed
	}

	p.mu.Lock()
	p.playing = true
	m := p.current
	p.mu.Unlock()
	if m == nil {
		return nil
	}

	p.out.Lock()
	restart := m.ended
	if restart {
		_ = m.seek(0)
		m.ended = false
	}
	var stream beep.Streamer
	if restart {
		stream = m.attach(false, p.rate)
	} else {
		m.ctrl.Paused = false
	}
	p.out.Unlock()

	if stream != nil {
		p.out.Play(stream)
	}
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	p.playing = false
	m := p.current
	p.mu.Unlock()
	if m == nil {
		return nil
	}

	p.out.Lock()
	m.ctrl.Paused = true
	p.out.Unlock()
	return nil
}

func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	m := p.current
	if m == nil {
		p.pendingSeek = seconds
		p.mu.Unlock()
		return nil
	}
	playing := p.playing
	p.mu.Unlock()

	p.out.Lock()
	wasEnded := m.ended
	err := m.seek(seconds)
	var stream beep.Streamer
	if wasEnded && err == nil {
		m.ended = false
		stream = m.attach(!playing, p.rate)
	}
	p.out.Unlock()

	if stream != nil {
		p.out.Play(stream)
	}
	return err
}

func (p *Player) SetLoop(loop bool) error {
	p.mu.Lock()
	p.loop = loop
	m := p.current
	p.mu.Unlock()
	if m == nil {
		return nil
	}

	p.out.Lock()
	m.loop = loop
	p.out.Unlock()
	return nil
}

func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		if p.cancel != nil {
			p.cancel()
		}
		p.current = nil
		p.mu.Unlock()
		p.out.Clear()
	})
	return nil
}

func (p *Player) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Player) isCurrent(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.gen
}

// onEnd runs off the audio thread once a non-looping clip runs out.
func (p *Player) onEnd(m *media) {
	p.mu.Lock()
	if p.current != m {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.mu.Unlock()

	p.send(transport.Update{
		URL:           m.url,
		Position:      m.duration(),
		Duration:      m.duration(),
		DurationKnown: true,
		Ended:         true,
	})
}

func (p *Player) send(u transport.Update) {
	select {
	case p.updates <- u:
	case <-p.done:
	}
}

// reportLoop publishes the playing clip's position. Reports are dropped when
// the consumer falls behind.
func (p *Player) reportLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.mu.Lock()
			m := p.current
			playing := p.playing
			p.mu.Unlock()
			if m == nil || !playing {
				continue
			}

			p.out.Lock()
			pos := m.position()
			p.out.Unlock()

			select {
			case p.updates <- transport.Update{
				URL:           m.url,
				Position:      pos,
				Duration:      m.duration(),
				DurationKnown: true,
			}:
			default:
			}
		}
	}
}
