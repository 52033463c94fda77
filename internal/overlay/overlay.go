package overlay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/state"
	"karolbroda.com/chromaplay/internal/theme"
)

const (
	pageTitle = "chromaplay"

	// BaseCSS sizes the page so the gradient covers the whole viewport.
	BaseCSS = "html, body { margin: 0; height: 100%; } " +
		"body { display: flex; flex-direction: column; justify-content: flex-end; " +
		"padding: 2rem; box-sizing: border-box; color: #fff; " +
		"font-family: sans-serif; text-shadow: 0 1px 4px rgba(0, 0, 0, 0.6); } " +
		"p { margin: 0.2rem 0; }"
)

var ErrNoPath = errors.New("overlay path is empty")

type Config struct {
	Path     string
	Document *theme.Document
	Logger   *zap.Logger
}

// Writer keeps an HTML page in sync with the applied theme and the
// selected track, for use as a browser source in streaming software.
type Writer struct {
	path string
	doc  *theme.Document
	log  *zap.Logger

	mu       sync.Mutex
	writes   int
	lastErr  error
	written  bool
	lastRev  uint64
	lastBody string
}

func New(cfg Config) (*Writer, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	if cfg.Document == nil {
		return nil, errors.New("overlay needs a document")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create overlay directory: %w", err)
	}

	cfg.Document.AddStyle(BaseCSS)
	return &Writer{path: cfg.Path, doc: cfg.Document, log: log}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Attach writes the current page and rewrites it whenever the theme or the
// selection changes.
func (w *Writer) Attach(store *state.Store) error {
	store.Subscribe(w.onChange)
	return w.Write(store.Snapshot())
}

func (w *Writer) onChange(field state.Field, snap state.Snapshot) {
	switch field {
	case state.FieldTheme, state.FieldSelected:
	default:
		return
	}
	if err := w.Write(snap); err != nil {
		w.log.Warn("failed to write overlay",
			zap.String("path", w.path),
			zap.String("field", field.String()),
			zap.Error(err))
	}
}

// Write renders the page for snap. It is skipped when neither the document
// nor the track lines changed since the last successful write.
func (w *Writer) Write(snap state.Snapshot) error {
	lines := body(snap)
	rev := w.doc.Revision()
	joined := strings.Join(lines, "\n")

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written && rev == w.lastRev && joined == w.lastBody {
		return nil
	}

	err := writeAtomic(w.path, []byte(w.doc.HTML(pageTitle, lines)))
	w.lastErr = err
	if err == nil {
		w.writes++
		w.written = true
		w.lastRev = rev
		w.lastBody = joined
	}
	return err
}

// Writes is the number of successful page writes.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func (w *Writer) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func body(snap state.Snapshot) []string {
	t := snap.Selected
	if t == nil {
		return nil
	}
	lines := []string{t.Name}
	if artists := t.ArtistLine(); artists != "" {
		lines = append(lines, artists)
	}
	if t.Album != "" {
		lines = append(lines, t.Album)
	}
	return lines
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
