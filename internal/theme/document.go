package theme

import (
	"fmt"
	"html"
	"strings"
	"sync"
)

// Applier splices a theme into whatever surface displays it.
type Applier interface {
	Apply(t Theme)
}

// Document models the styled page the theme is applied to: one inline style
// on the root element and a style sheet that may carry blocks from other
// owners. Apply replaces the inline style and swaps the keyframe block it
// injected last time, so at most one of its blocks is ever present.
type Document struct {
	mu       sync.RWMutex
	inline   string
	sheet    []string
	injected int
	current  *Theme
	revision uint64
}

func NewDocument() *Document {
	return &Document{injected: -1}
}

func (d *Document) Apply(t Theme) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inline = t.BackgroundStyle

	if d.injected >= 0 && d.injected < len(d.sheet) {
		d.sheet = append(d.sheet[:d.injected], d.sheet[d.injected+1:]...)
	}
	d.sheet = append(d.sheet, t.KeyframesCSS)
	d.injected = len(d.sheet) - 1

	applied := t
	d.current = &applied
	d.revision++
}

// AddStyle appends a block the document does not manage, e.g. base page rules.
func (d *Document) AddStyle(css string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.injected >= 0 {
		// keep the managed block last so removal stays index based
		block := d.sheet[d.injected]
		d.sheet = append(d.sheet[:d.injected], css, block)
		d.injected = len(d.sheet) - 1
	} else {
		d.sheet = append(d.sheet, css)
	}
	d.revision++
}

func (d *Document) InlineStyle() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.inline
}

func (d *Document) StyleSheet() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.sheet))
	copy(out, d.sheet)
	return out
}

func (d *Document) Current() (Theme, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return Theme{}, false
	}
	return *d.current, true
}

func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// HTML renders the document as a standalone page, with body as the root
// element's escaped text content.
func (d *Document) HTML(title string, body []string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	for _, block := range d.sheet {
		fmt.Fprintf(&b, "<style>%s</style>\n", block)
	}
	b.WriteString("</head>\n")
	fmt.Fprintf(&b, "<body style=\"%s\">\n", html.EscapeString(d.inline))
	for _, line := range body {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(line))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
