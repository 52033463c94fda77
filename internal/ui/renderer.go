package ui

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/nfnt/resize"

	"karolbroda.com/chromaplay/internal/colors"
)

type cell struct {
	ch   rune
	fg   string
	bg   string
	bold bool
}

type textStyle struct {
	fg   string
	bold bool
	dim  bool
}

// Canvas composes foreground text and art onto the animated background one
// cell at a time, so text picks up the gradient behind it.
type Canvas struct {
	width  int
	height int
	cells  [][]cell
}

func NewCanvas(background [][]string, width int, height int) *Canvas {
	c := &Canvas{width: width, height: height, cells: make([][]cell, height)}
	for y := 0; y < height; y++ {
		row := make([]cell, width)
		for x := range row {
			bg := "#000000"
			if y < len(background) && x < len(background[y]) {
				bg = background[y][x]
			}
			row[x] = cell{ch: ' ', bg: bg}
		}
		c.cells[y] = row
	}
	return c
}

// Text writes s starting at col, clipped to limit columns (or the canvas
// edge when limit <= 0), and returns the number of columns used.
func (c *Canvas) Text(col int, row int, limit int, s string, st textStyle) int {
	if row < 0 || row >= c.height || col >= c.width {
		return 0
	}
	end := c.width
	if limit > 0 && col+limit < end {
		end = col + limit
	}

	x := col
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if w > 1 || x+w > end {
			// wide runes would shift the grid; substitute a narrow mark
			r, w = '?', 1
		}
		if x >= end {
			break
		}
		if x >= 0 {
			cl := &c.cells[row][x]
			cl.ch = r
			cl.bold = st.bold
			cl.fg = st.fg
			if cl.fg == "" {
				cl.fg = colors.TextOn(cl.bg)
				if st.dim {
					cl.fg = colors.BlendColors(cl.fg, cl.bg, 0.45)
				}
			}
		}
		x += w
	}
	return x - col
}

// Fill tints a rectangle towards tint, leaving its text alone.
func (c *Canvas) Fill(col int, row int, width int, height int, tint string, amount float64) {
	for y := row; y < row+height && y < c.height; y++ {
		if y < 0 {
			continue
		}
		for x := col; x < col+width && x < c.width; x++ {
			if x < 0 {
				continue
			}
			c.cells[y][x].bg = colors.BlendColors(c.cells[y][x].bg, tint, amount)
		}
	}
}

// Image draws img as half blocks: each cell shows two vertical pixels.
func (c *Canvas) Image(col int, row int, width int, height int, img image.Image) {
	if img == nil || width < 2 || height < 1 {
		return
	}
	resized := resize.Resize(uint(width), uint(height*2), img, resize.Lanczos3)
	b := resized.Bounds()

	for y := 0; y < height; y++ {
		cy := row + y
		if cy < 0 || cy >= c.height {
			continue
		}
		for x := 0; x < width && x < b.Dx(); x++ {
			cx := col + x
			if cx < 0 || cx >= c.width {
				continue
			}
			top := hexAt(resized, b.Min.X+x, b.Min.Y+y*2)
			bottom := top
			if y*2+1 < b.Dy() {
				bottom = hexAt(resized, b.Min.X+x, b.Min.Y+y*2+1)
			}
			c.cells[cy][cx] = cell{ch: '▀', fg: top, bg: bottom}
		}
	}
}

func hexAt(img image.Image, x int, y int) string {
	r, g, b, _ := img.At(x, y).RGBA()
	return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8)
}

// Lines renders each row, merging neighbouring cells that share a style.
func (c *Canvas) Lines() []string {
	lines := make([]string, c.height)
	for y, row := range c.cells {
		var b strings.Builder
		for i := 0; i < len(row); {
			j := i + 1
			for j < len(row) && sameStyle(row[i], row[j]) {
				j++
			}
			var run strings.Builder
			for _, cl := range row[i:j] {
				run.WriteRune(cl.ch)
			}
			style := lipgloss.NewStyle().Background(lipgloss.Color(row[i].bg))
			if row[i].fg != "" {
				style = style.Foreground(lipgloss.Color(row[i].fg))
			}
			if row[i].bold {
				style = style.Bold(true)
			}
			b.WriteString(style.Render(run.String()))
			i = j
		}
		lines[y] = b.String()
	}
	return lines
}

func sameStyle(a cell, b cell) bool {
	if a.bg != b.bg || a.bold != b.bold {
		return false
	}
	// blanks only show their background
	if a.ch == ' ' && b.ch == ' ' {
		return true
	}
	return a.fg == b.fg
}

// Plain returns the canvas text without styling.
func (c *Canvas) Plain() []string {
	lines := make([]string, c.height)
	for y, row := range c.cells {
		var b strings.Builder
		for _, cl := range row {
			b.WriteRune(cl.ch)
		}
		lines[y] = b.String()
	}
	return lines
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
