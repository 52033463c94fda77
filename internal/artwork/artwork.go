package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyURL  = errors.New("empty artwork url")
	ErrNoColors  = errors.New("no colors extracted")
	defaultColor = []RGB{
		{R: 0x8B, G: 0xA4, B: 0xE8},
		{R: 0xE8, G: 0xA4, B: 0xC8},
		{R: 0xB8, G: 0xA8, B: 0xE8},
		{R: 0x62, G: 0x72, B: 0xA4},
	}
)

type RGB struct {
	R uint8
	G uint8
	B uint8
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Service extracts an ordered list of dominant colors from an image. Extract
// may block until ctx is done if the image never arrives.
type Service interface {
	Extract(ctx context.Context, imageURL string, count int) ([]RGB, error)
}

type ExtractorConfig struct {
	Client  *http.Client
	Timeout time.Duration
	Logger  *zap.Logger
}

// Extractor is the prominentcolor-backed Service. Concurrent requests for
// the same URL share a single fetch and extraction.
type Extractor struct {
	client   *http.Client
	timeout  time.Duration
	log      *zap.Logger
	group    singleflight.Group
	dominant func(img image.Image, count int) ([]RGB, error)
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Extractor{
		client:   client,
		timeout:  timeout,
		log:      log,
		dominant: Dominant,
	}
}

type extraction struct {
	colors []RGB
	image  image.Image
}

func (e *Extractor) Extract(ctx context.Context, imageURL string, count int) ([]RGB, error) {
	res, err := e.extract(ctx, imageURL, count)
	if err != nil {
		return nil, err
	}
	return res.colors, nil
}

// ExtractWithImage is Extract that also hands back the decoded artwork so
// callers can draw it without fetching twice.
func (e *Extractor) ExtractWithImage(ctx context.Context, imageURL string, count int) ([]RGB, image.Image, error) {
	res, err := e.extract(ctx, imageURL, count)
	if err != nil {
		return nil, nil, err
	}
	return res.colors, res.image, nil
}

func (e *Extractor) extract(ctx context.Context, imageURL string, count int) (*extraction, error) {
	if imageURL == "" {
		return nil, ErrEmptyURL
	}

	key := fmt.Sprintf("%d|%s", count, imageURL)
	ch := e.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		start := time.Now()
		img, err := Fetch(fetchCtx, e.client, imageURL)
		if err != nil {
			return nil, err
		}

		found, err := e.dominant(img, count)
		if err != nil {
			return nil, err
		}

		e.log.Debug("palette extracted",
			zap.String("url", imageURL),
			zap.Int("colors", len(found)),
			zap.Duration("took", time.Since(start)))

		return &extraction{colors: found, image: img}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.(*extraction)
		out := make([]RGB, len(shared.colors))
		copy(out, shared.colors)
		return &extraction{colors: out, image: shared.image}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func Fetch(ctx context.Context, client *http.Client, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, ErrEmptyURL
	}

	if strings.HasPrefix(artworkURL, "file://") {
		path := strings.TrimPrefix(artworkURL, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork image: %w", err)
		}
		return img, nil
	}

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}

	return img, nil
}

// Dominant runs k-means over the image and returns count colors ordered by
// pixel share, most common first.
func Dominant(img image.Image, count int) ([]RGB, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid color count %d", count)
	}

	items, err := prominentcolor.KmeansWithAll(count, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil {
		return nil, fmt.Errorf("kmeans failed: %w", err)
	}

	found := make([]RGB, 0, len(items))
	for _, item := range items {
		found = append(found, RGB{
			R: uint8(item.Color.R),
			G: uint8(item.Color.G),
			B: uint8(item.Color.B),
		})
	}

	return Pad(found, count)
}

// Pad repeats the last color until there are count entries. K-means can
// return fewer clusters than asked for on flat artwork.
func Pad(found []RGB, count int) ([]RGB, error) {
	if len(found) == 0 {
		return nil, ErrNoColors
	}
	out := make([]RGB, count)
	for i := range out {
		if i < len(found) {
			out[i] = found[i]
		} else {
			out[i] = found[len(found)-1]
		}
	}
	return out, nil
}

func DefaultPalette() []RGB {
	out := make([]RGB, len(defaultColor))
	copy(out, defaultColor)
	return out
}

func RenderHalfBlockArt(img image.Image, targetWidth int, targetHeight int) []string {
	if img == nil || targetWidth < 4 || targetHeight < 2 {
		return nil
	}

	resized := resize.Resize(uint(targetWidth), uint(targetHeight*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, targetHeight)

	for y := 0; y < targetHeight; y++ {
		var line strings.Builder
		topY := y * 2
		bottomY := topY + 1

		for x := 0; x < bounds.Dx(); x++ {
			top := resized.At(bounds.Min.X+x, bounds.Min.Y+topY)
			bottom := top
			if bottomY < bounds.Dy() {
				bottom = resized.At(bounds.Min.X+x, bounds.Min.Y+bottomY)
			}

			topR, topG, topB, topA := top.RGBA()
			bottomR, bottomG, bottomB, bottomA := bottom.RGBA()

			if topA>>8 < 128 && bottomA>>8 < 128 {
				line.WriteString(" ")
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", topR>>8, topG>>8, topB>>8))).
				Background(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", bottomR>>8, bottomG>>8, bottomB>>8)))

			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}
