package artwork

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fixedDominant(colors ...RGB) func(image.Image, int) ([]RGB, error) {
	return func(_ image.Image, count int) ([]RGB, error) {
		return Pad(colors, count)
	}
}

func TestRGBHex(t *testing.T) {
	if got := (RGB{R: 0x0A, G: 0xFF, B: 0x80}).Hex(); got != "#0AFF80" {
		t.Errorf("Hex() = %s", got)
	}
}

func TestPad(t *testing.T) {
	got, err := Pad([]RGB{{R: 1}, {R: 2}}, 4)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}
	want := []RGB{{R: 1}, {R: 2}, {R: 2}, {R: 2}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pad()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	trimmed, err := Pad([]RGB{{R: 1}, {R: 2}, {R: 3}, {R: 4}, {R: 5}}, 4)
	if err != nil || len(trimmed) != 4 || trimmed[3].R != 4 {
		t.Errorf("Pad() should trim to count, got %v, %v", trimmed, err)
	}

	if _, err := Pad(nil, 4); !errors.Is(err, ErrNoColors) {
		t.Errorf("Pad(nil) err = %v, want ErrNoColors", err)
	}
}

func TestFetchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, solidPNG(t, color.RGBA{R: 200, A: 255}), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Fetch(context.Background(), nil, "file://"+path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("width = %d, want 16", img.Bounds().Dx())
	}
}

func TestFetchHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL+"/a.png"); err == nil {
		t.Fatal("expected error for 404 artwork")
	}
}

func TestExtractEmptyURL(t *testing.T) {
	e := NewExtractor(ExtractorConfig{})
	if _, err := e.Extract(context.Background(), "", 4); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("err = %v, want ErrEmptyURL", err)
	}
}

func TestExtractReturnsRequestedCount(t *testing.T) {
	body := solidPNG(t, color.RGBA{G: 180, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	e := NewExtractor(ExtractorConfig{Client: srv.Client()})
	e.dominant = fixedDominant(RGB{G: 180}, RGB{R: 10})

	got, img, err := e.ExtractWithImage(context.Background(), srv.URL+"/cover.png", 4)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0] != (RGB{G: 180}) || got[3] != (RGB{R: 10}) {
		t.Errorf("colors = %v", got)
	}
	if img == nil {
		t.Error("expected decoded image")
	}
}

func TestExtractSharesConcurrentRequests(t *testing.T) {
	body := solidPNG(t, color.RGBA{B: 255, A: 255})
	var hits atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	e := NewExtractor(ExtractorConfig{Client: srv.Client(), Timeout: 5 * time.Second})
	e.dominant = fixedDominant(RGB{B: 255})

	url := srv.URL + "/shared.png"
	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.Extract(context.Background(), url, 4)
		errs <- err
	}()

	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.Extract(context.Background(), url, 4)
		errs <- err
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Extract: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestExtractHonoursCallerContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	e := NewExtractor(ExtractorConfig{Client: srv.Client(), Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := e.Extract(ctx, srv.URL+"/stuck.png", 4); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRenderHalfBlockArt(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	lines := RenderHalfBlockArt(img, 6, 3)
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if RenderHalfBlockArt(nil, 6, 3) != nil {
		t.Error("nil image should render nothing")
	}
}
