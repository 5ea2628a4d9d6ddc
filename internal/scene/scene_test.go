package scene

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/overlay"
	"github.com/ivlev/wallpaper2video/internal/source"
)

type fakeInspector map[string]float64

func (f fakeInspector) Duration(path string) (float64, error) {
	if d, ok := f[path]; ok {
		return d, nil
	}
	return 0, errors.New("unreadable clip")
}

func testComposition() config.Composition {
	c := config.DefaultComposition()
	c.OutputSize = media.Size{W: 216, H: 384}
	c.ContentArea = media.Centered(media.Size{W: 144, H: 256}, c.OutputSize)
	c.BackgroundStyle = "gradient"
	c.FPS = 10
	return c
}

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func stills(t *testing.T, dir string, colors ...color.RGBA) []string {
	t.Helper()
	var paths []string
	for i, c := range colors {
		img := image.NewRGBA(image.Rect(0, 0, 9, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 9; x++ {
				img.SetRGBA(x, y, c)
			}
		}
		p := filepath.Join(dir, string(rune('a'+i))+".png")
		writeImage(t, p, img)
		paths = append(paths, p)
	}
	return paths
}

func narrationClip(t *testing.T, dir string, d float64) media.NarrationClip {
	t.Helper()
	p := filepath.Join(dir, "narration.mp3")
	if err := os.WriteFile(p, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	return media.NarrationClip{Path: p, Duration: d}
}

func newAssembler(t *testing.T, c config.Composition, p fakeInspector) *Assembler {
	t.Helper()
	a, err := NewAssembler(c, source.NewResolver(p))
	if err != nil {
		t.Fatal(err)
	}
	return a
}

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func TestScenarioVisualsDominate(t *testing.T) {
	dir := t.TempDir()
	a := newAssembler(t, testComposition(), nil)

	s, err := a.AssembleScene(stills(t, dir, red, green, blue), narrationClip(t, dir, 9), "", BackgroundSpec{}, 4)
	if err != nil {
		t.Fatalf("AssembleScene failed: %v", err)
	}

	if s.Plan.PerItemDuration != 4 || s.Duration() != 12 {
		t.Errorf("plan = %+v", s.Plan)
	}
	if math.Abs(s.Padding-1) > media.Tolerance {
		t.Errorf("padding = %f, want 1 (two crossfade windows)", s.Padding)
	}
	if math.Abs(s.Sequence.Duration()-12) > media.Tolerance {
		t.Errorf("content sequence = %f, want 12", s.Sequence.Duration())
	}
	if s.Composite.Duration() != 12 {
		t.Errorf("composite = %f, want 12", s.Composite.Duration())
	}

	names := []string{}
	for _, l := range s.Composite.Layers() {
		names = append(names, l.Name())
		if l.Duration() != 12 {
			t.Errorf("layer %s lasts %f, want 12", l.Name(), l.Duration())
		}
	}
	if len(names) != 3 || names[0] != "background" || names[1] != "content" || names[2] != "frame" {
		t.Errorf("layer order = %v", names)
	}

	// During the held second the last item is fully visible inside the screen.
	frame, err := s.Composite.FrameAt(11.4)
	if err != nil {
		t.Fatal(err)
	}
	centre := frame.RGBAAt(108, 192)
	if centre.B < 250 || centre.R > 5 || centre.G > 5 {
		t.Errorf("expected last item at 11.4s, got %v", centre)
	}
}

func TestScenarioNarrationDominates(t *testing.T) {
	dir := t.TempDir()
	a := newAssembler(t, testComposition(), nil)

	s, err := a.AssembleScene(stills(t, dir, red, blue), narrationClip(t, dir, 20), "", BackgroundSpec{Style: "mandala"}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Plan.PerItemDuration-10) > 1e-9 || s.Duration() != 20 {
		t.Errorf("plan = %+v", s.Plan)
	}
	if !s.Plan.Stretched() {
		t.Error("plan should be stretched")
	}
	if math.Abs(s.Padding-0.5) > media.Tolerance {
		t.Errorf("padding = %f, want 0.5", s.Padding)
	}
	if s.Composite.Duration() < s.Narration.Duration {
		t.Error("visuals must cover narration")
	}
}

func TestSingleItemNeedsNoPadding(t *testing.T) {
	dir := t.TempDir()
	a := newAssembler(t, testComposition(), nil)

	s, err := a.AssembleScene(stills(t, dir, red), narrationClip(t, dir, 3), "", BackgroundSpec{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if s.Padding != 0 || s.Sequence.Duration() != 4 {
		t.Errorf("single item: padding %f, sequence %f", s.Padding, s.Sequence.Duration())
	}
}

func TestMotionClipIsLoopedToItemSpan(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "loop.mp4")
	a := newAssembler(t, testComposition(), fakeInspector{clip: 1.5})

	s, err := a.AssembleScene([]string{clip}, narrationClip(t, dir, 0), "", BackgroundSpec{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if s.Assets[0].Kind != media.Motion {
		t.Fatalf("asset kind = %s", s.Assets[0].Kind)
	}
	if d, _ := s.Assets[0].Duration(); d != 1.5 {
		t.Errorf("native duration = %f", d)
	}
}

func TestAssembleErrors(t *testing.T) {
	dir := t.TempDir()
	paths := stills(t, dir, red, blue)
	narration := narrationClip(t, dir, 5)

	a := newAssembler(t, testComposition(), fakeInspector{})

	_, err := a.AssembleScene(nil, narration, "", BackgroundSpec{}, 4)
	var empty *media.EmptySequenceError
	if !errors.As(err, &empty) {
		t.Errorf("empty assets: got %v", err)
	}

	_, err = a.AssembleScene(append(paths, filepath.Join(dir, "broken.mov")), narration, "", BackgroundSpec{}, 4)
	var unsupported *media.UnsupportedAssetError
	if !errors.As(err, &unsupported) {
		t.Errorf("unreadable clip: got %v", err)
	}

	_, err = a.AssembleScene(paths, media.NarrationClip{Path: filepath.Join(dir, "none.mp3"), Duration: 5}, "", BackgroundSpec{}, 4)
	var unavailable *media.NarrationUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("missing narration: got %v", err)
	}

	_, err = a.AssembleScene(paths, narration, filepath.Join(dir, "nomockup.png"), BackgroundSpec{}, 4)
	if !errors.As(err, &unsupported) {
		t.Errorf("missing overlay: got %v", err)
	}

	_, err = a.AssembleScene(paths, narration, "", BackgroundSpec{Style: "plasma"}, 4)
	if err == nil {
		t.Error("unknown background style must fail")
	}
}

func TestMissingStillSurfacesWhenRendered(t *testing.T) {
	dir := t.TempDir()
	a := newAssembler(t, testComposition(), nil)

	missing := filepath.Join(dir, "gone.jpg")
	s, err := a.AssembleScene([]string{missing}, narrationClip(t, dir, 2), "", BackgroundSpec{}, 4)
	if err != nil {
		t.Fatalf("still existence is checked lazily: %v", err)
	}

	_, err = s.Composite.FrameAt(1)
	var unsupported *media.UnsupportedAssetError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedAssetError when rendering, got %v", err)
	}
}

func TestDetectedContentArea(t *testing.T) {
	dir := t.TempDir()
	c := testComposition()
	c.DetectContentArea = true

	screen := media.Rect{X: 20, Y: 40, W: 176, H: 300}
	mockup, err := overlay.PhoneMockup(c.OutputSize, screen)
	if err != nil {
		t.Fatal(err)
	}
	mockupPath := filepath.Join(dir, "mockup.png")
	writeImage(t, mockupPath, mockup)

	a := newAssembler(t, c, nil)
	s, err := a.AssembleScene(stills(t, dir, red), narrationClip(t, dir, 1), mockupPath, BackgroundSpec{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if s.ContentArea != screen {
		t.Errorf("content area = %+v, want %+v", s.ContentArea, screen)
	}
	if r := s.Composite.Placements()[1].Rect; r != image.Rect(20, 40, 196, 340) {
		t.Errorf("content placed at %v", r)
	}
}

func TestNewAssemblerValidates(t *testing.T) {
	c := testComposition()
	c.ContentArea.W = 1000
	if _, err := NewAssembler(c, nil); err == nil {
		t.Error("content area outside output must be rejected")
	}
}
