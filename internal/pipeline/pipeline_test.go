package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/narration"
	"github.com/ivlev/wallpaper2video/internal/script"
)

type fakeProvider struct {
	dir       string
	durations map[string]float64
	err       error

	mu    sync.Mutex
	texts map[string]string
}

func (f *fakeProvider) Synthesize(ctx context.Context, req narration.Request) (media.NarrationClip, error) {
	if f.err != nil {
		return media.NarrationClip{}, &media.NarrationUnavailableError{Path: req.Key, Err: f.err}
	}
	path := filepath.Join(f.dir, req.Key+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return media.NarrationClip{}, err
	}
	f.mu.Lock()
	if f.texts == nil {
		f.texts = make(map[string]string)
	}
	f.texts[req.Key] = req.Text
	f.mu.Unlock()
	return media.NarrationClip{Path: path, Duration: f.durations[req.Key]}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeInspector map[string]float64

func (f fakeInspector) Duration(path string) (float64, error) {
	if d, ok := f[filepath.Base(path)]; ok {
		return d, nil
	}
	return 0, errors.New("unreadable")
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Composition.OutputSize = media.Size{W: 360, H: 640}
	cfg.Composition.ContentArea = media.Centered(media.Size{W: 240, H: 426}, cfg.Composition.OutputSize)
	cfg.Composition.BackgroundStyle = "gradient"
	cfg.Composition.FPS = 10
	cfg.Narration.Provider = "file"
	cfg.Paths.Assets = t.TempDir()
	cfg.Paths.Output = filepath.Join(t.TempDir(), "output")
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Workers = 2
	return cfg
}

func wallpapers(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 9, 16))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+3] = uint8(40*i), 255
		}
		path := filepath.Join(dir, fmt.Sprintf("wallpaper_%d.png", i))
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, path)
	}
	return paths
}

func TestBuildTimeline(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Paths.Assets, DefaultMusicFile), []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	provider := &fakeProvider{dir: t.TempDir(), durations: map[string]float64{script.Showcase: 14, script.Install: 3}}
	p, err := New(cfg, provider, fakeInspector{DefaultMusicFile: 5})
	if err != nil {
		t.Fatal(err)
	}

	req := Request{Assets: wallpapers(t, 3), Deity: "Ganesha", Language: "hi", CustomText: "Free today."}
	tl, cleanup, err := p.BuildTimeline(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if tl.Len() != 2 {
		t.Fatalf("expected showcase and install scenes, got %d", tl.Len())
	}
	if math.Abs(tl.Duration()-18) > media.Tolerance {
		t.Errorf("duration = %f, want 18 (14s showcase + 4s install)", tl.Duration())
	}
	showcase := tl.Scenes()[0].Scene
	if !showcase.Plan.Stretched() || math.Abs(showcase.Plan.PerItemDuration-14.0/3) > media.Tolerance {
		t.Errorf("showcase should be stretched over narration: %+v", showcase.Plan)
	}

	bed, ok := tl.Background()
	if !ok || bed.Loops != 4 || bed.VolumeScale != 0.2 {
		t.Errorf("unexpected bed: %+v (ok=%v)", bed, ok)
	}

	if provider.calls() != 2 || !strings.Contains(provider.texts[script.Showcase], "Ganesha") {
		t.Errorf("scripts not voiced: %v", provider.texts)
	}

	if got := p.OutputPath(req); got != filepath.Join(cfg.Paths.Output, "ganesha_hi_ad.mp4") {
		t.Errorf("output path = %s", got)
	}
}

func TestBuildTimelinePresynthesizedNarration(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	clips := map[string]media.NarrationClip{}
	for key, d := range map[string]float64{script.Showcase: 5, script.Install: 2} {
		path := filepath.Join(dir, key+".wav")
		if err := os.WriteFile(path, []byte("wav"), 0o644); err != nil {
			t.Fatal(err)
		}
		clips[key] = media.NarrationClip{Path: path, Duration: d}
	}

	provider := &fakeProvider{dir: t.TempDir()}
	p, err := New(cfg, provider, fakeInspector{})
	if err != nil {
		t.Fatal(err)
	}
	tl, cleanup, err := p.BuildTimeline(context.Background(), Request{
		Assets:          wallpapers(t, 2),
		Deity:           "Shiva",
		Language:        "en",
		PerItemDuration: 3,
		Narration:       clips,
		NoMusic:         true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if provider.calls() != 0 {
		t.Errorf("provider should not be called, got %d calls", provider.calls())
	}
	if _, ok := tl.Background(); ok {
		t.Error("music was disabled")
	}
	// 2 items at 3s beat the 5s narration; the install scene uses the 4s default.
	if math.Abs(tl.Duration()-10) > media.Tolerance {
		t.Errorf("duration = %f, want 10", tl.Duration())
	}
}

func TestBuildTimelineErrors(t *testing.T) {
	wp := wallpapers(t, 1)

	tests := []struct {
		name      string
		req       Request
		provider  *fakeProvider
		inspector fakeInspector
		check     func(error) bool
	}{
		{
			name:  "no assets",
			req:   Request{Deity: "Ganesha", Language: "en"},
			check: func(err error) bool { var e *media.EmptySequenceError; return errors.As(err, &e) },
		},
		{
			name:  "bad asset",
			req:   Request{Assets: []string{"/nope/missing.png"}, Deity: "Ganesha", Language: "en"},
			check: func(err error) bool { var e *media.UnsupportedAssetError; return errors.As(err, &e) },
		},
		{
			name:     "narration fails",
			req:      Request{Assets: wp, Deity: "Ganesha", Language: "en"},
			provider: &fakeProvider{err: errors.New("quota exceeded")},
			check:    func(err error) bool { var e *media.NarrationUnavailableError; return errors.As(err, &e) },
		},
		{
			name:  "explicit music unreadable",
			req:   Request{Assets: wp, Deity: "Ganesha", Language: "en", BackgroundAudio: "/music/bed.mp3"},
			check: func(err error) bool { var e *media.UnsupportedAssetError; return errors.As(err, &e) },
		},
		{
			name:  "missing deity",
			req:   Request{Assets: wp, Language: "en"},
			check: func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := tt.provider
			if provider == nil {
				provider = &fakeProvider{durations: map[string]float64{script.Showcase: 3, script.Install: 2}}
			}
			provider.dir = t.TempDir()
			p, err := New(testConfig(t), provider, tt.inspector)
			if err != nil {
				t.Fatal(err)
			}
			_, cleanup, err := p.BuildTimeline(context.Background(), tt.req)
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if cleanup != nil {
				t.Error("failed build must not hand out a cleanup func")
			}
		})
	}
}

func TestBuildTimelineCleanup(t *testing.T) {
	cfg := testConfig(t)
	provider := &fakeProvider{dir: t.TempDir(), durations: map[string]float64{script.Showcase: 3, script.Install: 2}}
	p, err := New(cfg, provider, fakeInspector{})
	if err != nil {
		t.Fatal(err)
	}

	_, cleanup, err := p.BuildTimeline(context.Background(), Request{Assets: wallpapers(t, 2), Deity: "Shiva", Language: "en", NoMusic: true})
	if err != nil {
		t.Fatal(err)
	}
	work, _ := os.ReadDir(cfg.Paths.WorkDir)
	if len(work) != 1 {
		t.Fatalf("expected one request directory, got %d", len(work))
	}
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}
	if work, _ := os.ReadDir(cfg.Paths.WorkDir); len(work) != 0 {
		t.Errorf("request directory left behind: %v", work)
	}
	if voiced, _ := os.ReadDir(provider.dir); len(voiced) != 0 {
		t.Errorf("synthesized narration left behind: %v", voiced)
	}

	// A failed build removes its files itself.
	_, _, err = p.BuildTimeline(context.Background(), Request{Assets: wallpapers(t, 1), Deity: "Shiva", Language: "en", BackgroundAudio: "/music/none.mp3"})
	if err == nil {
		t.Fatal("expected error")
	}
	if work, _ := os.ReadDir(cfg.Paths.WorkDir); len(work) != 0 {
		t.Errorf("failed build left %v", work)
	}
}

func TestComposition(t *testing.T) {
	p, err := New(testConfig(t), &fakeProvider{}, fakeInspector{})
	if err != nil {
		t.Fatal(err)
	}
	comp := p.Composition(Request{OutputSize: media.Size{W: 720, H: 1280}})
	if comp.ContentArea != (media.Rect{X: 120, Y: 213, W: 480, H: 853}) {
		t.Errorf("content area = %+v", comp.ContentArea)
	}
	if comp := p.Composition(Request{}); comp.OutputSize != (media.Size{W: 360, H: 640}) {
		t.Errorf("default output = %s", comp.OutputSize)
	}
}

func TestDescribe(t *testing.T) {
	errs := []error{
		&media.EmptySequenceError{What: "asset"},
		fmt.Errorf("showcase scene: %w", &media.UnsupportedAssetError{Path: "a.bmp"}),
		&media.NarrationUnavailableError{Path: "n.mp3", Err: errors.New("missing")},
		&media.TimingInconsistencyError{What: "x", Expected: 1, Actual: 2},
		errors.New("disk full"),
	}
	seen := map[string]bool{}
	for _, err := range errs {
		msg := Describe(err)
		if msg == "" || seen[msg] {
			t.Errorf("message for %v is empty or repeated: %q", err, msg)
		}
		seen[msg] = true
	}
	if !strings.Contains(Describe(errs[1]), "a.bmp") {
		t.Error("unsupported asset message should name the file")
	}
	if Describe(nil) != "" {
		t.Error("nil error should describe as empty")
	}
}

func TestSlug(t *testing.T) {
	for in, want := range map[string]string{"Lord Ganesha": "lord_ganesha", "  Shiva-Ji ": "shiva_ji", "गणेश": "ad"} {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
