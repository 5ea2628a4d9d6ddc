package background

import (
	"image"
	"math"
	"testing"

	"github.com/ivlev/wallpaper2video/internal/media"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{"mandala", Mandala, false},
		{"Gradient", Gradient, false},
		{"", Mandala, false},
		{"plasma", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStyle(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStyle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGradientStops(t *testing.T) {
	bg, err := New(Gradient, media.Size{W: 20, H: 100})
	if err != nil {
		t.Fatal(err)
	}
	img, _ := bg.FrameAt(0)
	rgba := img.(*image.RGBA)

	top := rgba.RGBAAt(10, 0)
	if top != DefaultPalette[0] {
		t.Errorf("top = %v, want %v", top, DefaultPalette[0])
	}
	mid := rgba.RGBAAt(10, 50)
	if mid != DefaultPalette[1] {
		t.Errorf("middle = %v, want %v", mid, DefaultPalette[1])
	}
	bottom := rgba.RGBAAt(10, 99)
	if int(bottom.G) < 130 || bottom.R != 255 {
		t.Errorf("bottom should approach dark orange, got %v", bottom)
	}

	again, _ := bg.FrameAt(7)
	if again != img {
		t.Error("gradient background is static")
	}
}

func TestMandalaRotates(t *testing.T) {
	size := media.Size{W: 120, H: 200}
	bg, err := New(Mandala, size)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bg.NativeDuration(); ok {
		t.Error("procedural background fits any duration")
	}

	a, _ := bg.FrameAt(0)
	b, _ := bg.FrameAt(1)
	if a.Bounds() != image.Rect(0, 0, size.W, size.H) {
		t.Fatalf("frame bounds %v", a.Bounds())
	}

	diff := 0
	pa, pb := a.(*image.RGBA).Pix, b.(*image.RGBA).Pix
	for i := range pa {
		if pa[i] != pb[i] {
			diff++
		}
	}
	if diff == 0 {
		t.Error("mandala frames should change over time")
	}
}

func TestAngle(t *testing.T) {
	for _, tt := range []struct{ t, want float64 }{
		{0, 0},
		{1, 20},
		{18, 0},
		{19.5, 30},
	} {
		if got := Angle(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Angle(%f) = %f, want %f", tt.t, got, tt.want)
		}
	}
}

func TestNewRejects(t *testing.T) {
	if _, err := New("plasma", media.Size{W: 1, H: 1}); err == nil {
		t.Error("unknown style must fail")
	}
	if _, err := New(Gradient, media.Size{}); err == nil {
		t.Error("empty size must fail")
	}
}
