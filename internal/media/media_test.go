package media

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"wall.mp4", Motion},
		{"WALL.MOV", Motion},
		{"clips/a.avi", Motion},
		{"b.MkV", Motion},
		{"c.png", Still},
		{"d.jpeg", Still},
		{"e.gif", Still},
		{"noext", Still},
		{"video.mp4.png", Still},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := KindOf(tt.path); got != tt.want {
				t.Errorf("KindOf(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestCentered(t *testing.T) {
	r := Centered(Size{W: 720, H: 1280}, Size{W: 1080, H: 1920})
	if r.X != 180 || r.Y != 320 || r.W != 720 || r.H != 1280 {
		t.Errorf("unexpected rect %+v", r)
	}
	if !r.Within(Size{W: 1080, H: 1920}) {
		t.Error("centred rect should be within the output")
	}
	if (Rect{X: 500, Y: 0, W: 720, H: 100}).Within(Size{W: 1080, H: 1920}) {
		t.Error("overflowing rect reported as within")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	var err error = fmt.Errorf("scene 1: %w", &UnsupportedAssetError{Path: "a.mp4", Err: os.ErrNotExist})

	var ua *UnsupportedAssetError
	if !errors.As(err, &ua) {
		t.Fatal("expected UnsupportedAssetError")
	}
	if ua.Path != "a.mp4" {
		t.Errorf("path = %q", ua.Path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("cause should be reachable through Unwrap")
	}

	var es *EmptySequenceError
	if errors.As(err, &es) {
		t.Error("asset error must not match EmptySequenceError")
	}
}
