package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind tells a still image apart from a motion clip.
type Kind int

const (
	Still Kind = iota
	Motion
)

func (k Kind) String() string {
	if k == Motion {
		return "motion"
	}
	return "still"
}

// MotionExtensions is the fixed set of extensions classified as motion clips.
var MotionExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// KindOf classifies a path by its extension, case-insensitively.
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	for _, m := range MotionExtensions {
		if ext == m {
			return Motion
		}
	}
	return Still
}

// Asset is a resolved media reference. Kind is decided once at resolution time.
type Asset struct {
	Path           string
	Kind           Kind
	NativeDuration *float64 // nil for stills
}

// Duration returns the native duration of a motion clip.
func (a Asset) Duration() (float64, bool) {
	if a.NativeDuration == nil {
		return 0, false
	}
	return *a.NativeDuration, true
}

func (a Asset) String() string {
	if d, ok := a.Duration(); ok {
		return fmt.Sprintf("%s(%s, %.3fs)", a.Kind, filepath.Base(a.Path), d)
	}
	return fmt.Sprintf("%s(%s)", a.Kind, filepath.Base(a.Path))
}

// NarrationClip is rendered narration audio produced outside the core.
type NarrationClip struct {
	Path     string  `yaml:"path"`
	Duration float64 `yaml:"duration"`
}

// Size is a width/height pair in pixels.
type Size struct {
	W int `yaml:"w" mapstructure:"w" validate:"gt=0"`
	H int `yaml:"h" mapstructure:"h" validate:"gt=0"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Rect is a sub-rectangle of the output frame.
type Rect struct {
	X int `yaml:"x" mapstructure:"x" validate:"gte=0"`
	Y int `yaml:"y" mapstructure:"y" validate:"gte=0"`
	W int `yaml:"w" mapstructure:"w" validate:"gt=0"`
	H int `yaml:"h" mapstructure:"h" validate:"gt=0"`
}

func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

// Within reports whether r lies entirely inside an area of the given size.
func (r Rect) Within(s Size) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.W <= s.W && r.Y+r.H <= s.H
}

// Centered returns a rect of the given size centred inside outer.
func Centered(inner, outer Size) Rect {
	return Rect{
		X: (outer.W - inner.W) / 2,
		Y: (outer.H - inner.H) / 2,
		W: inner.W,
		H: inner.H,
	}
}
