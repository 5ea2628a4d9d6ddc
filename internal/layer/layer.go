package layer

import (
	"fmt"
	"image"
	"math"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// Source is anything that can produce a frame for a given source time.
type Source interface {
	// FrameAt returns the frame shown at source time t (seconds).
	FrameAt(t float64) (image.Image, error)
	// NativeDuration reports the length of the source. Sources without one fit any span.
	NativeDuration() (float64, bool)
	// Name identifies the source in manifests and logs.
	Name() string
}

// AnchorKind selects how a layer position is resolved against the output frame.
type AnchorKind int

const (
	AnchorCenter AnchorKind = iota
	AnchorTopLeft
	AnchorAbsolute
)

// Anchor is a layer position relative to the output frame.
type Anchor struct {
	Kind AnchorKind
	X, Y int
}

// Center places the layer in the middle of the output.
func Center() Anchor { return Anchor{Kind: AnchorCenter} }

// TopLeft pins the layer to the top-left corner.
func TopLeft() Anchor { return Anchor{Kind: AnchorTopLeft} }

// At places the top-left corner of the layer at an absolute pixel offset.
func At(x, y int) Anchor { return Anchor{Kind: AnchorAbsolute, X: x, Y: y} }

// Resolve returns the top-left point of a layer of the given size inside output.
func (a Anchor) Resolve(size, output media.Size) image.Point {
	switch a.Kind {
	case AnchorTopLeft:
		return image.Point{}
	case AnchorAbsolute:
		return image.Point{X: a.X, Y: a.Y}
	default:
		return image.Point{X: (output.W - size.W) / 2, Y: (output.H - size.H) / 2}
	}
}

func (a Anchor) String() string {
	switch a.Kind {
	case AnchorTopLeft:
		return "top-left"
	case AnchorAbsolute:
		return fmt.Sprintf("%d,%d", a.X, a.Y)
	default:
		return "center"
	}
}

// Layer is an immutable visual layer. Every With* call returns a modified copy.
type Layer struct {
	name     string
	source   Source
	size     media.Size
	position Anchor
	opacity  float64
	start    float64
	duration float64
}

// New creates a fully opaque, centred layer starting at zero.
func New(name string, src Source) Layer {
	return Layer{
		name:     name,
		source:   src,
		position: Center(),
		opacity:  1,
	}
}

func (l Layer) WithSize(s media.Size) Layer {
	l.size = s
	return l
}

func (l Layer) WithPosition(a Anchor) Layer {
	l.position = a
	return l
}

func (l Layer) WithOpacity(o float64) Layer {
	l.opacity = o
	return l
}

func (l Layer) WithStart(t float64) Layer {
	l.start = t
	return l
}

func (l Layer) WithDuration(d float64) Layer {
	l.duration = d
	return l
}

func (l Layer) Name() string      { return l.name }
func (l Layer) Source() Source    { return l.source }
func (l Layer) Size() media.Size  { return l.size }
func (l Layer) Position() Anchor  { return l.position }
func (l Layer) Opacity() float64  { return l.opacity }
func (l Layer) Start() float64    { return l.start }
func (l Layer) Duration() float64 { return l.duration }
func (l Layer) End() float64      { return l.start + l.duration }

// Validate checks that the layer can be placed on a composite.
func (l Layer) Validate() error {
	switch {
	case l.source == nil:
		return fmt.Errorf("layer %q has no source", l.name)
	case l.size.W <= 0 || l.size.H <= 0:
		return fmt.Errorf("layer %q has invalid size %s", l.name, l.size)
	case l.opacity < 0 || l.opacity > 1:
		return fmt.Errorf("layer %q opacity %f outside [0,1]", l.name, l.opacity)
	case l.start < 0:
		return fmt.Errorf("layer %q starts before zero", l.name)
	case l.duration <= 0:
		return fmt.Errorf("layer %q has non-positive duration %f", l.name, l.duration)
	}
	return nil
}

// LocalTime converts composite time into layer time. Past its end the layer holds
// its last frame.
func (l Layer) LocalTime(t float64) float64 {
	local := t - l.start
	if local < 0 {
		return 0
	}
	if local > l.duration {
		return l.duration
	}
	return local
}

// SourceTime maps layer-local time onto the source clock. Sources shorter than the
// layer span are looped from the start; longer ones are trimmed to the leading portion.
func (l Layer) SourceTime(local float64) float64 {
	if local < 0 {
		local = 0
	}
	if local > l.duration {
		local = l.duration
	}
	native, ok := l.source.NativeDuration()
	if !ok || native <= 0 || native >= l.duration {
		return local
	}
	m := math.Mod(local, native)
	if m == 0 && local >= l.duration {
		// Ending exactly on a loop boundary holds the end of the clip, not its first frame.
		return native
	}
	return m
}

// Loops reports how many times the source is repeated to fill the layer span.
func (l Layer) Loops() int {
	native, ok := l.source.NativeDuration()
	if !ok || native <= 0 || native >= l.duration {
		return 1
	}
	return int(math.Ceil(l.duration / native))
}
