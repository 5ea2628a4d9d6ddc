package layer

import (
	"fmt"
	"image"

	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/transition"
)

// ImageSource is a still image held in memory.
type ImageSource struct {
	name string
	img  image.Image
}

func NewImageSource(name string, img image.Image) *ImageSource {
	return &ImageSource{name: name, img: img}
}

func (s *ImageSource) FrameAt(float64) (image.Image, error) { return s.img, nil }
func (s *ImageSource) NativeDuration() (float64, bool)      { return 0, false }
func (s *ImageSource) Name() string                         { return s.name }

// SequenceSource plays scheduled items back to back as a single clip. Inside a
// crossfade window the visible items are mixed by their schedule weights, which
// sum to one, so the clip never dips towards transparency between items.
type SequenceSource struct {
	name  string
	seq   transition.Sequence
	items []Layer
	size  media.Size
}

// NewSequenceSource builds one item layer per scheduled entry, sized to fill the clip.
func NewSequenceSource(name string, sources []Source, seq transition.Sequence, size media.Size) (*SequenceSource, error) {
	if len(sources) == 0 {
		return nil, &media.EmptySequenceError{What: "sequence item"}
	}
	if len(sources) != seq.Len() {
		return nil, fmt.Errorf("%d sources for %d scheduled items", len(sources), seq.Len())
	}

	entries := seq.Entries()
	items := make([]Layer, len(sources))
	for i, src := range sources {
		span := entries[i].Duration
		if i == len(entries)-1 {
			// The held tail shows the last frame of the item.
			span -= seq.Hold()
		}
		items[i] = New(fmt.Sprintf("%s/item-%d", name, i), src).
			WithSize(size).
			WithPosition(TopLeft()).
			WithStart(entries[i].Start).
			WithDuration(span)
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
	}

	return &SequenceSource{name: name, seq: seq, items: items, size: size}, nil
}

func (s *SequenceSource) Name() string                    { return s.name }
func (s *SequenceSource) NativeDuration() (float64, bool) { return s.seq.Duration(), true }
func (s *SequenceSource) Sequence() transition.Sequence   { return s.seq }

// Items returns the per-item layers in playback order.
func (s *SequenceSource) Items() []Layer {
	out := make([]Layer, len(s.items))
	copy(out, s.items)
	return out
}

func (s *SequenceSource) FrameAt(t float64) (image.Image, error) {
	bounds := image.Rect(0, 0, s.size.W, s.size.H)
	out := image.NewRGBA(bounds)

	active := s.seq.At(t)
	if len(active) == 0 {
		return out, nil
	}
	if len(active) == 1 && active[0].Opacity >= 1 {
		if err := drawLayer(out, bounds, s.items[active[0].Index], active[0].Local, 1); err != nil {
			return nil, err
		}
		return out, nil
	}

	// Premultiplied pixels mix linearly.
	acc := make([]float32, len(out.Pix))
	tmp := image.NewRGBA(bounds)
	for _, a := range active {
		if a.Opacity <= 0 {
			continue
		}
		clear(tmp.Pix)
		if err := drawLayer(tmp, bounds, s.items[a.Index], a.Local, 1); err != nil {
			return nil, err
		}
		w := float32(a.Opacity)
		for i, v := range tmp.Pix {
			acc[i] += w * float32(v)
		}
	}
	for i, v := range acc {
		v += 0.5
		if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v)
	}
	return out, nil
}
