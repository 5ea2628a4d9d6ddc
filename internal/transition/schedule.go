package transition

import (
	"fmt"
	"math"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// DefaultWindow is the crossfade window used when none is configured.
const DefaultWindow = 0.5

// Spec describes the fades of one item and its overlaps with its neighbours.
type Spec struct {
	ItemIndex       int     `yaml:"item"`
	FadeIn          float64 `yaml:"fade_in"`
	FadeOut         float64 `yaml:"fade_out"`
	OverlapWithPrev float64 `yaml:"overlap_with_prev"`
	OverlapWithNext float64 `yaml:"overlap_with_next"`
}

// Entry places one item on the continuous sequence clock.
type Entry struct {
	Spec `yaml:",inline"`

	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
}

// End is the sequence time at which the entry stops being visible.
func (e Entry) End() float64 {
	return e.Start + e.Duration
}

// OpacityAt returns the blend weight of the entry at local time t (0 is the entry start).
// Ramps are linear. The head ramp covers the fade-in and the overlap with the previous
// item, the tail ramp the fade-out and the overlap with the next one, so inside a
// crossfade the outgoing weight is 1-w while the incoming one is w.
func (e Entry) OpacityAt(t float64) float64 {
	if t < 0 || t > e.Duration {
		return 0
	}
	alpha := 1.0
	if head := math.Max(e.FadeIn, e.OverlapWithPrev); head > 0 && t < head {
		alpha = math.Min(alpha, t/head)
	}
	if tail := math.Max(e.FadeOut, e.OverlapWithNext); tail > 0 && t > e.Duration-tail {
		alpha = math.Min(alpha, (e.Duration-t)/tail)
	}
	return clamp01(alpha)
}

// Sequence is a set of items joined into one continuous clip.
type Sequence struct {
	entries  []Entry
	window   float64
	duration float64
	hold     float64
}

// Entries returns a copy of the scheduled entries.
func (s Sequence) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len is the number of scheduled items.
func (s Sequence) Len() int { return len(s.entries) }

// Window is the effective crossfade window after clamping.
func (s Sequence) Window() float64 { return s.window }

// Duration is the total length of the continuous clip.
func (s Sequence) Duration() float64 { return s.duration }

// Hold is the time appended to the last item by Extend.
func (s Sequence) Hold() float64 { return s.hold }

// Active is an entry visible at a given sequence time, with its local time and alpha.
type Active struct {
	Index   int
	Local   float64
	Opacity float64
}

// At lists the entries visible at sequence time t in playback order.
func (s Sequence) At(t float64) []Active {
	var out []Active
	last := len(s.entries) - 1
	for i, e := range s.entries {
		if t < e.Start {
			continue
		}
		if t > e.End() || (t == e.End() && i != last) {
			continue
		}
		local := t - e.Start
		out = append(out, Active{Index: i, Local: local, Opacity: e.OpacityAt(local)})
	}
	return out
}

// Extend returns a copy of the sequence whose last item is held for extra seconds.
// The fade-out of the last item moves to the new end.
func (s Sequence) Extend(extra float64) (Sequence, error) {
	if extra < 0 {
		return Sequence{}, fmt.Errorf("cannot extend sequence by a negative duration %f", extra)
	}
	if len(s.entries) == 0 {
		return Sequence{}, &media.EmptySequenceError{What: "scheduled item"}
	}
	out := Sequence{
		entries:  s.Entries(),
		window:   s.window,
		duration: s.duration + extra,
		hold:     s.hold + extra,
	}
	out.entries[len(out.entries)-1].Duration += extra
	return out, nil
}

// Schedule joins items with the given per-item durations into one continuous sequence.
// Adjacent items overlap by the crossfade window; the window is clamped to half of the
// shortest item so no item ends up with negative visible time.
func Schedule(durations []float64, window float64) (Sequence, error) {
	n := len(durations)
	if n == 0 {
		return Sequence{}, &media.EmptySequenceError{What: "item"}
	}
	if window < 0 {
		return Sequence{}, fmt.Errorf("crossfade window must not be negative, got %f", window)
	}

	minDur := durations[0]
	sum := 0.0
	for i, d := range durations {
		if d <= 0 {
			return Sequence{}, fmt.Errorf("item %d has non-positive duration %f", i, d)
		}
		if d < minDur {
			minDur = d
		}
		sum += d
	}

	if n == 1 {
		return Sequence{
			entries:  []Entry{{Spec: Spec{ItemIndex: 0}, Start: 0, Duration: durations[0]}},
			duration: durations[0],
		}, nil
	}

	w := window
	if w > minDur/2 {
		w = minDur / 2
	}

	entries := make([]Entry, n)
	offset := 0.0
	for i, d := range durations {
		spec := Spec{ItemIndex: i}
		switch {
		case i == 0:
			spec.FadeIn = w
			spec.OverlapWithNext = w
		case i == n-1:
			spec.FadeOut = w
			spec.OverlapWithPrev = w
		default:
			spec.FadeIn = w
			spec.FadeOut = w
			spec.OverlapWithPrev = w
			spec.OverlapWithNext = w
		}
		entries[i] = Entry{Spec: spec, Start: offset, Duration: d}
		offset += d - w
	}

	return Sequence{
		entries:  entries,
		window:   w,
		duration: sum - float64(n-1)*w,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
