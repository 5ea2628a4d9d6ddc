package timeline

import (
	"fmt"
	"image"
	"math"

	"github.com/google/uuid"

	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/scene"
)

// DefaultBackgroundVolume keeps the music bed clearly under the narration.
const DefaultBackgroundVolume = 0.2

// BackgroundAudio describes the optional music bed. Duration is the native length of
// the track.
type BackgroundAudio struct {
	Path        string  `yaml:"path"`
	VolumeScale float64 `yaml:"volume_scale"`
	Duration    float64 `yaml:"duration"`
}

// BedPlan is the music bed repeated whole until it covers the timeline and then cut
// to exactly the timeline length.
type BedPlan struct {
	Path           string  `yaml:"path"`
	VolumeScale    float64 `yaml:"volume_scale"`
	NativeDuration float64 `yaml:"native_duration"`
	Loops          int     `yaml:"loops"`
	LoopedDuration float64 `yaml:"looped_duration"`
	Trim           float64 `yaml:"trim"`
}

// PlanBed computes how often the bed repeats to cover total seconds.
func PlanBed(bg BackgroundAudio, total float64) (BedPlan, error) {
	if bg.Path == "" {
		return BedPlan{}, fmt.Errorf("background audio has no path")
	}
	if bg.Duration <= 0 {
		return BedPlan{}, fmt.Errorf("background audio %s has non-positive duration %f", bg.Path, bg.Duration)
	}
	if bg.VolumeScale < 0 {
		return BedPlan{}, fmt.Errorf("background volume must not be negative, got %f", bg.VolumeScale)
	}
	if total <= 0 {
		return BedPlan{}, fmt.Errorf("timeline duration must be positive, got %f", total)
	}

	loops := int(math.Ceil(total/bg.Duration - 1e-9))
	if loops < 1 {
		loops = 1
	}
	return BedPlan{
		Path:           bg.Path,
		VolumeScale:    bg.VolumeScale,
		NativeDuration: bg.Duration,
		Loops:          loops,
		LoopedDuration: float64(loops) * bg.Duration,
		Trim:           total,
	}, nil
}

// Placement is a scene positioned on the output clock.
type Placement struct {
	Index int
	Start float64
	Scene *scene.Scene
}

func (p Placement) End() float64 {
	return p.Start + p.Scene.Duration()
}

// AudioSegment is one input of the final audio mix.
type AudioSegment struct {
	Path     string  `yaml:"path"`
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
	Volume   float64 `yaml:"volume"`
	Loop     bool    `yaml:"loop,omitempty"`
}

// Timeline is the whole output before encoding. It is read-only once built and can be
// shared between consumers.
type Timeline struct {
	id         string
	placements []Placement
	duration   float64
	bed        *BedPlan
}

// Concatenate places scenes back to back with hard cuts and attaches the optional
// music bed. Either every scene is placed or an error is returned.
func Concatenate(scenes []*scene.Scene, bg *BackgroundAudio) (*Timeline, error) {
	if len(scenes) == 0 {
		return nil, &media.EmptySequenceError{What: "scene"}
	}

	placements := make([]Placement, 0, len(scenes))
	offset := 0.0
	for i, s := range scenes {
		if s == nil {
			return nil, fmt.Errorf("scene %d is nil", i)
		}
		if s.Duration() <= 0 {
			return nil, fmt.Errorf("scene %d has non-positive duration %f", i, s.Duration())
		}
		placements = append(placements, Placement{Index: i, Start: offset, Scene: s})
		offset += s.Duration()
	}

	tl := &Timeline{
		id:         uuid.NewString(),
		placements: placements,
		duration:   offset,
	}

	if bg != nil {
		plan, err := PlanBed(*bg, tl.duration)
		if err != nil {
			return nil, err
		}
		tl.bed = &plan
	}
	return tl, nil
}

func (t *Timeline) ID() string        { return t.id }
func (t *Timeline) Duration() float64 { return t.duration }
func (t *Timeline) Len() int          { return len(t.placements) }

// Scenes returns the placed scenes in playback order.
func (t *Timeline) Scenes() []Placement {
	out := make([]Placement, len(t.placements))
	copy(out, t.placements)
	return out
}

// Background returns the music bed plan, if any.
func (t *Timeline) Background() (BedPlan, bool) {
	if t.bed == nil {
		return BedPlan{}, false
	}
	return *t.bed, true
}

// OutputSize is the frame size shared by all scenes.
func (t *Timeline) OutputSize() media.Size {
	return t.placements[0].Scene.Composite.Size()
}

// SceneAt returns the scene visible at time t and the time local to it. The end of
// the timeline belongs to the last scene.
func (t *Timeline) SceneAt(at float64) (Placement, float64) {
	for _, p := range t.placements {
		if at < p.End() {
			local := at - p.Start
			if local < 0 {
				local = 0
			}
			return p, local
		}
	}
	last := t.placements[len(t.placements)-1]
	return last, last.Scene.Duration()
}

// AudioMix lists narration tracks at their scene offsets followed by the music bed.
// All inputs are mixed additively.
func (t *Timeline) AudioMix() []AudioSegment {
	var out []AudioSegment
	for _, p := range t.placements {
		n := p.Scene.Narration
		if n.Duration <= 0 {
			continue
		}
		out = append(out, AudioSegment{Path: n.Path, Start: p.Start, Duration: n.Duration, Volume: 1})
	}
	if t.bed != nil {
		out = append(out, AudioSegment{
			Path:     t.bed.Path,
			Start:    0,
			Duration: t.bed.Trim,
			Volume:   t.bed.VolumeScale,
			Loop:     t.bed.Loops > 1,
		})
	}
	return out
}

// FrameAt rasterizes the output frame at time at.
func (t *Timeline) FrameAt(at float64) (*image.RGBA, error) {
	p, local := t.SceneAt(at)
	return p.Scene.Composite.FrameAt(local)
}
