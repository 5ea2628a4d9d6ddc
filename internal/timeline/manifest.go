package timeline

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/timing"
	"github.com/ivlev/wallpaper2video/internal/transition"
)

// ManifestVersion is bumped whenever the manifest layout changes.
const ManifestVersion = "1.1"

// Manifest is the serializable description of a timeline, written for dry runs and
// for inspecting what the encoder will receive.
type Manifest struct {
	Version    string          `yaml:"version"`
	ID         string          `yaml:"id"`
	Duration   float64         `yaml:"duration"`
	OutputSize media.Size      `yaml:"output_size"`
	Scenes     []SceneManifest `yaml:"scenes"`
	Background *BedPlan        `yaml:"background_audio,omitempty"`
	Audio      []AudioSegment  `yaml:"audio"`
}

type SceneManifest struct {
	Index       int                 `yaml:"index"`
	Start       float64             `yaml:"start"`
	Duration    float64             `yaml:"duration"`
	Plan        timing.Plan         `yaml:"plan"`
	Window      float64             `yaml:"crossfade_window"`
	Padding     float64             `yaml:"padding"`
	ContentArea media.Rect          `yaml:"content_area"`
	Narration   media.NarrationClip `yaml:"narration"`
	Items       []ItemManifest      `yaml:"items"`
	Layers      []LayerManifest     `yaml:"layers"`
}

type ItemManifest struct {
	transition.Entry `yaml:",inline"`

	Path           string   `yaml:"path"`
	Kind           string   `yaml:"kind"`
	NativeDuration *float64 `yaml:"native_duration,omitempty"`
}

type LayerManifest struct {
	Name     string     `yaml:"name"`
	Source   string     `yaml:"source"`
	Size     media.Size `yaml:"size"`
	Position string     `yaml:"position"`
	Opacity  float64    `yaml:"opacity"`
	Start    float64    `yaml:"start"`
	Duration float64    `yaml:"duration"`
}

// Manifest describes the timeline.
func (t *Timeline) Manifest() Manifest {
	m := Manifest{
		Version:    ManifestVersion,
		ID:         t.id,
		Duration:   t.duration,
		OutputSize: t.OutputSize(),
		Audio:      t.AudioMix(),
	}
	if bed, ok := t.Background(); ok {
		m.Background = &bed
	}

	for _, p := range t.placements {
		s := p.Scene
		sm := SceneManifest{
			Index:       p.Index,
			Start:       p.Start,
			Duration:    s.Duration(),
			Plan:        s.Plan,
			Window:      s.Sequence.Window(),
			Padding:     s.Padding,
			ContentArea: s.ContentArea,
			Narration:   s.Narration,
		}
		for i, e := range s.Sequence.Entries() {
			a := s.Assets[i]
			sm.Items = append(sm.Items, ItemManifest{
				Path:           a.Path,
				Kind:           a.Kind.String(),
				NativeDuration: a.NativeDuration,
				Entry:          e,
			})
		}
		for _, l := range s.Composite.Layers() {
			sm.Layers = append(sm.Layers, LayerManifest{
				Name:     l.Name(),
				Source:   l.Source().Name(),
				Size:     l.Size(),
				Position: l.Position().String(),
				Opacity:  l.Opacity(),
				Start:    l.Start(),
				Duration: l.Duration(),
			})
		}
		m.Scenes = append(m.Scenes, sm)
	}
	return m
}

// Encode writes the manifest as YAML.
func (m Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// WriteManifest writes the timeline manifest to a YAML file.
func WriteManifest(t *Timeline, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Manifest().Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadManifest reads a manifest from a YAML file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
