package scene

import (
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/wallpaper2video/internal/background"
	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/layer"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/overlay"
	"github.com/ivlev/wallpaper2video/internal/source"
	"github.com/ivlev/wallpaper2video/internal/timing"
	"github.com/ivlev/wallpaper2video/internal/transition"
)

// BackgroundSpec selects the bottom layer of a scene. A non-empty Path loads a media
// file instead of generating the procedural Style.
type BackgroundSpec struct {
	Style string
	Path  string
}

// Scene is one fully assembled segment: its timing, its layer stack and the narration
// bound as its audio track. A scene is never modified after assembly.
type Scene struct {
	Assets      []media.Asset
	Plan        timing.Plan
	Sequence    transition.Sequence
	Composite   layer.Composite
	Narration   media.NarrationClip
	ContentArea media.Rect
	Padding     float64
}

// Duration equals the reconciled scene duration.
func (s *Scene) Duration() float64 {
	return s.Plan.SceneDuration
}

// Assembler builds scenes for one composition.
type Assembler struct {
	comp     config.Composition
	resolver *source.Resolver
}

func NewAssembler(comp config.Composition, resolver *source.Resolver) (*Assembler, error) {
	if err := comp.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		resolver = source.NewResolver(nil)
	}
	return &Assembler{comp: comp, resolver: resolver}, nil
}

func (a *Assembler) Composition() config.Composition {
	return a.comp
}

// AssembleScene resolves the assets, stretches them over the narration when needed,
// crossfades them into one content clip inside the content area and stacks it between
// the background and the frame overlay. An empty overlayPath uses a generated phone
// frame. Either the complete scene is returned or an error.
func (a *Assembler) AssembleScene(
	assetPaths []string,
	narration media.NarrationClip,
	overlayPath string,
	bg BackgroundSpec,
	requestedPerItem float64,
) (*Scene, error) {
	if len(assetPaths) == 0 {
		return nil, &media.EmptySequenceError{What: "asset"}
	}

	assets, err := a.resolver.ResolveAll(assetPaths)
	if err != nil {
		return nil, err
	}

	if err := checkNarration(narration); err != nil {
		return nil, err
	}

	plan, err := timing.Reconcile(len(assets), requestedPerItem, narration.Duration)
	if err != nil {
		return nil, err
	}

	seq, err := transition.Schedule(plan.Durations(), a.comp.CrossfadeWindow)
	if err != nil {
		return nil, err
	}

	// Crossfades shorten the content clip by (N-1) windows; the last item is held to
	// cover the gap so content and scene end together.
	padding := plan.SceneDuration - seq.Duration()
	if padding < -media.Tolerance {
		return nil, &media.TimingInconsistencyError{What: "content sequence", Expected: plan.SceneDuration, Actual: seq.Duration()}
	}
	if padding > 0 {
		if seq, err = seq.Extend(padding); err != nil {
			return nil, err
		}
	} else {
		padding = 0
	}
	if math.Abs(seq.Duration()-plan.SceneDuration) > media.Tolerance {
		return nil, &media.TimingInconsistencyError{What: "held content sequence", Expected: plan.SceneDuration, Actual: seq.Duration()}
	}

	frame, content, err := a.frameOverlay(overlayPath)
	if err != nil {
		return nil, err
	}

	sources, err := source.OpenAll(assets, a.comp.FPS)
	if err != nil {
		return nil, err
	}
	seqSource, err := layer.NewSequenceSource("content", sources, seq, content.Size())
	if err != nil {
		return nil, err
	}

	bgSource, err := a.background(bg)
	if err != nil {
		return nil, err
	}

	duration := plan.SceneDuration
	output := a.comp.OutputSize
	layers := []layer.Layer{
		layer.New("background", bgSource).WithSize(output).WithPosition(layer.TopLeft()).WithDuration(duration),
		layer.New("content", seqSource).WithSize(content.Size()).WithPosition(layer.At(content.X, content.Y)).WithDuration(duration),
		layer.New("frame", frame).WithSize(output).WithPosition(layer.TopLeft()).WithDuration(duration),
	}

	comp, err := layer.Compose(layers, output, duration)
	if err != nil {
		return nil, err
	}

	if comp.Duration() < narration.Duration-media.Tolerance {
		return nil, &media.TimingInconsistencyError{What: "narration binding", Expected: narration.Duration, Actual: comp.Duration()}
	}

	log.Debug().
		Int("items", plan.ItemCount).
		Float64("per_item", plan.PerItemDuration).
		Float64("scene_duration", plan.SceneDuration).
		Float64("window", seq.Window()).
		Float64("padding", padding).
		Bool("stretched", plan.Stretched()).
		Msg("scene assembled")

	return &Scene{
		Assets:      assets,
		Plan:        plan,
		Sequence:    seq,
		Composite:   comp,
		Narration:   narration,
		ContentArea: content,
		Padding:     padding,
	}, nil
}

// checkNarration makes sure the narration audio can be bound to the scene.
func checkNarration(n media.NarrationClip) error {
	if n.Path == "" {
		return &media.NarrationUnavailableError{Path: n.Path, Err: fmt.Errorf("no narration audio")}
	}
	info, err := os.Stat(n.Path)
	if err != nil {
		return &media.NarrationUnavailableError{Path: n.Path, Err: err}
	}
	if info.IsDir() {
		return &media.NarrationUnavailableError{Path: n.Path, Err: fmt.Errorf("is a directory")}
	}
	return nil
}

// frameOverlay returns the top layer source and the content area it leaves open.
func (a *Assembler) frameOverlay(path string) (layer.Source, media.Rect, error) {
	content := a.comp.ContentArea
	if path == "" {
		img, err := overlay.PhoneMockup(a.comp.OutputSize, content)
		if err != nil {
			return nil, media.Rect{}, err
		}
		return layer.NewImageSource("phone-mockup", img), content, nil
	}

	img, err := overlay.LoadMockup(path)
	if err != nil {
		return nil, media.Rect{}, err
	}
	if a.comp.DetectContentArea {
		screen, err := overlay.DetectScreen(img)
		if err != nil {
			return nil, media.Rect{}, &media.UnsupportedAssetError{Path: path, Err: err}
		}
		b := img.Bounds()
		content = overlay.FitContentArea(screen, media.Size{W: b.Dx(), H: b.Dy()}, a.comp.OutputSize)
		log.Debug().Str("overlay", path).Interface("screen", content).Msg("content area detected")
	}
	return layer.NewImageSource(path, img), content, nil
}

func (a *Assembler) background(spec BackgroundSpec) (layer.Source, error) {
	if spec.Path != "" {
		asset, err := a.resolver.Resolve(spec.Path)
		if err != nil {
			return nil, err
		}
		return source.Open(asset, a.comp.FPS)
	}

	style := spec.Style
	if style == "" {
		style = a.comp.BackgroundStyle
	}
	parsed, err := background.ParseStyle(style)
	if err != nil {
		return nil, err
	}
	return background.New(parsed, a.comp.OutputSize)
}
