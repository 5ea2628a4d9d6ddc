// Package pipeline builds a complete ad timeline from a user request: it ingests the
// assets, renders and voices the scripts, assembles the showcase and install scenes
// and lays them out with the music bed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/ingest"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/narration"
	"github.com/ivlev/wallpaper2video/internal/overlay"
	"github.com/ivlev/wallpaper2video/internal/scene"
	"github.com/ivlev/wallpaper2video/internal/script"
	"github.com/ivlev/wallpaper2video/internal/source"
	"github.com/ivlev/wallpaper2video/internal/system"
	"github.com/ivlev/wallpaper2video/internal/timeline"
)

// DefaultMusicFile is picked up from the assets directory when no music is configured.
const DefaultMusicFile = "background_music.mp3"

// Request describes one ad.
type Request struct {
	Assets     []string `validate:"min=1,dive,required"`
	Deity      string   `validate:"required"`
	CustomText string
	Language   string `validate:"required"`

	// PerItemDuration overrides the composition default for the showcase scene.
	PerItemDuration float64 `validate:"gte=0"`
	InstallDuration float64 `validate:"gte=0"`

	// Narration holds pre-synthesized clips by scene key; missing keys are synthesized.
	Narration map[string]media.NarrationClip

	BackgroundAudio  string
	BackgroundVolume *float64 `validate:"omitempty,gte=0,lte=1"`
	NoMusic          bool

	Listing    *overlay.Listing
	OutputSize media.Size `validate:"-"`
}

var validate = validator.New()

// Pipeline holds the collaborators shared by all requests. It keeps no per-request state.
type Pipeline struct {
	cfg       config.Config
	provider  narration.Provider
	inspector source.Inspector
	client    *http.Client
}

// New wires a pipeline. A nil inspector uses ffprobe.
func New(cfg config.Config, provider narration.Provider, inspector source.Inspector) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("narration provider is required")
	}
	if inspector == nil {
		inspector = source.FFInspector{}
	}
	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		inspector: inspector,
		client:    &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// OutputPath is where the rendered ad for req is written.
func (p *Pipeline) OutputPath(req Request) string {
	name := fmt.Sprintf("%s_%s_ad.mp4", slug(req.Deity), script.Resolve(req.Language))
	return filepath.Join(p.cfg.Paths.Output, name)
}

// Composition returns the layout used for req.
func (p *Pipeline) Composition(req Request) config.Composition {
	comp := p.cfg.Composition
	if req.OutputSize.W > 0 && req.OutputSize.H > 0 && req.OutputSize != comp.OutputSize {
		comp.OutputSize = req.OutputSize
		comp.ContentArea = media.Centered(media.Size{W: req.OutputSize.W * 2 / 3, H: req.OutputSize.H * 2 / 3}, req.OutputSize)
	}
	return comp
}

// BuildTimeline runs the whole request. Narration synthesis and asset probing run
// concurrently; scene assembly itself is synchronous.
//
// Request files (downloads, the store card, synthesized narration) are kept until the
// returned cleanup func is called, since the encoder reads them while rendering. On
// error they are removed before returning.
func (p *Pipeline) BuildTimeline(ctx context.Context, req Request) (tl *timeline.Timeline, cleanup func() error, err error) {
	if err := validate.Struct(req); err != nil {
		if len(req.Assets) == 0 {
			return nil, nil, &media.EmptySequenceError{What: "asset"}
		}
		return nil, nil, fmt.Errorf("request: %w", err)
	}

	comp := p.Composition(req)
	lang := script.Resolve(req.Language)
	workDir := filepath.Join(p.cfg.Paths.WorkDir, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, nil, err
	}

	var synthesized []string
	release := func() error {
		var errs []error
		for _, path := range synthesized {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, err)
			}
		}
		errs = append(errs, os.RemoveAll(workDir))
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			if cerr := release(); cerr != nil {
				log.Warn().Err(cerr).Str("dir", workDir).Msg("cleanup failed")
			}
		}
	}()

	paths, err := ingest.New(filepath.Join(workDir, "downloads"), p.client).FetchAll(ctx, req.Assets)
	if err != nil {
		return nil, nil, err
	}

	scripts, err := script.All(lang, script.Params{Deity: req.Deity, CustomText: req.CustomText})
	if err != nil {
		return nil, nil, err
	}

	resolver := source.NewResolver(p.inspector)
	clips, synthesized, err := p.prepare(ctx, resolver, paths, scripts, req, lang)
	if err != nil {
		return nil, nil, err
	}

	assembler, err := scene.NewAssembler(comp, resolver)
	if err != nil {
		return nil, nil, err
	}
	bg := scene.BackgroundSpec{Style: comp.BackgroundStyle}

	showcase, err := assembler.AssembleScene(paths, clips[script.Showcase], p.cfg.Paths.Mockup, bg, orDefault(req.PerItemDuration, comp.PerItemDuration))
	if err != nil {
		return nil, nil, fmt.Errorf("showcase scene: %w", err)
	}

	card, err := p.storeCard(workDir, comp, req)
	if err != nil {
		return nil, nil, err
	}
	install, err := assembler.AssembleScene([]string{card}, clips[script.Install], p.cfg.Paths.Mockup, bg, orDefault(req.InstallDuration, comp.PerItemDuration))
	if err != nil {
		return nil, nil, fmt.Errorf("install scene: %w", err)
	}

	music, err := p.music(req, comp)
	if err != nil {
		return nil, nil, err
	}

	tl, err = timeline.Concatenate([]*scene.Scene{showcase, install}, music)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("timeline", tl.ID()).
		Str("lang", lang).
		Int("assets", len(paths)).
		Float64("duration", tl.Duration()).
		Bool("music", music != nil).
		Msg("timeline built")
	return tl, release, nil
}

// prepare synthesizes missing narration and inspects the assets in parallel. It also
// returns the paths of the clips it synthesized.
func (p *Pipeline) prepare(ctx context.Context, resolver *source.Resolver, paths []string, scripts map[string]string, req Request, lang string) (map[string]media.NarrationClip, []string, error) {
	workers := system.Detect().Workers(p.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	clips := make(map[string]media.NarrationClip, len(scripts))
	var synthesized []string

	for _, key := range []string{script.Showcase, script.Install} {
		if clip, ok := req.Narration[key]; ok {
			mu.Lock()
			clips[key] = clip
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			clip, err := p.provider.Synthesize(gctx, narration.Request{Key: key, Text: scripts[key], Lang: lang})
			if err != nil {
				return fmt.Errorf("%s narration: %w", key, err)
			}
			mu.Lock()
			clips[key] = clip
			synthesized = append(synthesized, clip.Path)
			mu.Unlock()
			return nil
		})
	}

	for _, path := range paths {
		g.Go(func() error {
			_, err := resolver.Resolve(path)
			return err
		})
	}

	err := g.Wait()
	return clips, synthesized, err
}

func (p *Pipeline) storeCard(workDir string, comp config.Composition, req Request) (string, error) {
	listing := overlay.DefaultListing
	if req.Listing != nil {
		listing = *req.Listing
	}
	img, err := overlay.StoreCard(comp.ContentArea.Size(), listing)
	if err != nil {
		return "", err
	}

	path := filepath.Join(workDir, "store_card.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode store card: %w", err)
	}
	return path, f.Close()
}

// music finds and measures the bed. An explicitly requested file must be usable; a
// discovered one is skipped with a warning.
func (p *Pipeline) music(req Request, comp config.Composition) (*timeline.BackgroundAudio, error) {
	if req.NoMusic {
		return nil, nil
	}
	volume := comp.BackgroundVolume
	if req.BackgroundVolume != nil {
		volume = *req.BackgroundVolume
	}

	path, explicit := req.BackgroundAudio, req.BackgroundAudio != ""
	if !explicit {
		path, explicit = p.cfg.Paths.Music, p.cfg.Paths.Music != ""
	}
	if !explicit {
		path = filepath.Join(p.cfg.Paths.Assets, DefaultMusicFile)
		if _, err := os.Stat(path); err != nil {
			found, err := system.FindLatestAudio(filepath.Join(p.cfg.Paths.Assets, "music"))
			if err != nil {
				return nil, nil
			}
			path = found
		}
	}

	d, err := p.inspector.Duration(path)
	if err == nil && d <= 0 {
		err = fmt.Errorf("non-positive duration %f", d)
	}
	if err != nil {
		if explicit {
			return nil, &media.UnsupportedAssetError{Path: path, Err: fmt.Errorf("background audio: %w", err)}
		}
		log.Warn().Err(err).Str("path", path).Msg("background music skipped")
		return nil, nil
	}
	return &timeline.BackgroundAudio{Path: path, VolumeScale: volume, Duration: d}, nil
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "ad"
	}
	return b.String()
}
