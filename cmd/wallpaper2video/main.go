package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/narration"
	"github.com/ivlev/wallpaper2video/internal/pipeline"
	"github.com/ivlev/wallpaper2video/internal/script"
	"github.com/ivlev/wallpaper2video/internal/source"
	"github.com/ivlev/wallpaper2video/internal/system"
	"github.com/ivlev/wallpaper2video/internal/timeline"
	"github.com/ivlev/wallpaper2video/internal/video"
)

// listFlag collects repeated or comma separated values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

type options struct {
	configPath string
	assets     listFlag
	deity      string
	customText string
	lang       string

	perItem         float64
	installDuration float64
	music           string
	volume          float64
	noMusic         bool
	showcaseAudio   string
	installAudio    string
	mockup          string

	preset  string
	width   int
	height  int
	fps     int
	quality int
	workers int

	output   string
	manifest string
	dryRun   bool
	preview  float64
	logLevel string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML config file (optional, W2V_* env vars override)")
	flag.Var(&o.assets, "assets", "Wallpapers or clips: files, directories or http(s) URLs, comma separated or repeated")
	flag.StringVar(&o.deity, "deity", "", "Deity name used in the script")
	flag.StringVar(&o.customText, "text", "", "Custom promotional text appended to the showcase script")
	flag.StringVar(&o.lang, "lang", script.DefaultLanguage, "Script language: "+strings.Join(script.Languages(), ", "))
	flag.Float64Var(&o.perItem, "per-item", 0, "Seconds per wallpaper in the showcase scene (0 = config)")
	flag.Float64Var(&o.installDuration, "install-duration", 0, "Seconds for the install scene (0 = config)")
	flag.StringVar(&o.music, "music", "", "Background music (default: assets/background_music.mp3)")
	flag.Float64Var(&o.volume, "volume", -1, "Background music volume 0..1 (-1 = config)")
	flag.BoolVar(&o.noMusic, "no-music", false, "Disable background music")
	flag.StringVar(&o.showcaseAudio, "showcase-audio", "", "Pre-recorded narration for the showcase scene")
	flag.StringVar(&o.installAudio, "install-audio", "", "Pre-recorded narration for the install scene")
	flag.StringVar(&o.mockup, "mockup", "", "Phone frame PNG with a transparent screen (default: generated)")
	flag.StringVar(&o.preset, "preset", "", "Format preset: 9:16, 4:5, 1:1")
	flag.IntVar(&o.width, "width", 0, "Output width (0 = config)")
	flag.IntVar(&o.height, "height", 0, "Output height (0 = config)")
	flag.IntVar(&o.fps, "fps", 0, "FPS (0 = config)")
	flag.IntVar(&o.quality, "quality", 0, "Quality (x264: CRF, nvenc: CQ, VideoToolbox: Q*100 kbit/s; 0 = config)")
	flag.IntVar(&o.workers, "workers", -1, "Parallel narration and asset jobs (0 = auto, -1 = config)")
	flag.StringVar(&o.output, "output", "", "Output video (default: output/<deity>_<lang>_ad.mp4)")
	flag.StringVar(&o.manifest, "manifest", "", "Write the timeline manifest YAML to this file")
	flag.BoolVar(&o.dryRun, "dry-run", false, "Build the timeline and print its manifest without rendering")
	flag.Float64Var(&o.preview, "preview", -1, "Write a PNG of the frame at this second instead of rendering")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: config)")
	flag.Parse()

	switch o.preset {
	case "9:16":
		o.width, o.height = 1080, 1920
	case "4:5":
		o.width, o.height = 1080, 1350
	case "1:1":
		o.width, o.height = 1080, 1080
	}
	return o
}

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	system.InitResourceLimits()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, parseFlags()); err != nil {
		log.Error().Err(err).Msg("generation failed")
		fmt.Fprintln(os.Stderr, pipeline.Describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, o)

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	for _, d := range []string{cfg.Paths.Output, cfg.Paths.WorkDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	if len(o.assets) == 0 {
		o.assets = listFlag{cfg.Paths.Assets}
	}

	inspector := source.FFInspector{}
	req, err := buildRequest(o, inspector)
	if err != nil {
		return err
	}

	provider, err := narration.New(ctx, cfg.Narration, cfg.Paths.WorkDir, inspector)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, provider, inspector)
	if err != nil {
		return err
	}

	tl, cleanup, err := p.BuildTimeline(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn().Err(err).Msg("work files not removed")
		}
	}()

	if o.manifest != "" {
		if err := timeline.WriteManifest(tl, o.manifest); err != nil {
			return err
		}
		log.Info().Str("path", o.manifest).Msg("manifest written")
	}
	if o.dryRun {
		return tl.Manifest().Encode(os.Stdout)
	}

	output := o.output
	if output == "" {
		output = p.OutputPath(req)
	}

	if o.preview >= 0 {
		return writePreview(tl, o.preview, strings.TrimSuffix(output, filepath.Ext(output))+".png")
	}

	start := time.Now()
	enc := &video.FFmpegEncoder{}
	out, err := enc.Render(ctx, tl, output, video.RenderOptions{
		FPS:        cfg.Composition.FPS,
		VideoCodec: cfg.Render.VideoCodec,
		AudioCodec: cfg.Render.AudioCodec,
		Quality:    cfg.Render.Quality,
	})
	if err != nil {
		return err
	}
	log.Info().Str("output", out).Float64("duration", tl.Duration()).Dur("took", time.Since(start)).Msg("video ready")
	return nil
}

func applyOverrides(cfg *config.Config, o options) {
	if o.width > 0 && o.height > 0 {
		out := media.Size{W: o.width, H: o.height}
		cfg.Composition.OutputSize = out
		cfg.Composition.ContentArea = media.Centered(media.Size{W: out.W * 2 / 3, H: out.H * 2 / 3}, out)
	}
	if o.fps > 0 {
		cfg.Composition.FPS = o.fps
	}
	if o.quality > 0 {
		cfg.Render.Quality = o.quality
	}
	if o.workers >= 0 {
		cfg.Workers = o.workers
	}
	if o.mockup != "" {
		cfg.Paths.Mockup = o.mockup
		cfg.Composition.DetectContentArea = true
	}
}

func buildRequest(o options, inspector source.Inspector) (pipeline.Request, error) {
	req := pipeline.Request{
		Assets:          o.assets,
		Deity:           o.deity,
		CustomText:      o.customText,
		Language:        o.lang,
		PerItemDuration: o.perItem,
		InstallDuration: o.installDuration,
		BackgroundAudio: o.music,
		NoMusic:         o.noMusic,
	}
	if o.volume >= 0 {
		v := o.volume
		req.BackgroundVolume = &v
	}

	for key, path := range map[string]string{script.Showcase: o.showcaseAudio, script.Install: o.installAudio} {
		if path == "" {
			continue
		}
		d, err := inspector.Duration(path)
		if err != nil {
			return req, &media.NarrationUnavailableError{Path: path, Err: err}
		}
		if req.Narration == nil {
			req.Narration = make(map[string]media.NarrationClip)
		}
		req.Narration[key] = media.NarrationClip{Path: path, Duration: d}
	}
	return req, nil
}

func writePreview(tl *timeline.Timeline, at float64, path string) error {
	frame, err := tl.FrameAt(at)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return err
	}
	log.Info().Str("path", path).Float64("at", at).Msg("preview written")
	return f.Close()
}
