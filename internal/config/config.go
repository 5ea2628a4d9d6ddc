package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// EnvPrefix is prepended to every environment override, e.g. W2V_COMPOSITION_FPS.
const EnvPrefix = "W2V"

// Composition holds the layout and timing constants every scene is assembled with.
type Composition struct {
	CrossfadeWindow   float64    `yaml:"crossfade_window" validate:"gte=0"`
	OutputSize        media.Size `yaml:"output_size"`
	ContentArea       media.Rect `yaml:"content_area"`
	BackgroundVolume  float64    `yaml:"background_volume" validate:"gte=0,lte=1"`
	BackgroundStyle   string     `yaml:"background_style" validate:"oneof=mandala gradient"`
	PerItemDuration   float64    `yaml:"per_item_duration" validate:"gt=0"`
	FPS               int        `yaml:"fps" validate:"gt=0,lte=120"`
	DetectContentArea bool       `yaml:"detect_content_area"`
}

// DefaultComposition is a 1080x1920 vertical frame with a centred 720x1280 phone screen.
func DefaultComposition() Composition {
	output := media.Size{W: 1080, H: 1920}
	return Composition{
		CrossfadeWindow:  0.5,
		OutputSize:       output,
		ContentArea:      media.Centered(media.Size{W: 720, H: 1280}, output),
		BackgroundVolume: 0.2,
		BackgroundStyle:  "mandala",
		PerItemDuration:  4,
		FPS:              30,
	}
}

type Render struct {
	VideoCodec string `validate:"required"`
	AudioCodec string `validate:"required"`
	Quality    int    `validate:"gte=0,lte=100"`
}

type Narration struct {
	Provider        string `validate:"oneof=google file"`
	APIKey          string
	CredentialsFile string
	Voice           string
	SpeakingRate    float64 `validate:"gte=0.25,lte=4"`
	// Dir holds pre-recorded narration for the file provider.
	Dir             string
}

type Paths struct {
	Assets  string
	Output  string `validate:"required"`
	WorkDir string `validate:"required"`
	Mockup  string
	Music   string
}

type Config struct {
	Composition Composition
	Render      Render
	Narration   Narration
	Paths       Paths
	Workers     int `validate:"gte=0"`
	LogLevel    string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Composition: DefaultComposition(),
		Render: Render{
			VideoCodec: "libx264",
			AudioCodec: "aac",
			Quality:    23,
		},
		Narration: Narration{
			Provider:     "google",
			SpeakingRate: 1,
			Dir:          "assets/narration",
		},
		Paths: Paths{
			Assets:  "assets",
			Output:  "output",
			WorkDir: "tmp",
		},
		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks field ranges and that the content area lies inside the output frame.
func (c Composition) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("composition: %w", err)
	}
	if !c.ContentArea.Within(c.OutputSize) {
		return fmt.Errorf("composition: content area %+v outside output %s", c.ContentArea, c.OutputSize)
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Composition.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads an optional YAML file, applies W2V_* environment overrides on top of the
// defaults and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	output := media.Size{W: v.GetInt("composition.output_size.w"), H: v.GetInt("composition.output_size.h")}
	content := media.Rect{
		X: v.GetInt("composition.content_area.x"),
		Y: v.GetInt("composition.content_area.y"),
		W: v.GetInt("composition.content_area.w"),
		H: v.GetInt("composition.content_area.h"),
	}

	cfg := Config{
		Composition: Composition{
			CrossfadeWindow:   v.GetFloat64("composition.crossfade_window"),
			OutputSize:        output,
			ContentArea:       content,
			BackgroundVolume:  v.GetFloat64("composition.background_volume"),
			BackgroundStyle:   v.GetString("composition.background_style"),
			PerItemDuration:   v.GetFloat64("composition.per_item_duration"),
			FPS:               v.GetInt("composition.fps"),
			DetectContentArea: v.GetBool("composition.detect_content_area"),
		},
		Render: Render{
			VideoCodec: v.GetString("render.video_codec"),
			AudioCodec: v.GetString("render.audio_codec"),
			Quality:    v.GetInt("render.quality"),
		},
		Narration: Narration{
			Provider:        v.GetString("narration.provider"),
			APIKey:          v.GetString("narration.api_key"),
			CredentialsFile: v.GetString("narration.credentials_file"),
			Voice:           v.GetString("narration.voice"),
			SpeakingRate:    v.GetFloat64("narration.speaking_rate"),
			Dir:             v.GetString("narration.dir"),
		},
		Paths: Paths{
			Assets:  v.GetString("paths.assets"),
			Output:  v.GetString("paths.output"),
			WorkDir: v.GetString("paths.work_dir"),
			Mockup:  v.GetString("paths.mockup"),
			Music:   v.GetString("paths.music"),
		},
		Workers:  v.GetInt("workers"),
		LogLevel: v.GetString("log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	c := d.Composition
	v.SetDefault("composition.crossfade_window", c.CrossfadeWindow)
	v.SetDefault("composition.output_size.w", c.OutputSize.W)
	v.SetDefault("composition.output_size.h", c.OutputSize.H)
	v.SetDefault("composition.content_area.x", c.ContentArea.X)
	v.SetDefault("composition.content_area.y", c.ContentArea.Y)
	v.SetDefault("composition.content_area.w", c.ContentArea.W)
	v.SetDefault("composition.content_area.h", c.ContentArea.H)
	v.SetDefault("composition.background_volume", c.BackgroundVolume)
	v.SetDefault("composition.background_style", c.BackgroundStyle)
	v.SetDefault("composition.per_item_duration", c.PerItemDuration)
	v.SetDefault("composition.fps", c.FPS)
	v.SetDefault("composition.detect_content_area", c.DetectContentArea)

	v.SetDefault("render.video_codec", d.Render.VideoCodec)
	v.SetDefault("render.audio_codec", d.Render.AudioCodec)
	v.SetDefault("render.quality", d.Render.Quality)

	v.SetDefault("narration.provider", d.Narration.Provider)
	v.SetDefault("narration.api_key", d.Narration.APIKey)
	v.SetDefault("narration.credentials_file", d.Narration.CredentialsFile)
	v.SetDefault("narration.voice", d.Narration.Voice)
	v.SetDefault("narration.speaking_rate", d.Narration.SpeakingRate)
	v.SetDefault("narration.dir", d.Narration.Dir)

	v.SetDefault("paths.assets", d.Paths.Assets)
	v.SetDefault("paths.output", d.Paths.Output)
	v.SetDefault("paths.work_dir", d.Paths.WorkDir)
	v.SetDefault("paths.mockup", d.Paths.Mockup)
	v.SetDefault("paths.music", d.Paths.Music)

	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_level", d.LogLevel)
}
