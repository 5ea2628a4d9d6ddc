package narration

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/source"
)

// languageCodes maps short script languages onto BCP-47 voices.
var languageCodes = map[string]string{
	"en": "en-US",
	"hi": "hi-IN",
}

// GoogleProvider synthesizes MP3 narration with Google Cloud Text-to-Speech.
type GoogleProvider struct {
	svc       *texttospeech.Service
	dir       string
	voice     string
	rate      float64
	inspector source.Inspector
}

// NewGoogleProvider authenticates with the API key or credentials file from cfg, falling
// back to application default credentials. Extra options are appended last.
func NewGoogleProvider(ctx context.Context, cfg config.Narration, workDir string, inspector source.Inspector, opts ...option.ClientOption) (*GoogleProvider, error) {
	var all []option.ClientOption
	switch {
	case cfg.APIKey != "":
		all = append(all, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		all = append(all, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	all = append(all, opts...)

	svc, err := texttospeech.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("unable to create text-to-speech service: %w", err)
	}
	if inspector == nil {
		inspector = source.FFInspector{}
	}
	rate := cfg.SpeakingRate
	if rate == 0 {
		rate = 1
	}
	return &GoogleProvider{svc: svc, dir: workDir, voice: cfg.Voice, rate: rate, inspector: inspector}, nil
}

func LanguageCode(lang string) string {
	if code, ok := languageCodes[strings.ToLower(lang)]; ok {
		return code
	}
	if strings.Contains(lang, "-") {
		return lang
	}
	return languageCodes["en"]
}

func (p *GoogleProvider) Synthesize(ctx context.Context, req Request) (media.NarrationClip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return media.NarrationClip{}, &media.NarrationUnavailableError{Path: req.Key, Err: fmt.Errorf("empty narration text")}
	}

	call := p.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: LanguageCode(req.Lang),
			Name:         p.voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  p.rate,
		},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return media.NarrationClip{}, &media.NarrationUnavailableError{Path: req.Key, Err: fmt.Errorf("synthesize: %w", err)}
	}
	if resp.AudioContent == "" {
		return media.NarrationClip{}, &media.NarrationUnavailableError{Path: req.Key, Err: fmt.Errorf("no audio content in response")}
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return media.NarrationClip{}, fmt.Errorf("decode audio: %w", err)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return media.NarrationClip{}, err
	}
	path := filepath.Join(p.dir, fmt.Sprintf("%s_%s_%s.mp3", req.Key, req.Lang, uuid.NewString()))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return media.NarrationClip{}, fmt.Errorf("save audio: %w", err)
	}
	log.Debug().Str("key", req.Key).Str("lang", req.Lang).Str("path", path).Int("bytes", len(audio)).Msg("narration synthesized")

	return inspectClip(p.inspector, path)
}
