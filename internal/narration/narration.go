// Package narration turns script text into narration clips with a known duration.
package narration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivlev/wallpaper2video/internal/config"
	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/source"
)

// Request is one narration to produce. Key names the scene it belongs to.
type Request struct {
	Key  string
	Text string
	Lang string
}

// Provider synthesizes or looks up narration audio. The returned clip always has a
// measured, positive duration.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (media.NarrationClip, error)
}

// New builds the provider selected in cfg. Synthesized audio goes to workDir.
func New(ctx context.Context, cfg config.Narration, workDir string, inspector source.Inspector) (Provider, error) {
	switch cfg.Provider {
	case "file":
		return NewFileProvider(cfg.Dir, inspector), nil
	case "google", "":
		return NewGoogleProvider(ctx, cfg, workDir, inspector)
	default:
		return nil, fmt.Errorf("unknown narration provider %q", cfg.Provider)
	}
}

// FileProvider serves pre-recorded narration. For key "showcase" and language "hi" it
// looks for showcase_hi.<ext> and then showcase.<ext> in its directory.
type FileProvider struct {
	dir       string
	inspector source.Inspector
}

var fileExtensions = []string{".mp3", ".wav", ".m4a", ".ogg"}

func NewFileProvider(dir string, inspector source.Inspector) *FileProvider {
	if inspector == nil {
		inspector = source.FFInspector{}
	}
	return &FileProvider{dir: dir, inspector: inspector}
}

func (p *FileProvider) Synthesize(ctx context.Context, req Request) (media.NarrationClip, error) {
	if err := ctx.Err(); err != nil {
		return media.NarrationClip{}, err
	}
	for _, base := range []string{req.Key + "_" + req.Lang, req.Key} {
		for _, ext := range fileExtensions {
			path := filepath.Join(p.dir, base+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			return inspectClip(p.inspector, path)
		}
	}
	return media.NarrationClip{}, &media.NarrationUnavailableError{
		Path: filepath.Join(p.dir, req.Key),
		Err:  fmt.Errorf("no recording for %s/%s", req.Key, req.Lang),
	}
}

func inspectClip(inspector source.Inspector, path string) (media.NarrationClip, error) {
	d, err := inspector.Duration(path)
	if err != nil {
		return media.NarrationClip{}, &media.NarrationUnavailableError{Path: path, Err: err}
	}
	if d <= 0 {
		return media.NarrationClip{}, &media.NarrationUnavailableError{Path: path, Err: fmt.Errorf("non-positive duration %f", d)}
	}
	return media.NarrationClip{Path: path, Duration: d}, nil
}
