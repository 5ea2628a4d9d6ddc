package source

import (
	"fmt"
	"sync"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// Resolver classifies asset paths and reads the native duration of motion clips.
// Stills are not touched until a frame is requested.
type Resolver struct {
	inspector Inspector

	mu    sync.Mutex
	cache map[string]media.Asset
}

func NewResolver(p Inspector) *Resolver {
	if p == nil {
		p = FFInspector{}
	}
	return &Resolver{inspector: p, cache: make(map[string]media.Asset)}
}

// Resolve returns the asset for path. A path is inspected at most once per resolver.
func (r *Resolver) Resolve(path string) (media.Asset, error) {
	if path == "" {
		return media.Asset{}, &media.UnsupportedAssetError{Path: path, Err: fmt.Errorf("empty path")}
	}

	r.mu.Lock()
	if a, ok := r.cache[path]; ok {
		r.mu.Unlock()
		if a.NativeDuration != nil {
			d := *a.NativeDuration
			a.NativeDuration = &d
		}
		return a, nil
	}
	r.mu.Unlock()

	asset := media.Asset{Path: path, Kind: media.KindOf(path)}
	if asset.Kind == media.Motion {
		d, err := r.inspector.Duration(path)
		if err != nil {
			return media.Asset{}, &media.UnsupportedAssetError{Path: path, Err: err}
		}
		if d <= 0 {
			return media.Asset{}, &media.UnsupportedAssetError{Path: path, Err: fmt.Errorf("non-positive duration %f", d)}
		}
		asset.NativeDuration = &d
	}

	r.mu.Lock()
	r.cache[path] = asset
	r.mu.Unlock()
	return asset, nil
}

// ResolveAll resolves every path in order and stops at the first failure.
func (r *Resolver) ResolveAll(paths []string) ([]media.Asset, error) {
	if len(paths) == 0 {
		return nil, &media.EmptySequenceError{What: "asset"}
	}
	assets := make([]media.Asset, 0, len(paths))
	for _, p := range paths {
		a, err := r.Resolve(p)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}
