package source

import (
	"github.com/ivlev/wallpaper2video/internal/layer"
	"github.com/ivlev/wallpaper2video/internal/media"
)

// Open returns a lazy frame source for a resolved asset. No file is read here.
func Open(asset media.Asset, fps int) (layer.Source, error) {
	if asset.Kind == media.Motion {
		return NewMotionSource(asset, fps, nil)
	}
	return NewStillSource(asset.Path), nil
}

// OpenAll opens every asset in order.
func OpenAll(assets []media.Asset, fps int) ([]layer.Source, error) {
	out := make([]layer.Source, 0, len(assets))
	for _, a := range assets {
		src, err := Open(a, fps)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
