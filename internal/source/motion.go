package source

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// FrameGrabber extracts a single frame of a video at a given time.
type FrameGrabber func(path string, t float64) (image.Image, error)

// MotionSource reads frames of a motion clip through ffmpeg. Requested times are
// snapped to the frame grid and the last frame is cached.
type MotionSource struct {
	path   string
	native float64
	fps    int
	grab   FrameGrabber

	mu      sync.Mutex
	lastIdx int
	last    image.Image
}

// NewMotionSource wraps a resolved motion asset. grab may be nil to use ffmpeg.
func NewMotionSource(asset media.Asset, fps int, grab FrameGrabber) (*MotionSource, error) {
	d, ok := asset.Duration()
	if asset.Kind != media.Motion || !ok {
		return nil, fmt.Errorf("%s is not a resolved motion clip", asset.Path)
	}
	if fps <= 0 {
		fps = 30
	}
	if grab == nil {
		grab = GrabFrame
	}
	return &MotionSource{path: asset.Path, native: d, fps: fps, grab: grab, lastIdx: -1}, nil
}

func (m *MotionSource) Name() string                    { return filepath.Base(m.path) }
func (m *MotionSource) NativeDuration() (float64, bool) { return m.native, true }

// FrameAt returns the frame at t, clamped to the clip length. Every new frame index
// costs one ffmpeg run; repeated requests for the same index hit the cache.
func (m *MotionSource) FrameAt(t float64) (image.Image, error) {
	lastIdx := int(math.Floor(m.native*float64(m.fps))) - 1
	idx := int(math.Floor(t * float64(m.fps)))
	if idx < 0 {
		idx = 0
	}
	if lastIdx >= 0 && idx > lastIdx {
		idx = lastIdx
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx == m.lastIdx && m.last != nil {
		return m.last, nil
	}

	img, err := m.grab(m.path, float64(idx)/float64(m.fps))
	if err != nil {
		return nil, &media.UnsupportedAssetError{Path: m.path, Err: err}
	}
	m.lastIdx, m.last = idx, img
	return img, nil
}

// GrabFrame extracts one PNG frame at t seconds via ffmpeg.
func GrabFrame(path string, t float64) (image.Image, error) {
	buf := bytes.NewBuffer(nil)
	err := ffmpeg.Input(path, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", t)}).
		Output("pipe:", ffmpeg.KwArgs{"vframes": 1, "format": "image2", "vcodec": "png"}).
		WithOutput(buf, io.Discard).
		Run()
	if err != nil {
		return nil, fmt.Errorf("extract frame at %.3fs: %w", t, err)
	}
	return png.Decode(buf)
}
