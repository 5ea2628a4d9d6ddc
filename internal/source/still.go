package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// PDFDPI is the resolution used to rasterize PDF stills.
const PDFDPI = 150

// StillExtensions lists the still formats the frame loaders can decode.
var StillExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".pdf"}

// StillSource decodes an image file on first use and keeps it in memory.
type StillSource struct {
	path string

	once sync.Once
	img  image.Image
	err  error
}

func NewStillSource(path string) *StillSource {
	return &StillSource{path: path}
}

func (s *StillSource) Name() string                    { return filepath.Base(s.path) }
func (s *StillSource) NativeDuration() (float64, bool) { return 0, false }

// FrameAt returns the decoded image regardless of t. A missing or undecodable file
// surfaces here as UnsupportedAssetError.
func (s *StillSource) FrameAt(float64) (image.Image, error) {
	s.once.Do(func() {
		s.img, s.err = decodeStill(s.path)
		if s.err != nil {
			s.err = &media.UnsupportedAssetError{Path: s.path, Err: s.err}
		}
	})
	return s.img, s.err
}

func decodeStill(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return renderPDF(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// renderPDF rasterizes the first page of a PDF.
func renderPDF(path string) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return doc.ImageDPI(0, PDFDPI)
}

// Expand turns a directory into its sorted list of supported media files. A file path
// is returned as is.
func Expand(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if Supported(entry.Name()) {
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Supported reports whether the extension of name is a known still or motion format.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range StillExtensions {
		if ext == e {
			return true
		}
	}
	for _, e := range media.MotionExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
