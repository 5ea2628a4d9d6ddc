package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"os"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// Bezel is the width of the generated phone body around the screen.
const Bezel = 40

var bodyColor = color.RGBA{0x2c, 0x3e, 0x50, 0xff}

// PhoneMockup draws a phone frame over a transparent canvas of the output size. The
// screen rectangle stays fully transparent so content below shows through.
func PhoneMockup(output media.Size, screen media.Rect) (*image.RGBA, error) {
	if !screen.Within(output) {
		return nil, fmt.Errorf("screen %+v does not fit output %s", screen, output)
	}

	img := image.NewRGBA(image.Rect(0, 0, output.W, output.H))
	body := image.Rect(screen.X-Bezel, screen.Y-Bezel, screen.X+screen.W+Bezel, screen.Y+screen.H+Bezel).
		Intersect(img.Bounds())
	fillRounded(img, body, Bezel+20, bodyColor)

	// Speaker slot in the top bezel.
	slotW := screen.W / 6
	slot := image.Rect(screen.X+(screen.W-slotW)/2, screen.Y-Bezel/2-4, screen.X+(screen.W+slotW)/2, screen.Y-Bezel/2+4)
	draw.Draw(img, slot.Intersect(img.Bounds()), image.NewUniform(color.RGBA{0x1a, 0x25, 0x30, 0xff}), image.Point{}, draw.Src)

	scr := image.Rect(screen.X, screen.Y, screen.X+screen.W, screen.Y+screen.H)
	draw.Draw(img, scr, image.Transparent, image.Point{}, draw.Src)
	return img, nil
}

// LoadMockup decodes a user-supplied frame overlay.
func LoadMockup(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &media.UnsupportedAssetError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &media.UnsupportedAssetError{Path: path, Err: err}
	}
	return img, nil
}

// fillRounded fills r with c, leaving corners of the given radius untouched.
func fillRounded(img *image.RGBA, r image.Rectangle, radius int, c color.RGBA) {
	if radius*2 > r.Dx() {
		radius = r.Dx() / 2
	}
	if radius*2 > r.Dy() {
		radius = r.Dy() / 2
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if insideRounded(x, y, r, radius) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func insideRounded(x, y int, r image.Rectangle, radius int) bool {
	cx, cy := x, y
	switch {
	case x < r.Min.X+radius:
		cx = r.Min.X + radius
	case x >= r.Max.X-radius:
		cx = r.Max.X - radius - 1
	}
	switch {
	case y < r.Min.Y+radius:
		cy = r.Min.Y + radius
	case y >= r.Max.Y-radius:
		cy = r.Max.Y - radius - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}
