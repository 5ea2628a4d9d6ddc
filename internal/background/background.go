package background

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/wallpaper2video/internal/media"
)

type Style string

const (
	Gradient Style = "gradient"
	Mandala  Style = "mandala"
)

const (
	// RotationSpeed of the mandala overlay, degrees per second.
	RotationSpeed = 20.0
	// MandalaOpacity of the overlay above the gradient.
	MandalaOpacity = 0.3
)

// DefaultPalette runs top to bottom: crimson, orange red, dark orange.
var DefaultPalette = [3]color.RGBA{
	{220, 20, 60, 255},
	{255, 69, 0, 255},
	{255, 140, 0, 255},
}

// ParseStyle accepts a style name case-insensitively.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case Gradient:
		return Gradient, nil
	case Mandala, "":
		return Mandala, nil
	}
	return "", fmt.Errorf("unknown background style %q", s)
}

// Background is a procedurally generated, endlessly animated frame source covering
// the full output.
type Background struct {
	style   Style
	size    media.Size
	base    *image.RGBA
	mandala *image.RGBA
}

func New(style Style, size media.Size) (*Background, error) {
	if size.W <= 0 || size.H <= 0 {
		return nil, fmt.Errorf("invalid background size %s", size)
	}
	b := &Background{style: style, size: size, base: gradient(size, DefaultPalette)}
	switch style {
	case Gradient:
	case Mandala:
		b.mandala = mandala(2 * min(size.W, size.H))
	default:
		return nil, fmt.Errorf("unknown background style %q", style)
	}
	return b, nil
}

func (b *Background) Name() string                    { return "background/" + string(b.style) }
func (b *Background) NativeDuration() (float64, bool) { return 0, false }
func (b *Background) Style() Style                    { return b.style }

// Angle is the mandala rotation at time t, in degrees within [0,360).
func Angle(t float64) float64 {
	a := math.Mod(RotationSpeed*t, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func (b *Background) FrameAt(t float64) (image.Image, error) {
	if b.mandala == nil {
		return b.base, nil
	}

	dst := image.NewRGBA(b.base.Bounds())
	copy(dst.Pix, b.base.Pix)

	overlay := image.NewRGBA(dst.Bounds())
	theta := Angle(t) * math.Pi / 180
	sin, cos := math.Sincos(theta)
	scx := float64(b.mandala.Bounds().Dx()) / 2
	scy := float64(b.mandala.Bounds().Dy()) / 2
	dcx := float64(b.size.W) / 2
	dcy := float64(b.size.H) / 2

	// Rotate about the mandala centre and place it at the frame centre.
	s2d := f64.Aff3{
		cos, -sin, dcx - (cos*scx - sin*scy),
		sin, cos, dcy - (sin*scx + cos*scy),
	}
	xdraw.ApproxBiLinear.Transform(overlay, s2d, b.mandala, b.mandala.Bounds(), xdraw.Src, nil)

	mask := image.NewUniform(color.Alpha16{A: uint16(math.Round(MandalaOpacity * 0xffff))})
	draw.DrawMask(dst, dst.Bounds(), overlay, image.Point{}, mask, image.Point{}, draw.Over)
	return dst, nil
}

// gradient paints a vertical three-stop gradient.
func gradient(size media.Size, palette [3]color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	for y := 0; y < size.H; y++ {
		ratio := float64(y) / float64(size.H)
		from, to, t := palette[0], palette[1], ratio*2
		if ratio >= 0.5 {
			from, to, t = palette[1], palette[2], (ratio-0.5)*2
		}
		c := color.RGBA{
			R: lerp(from.R, to.R, t),
			G: lerp(from.G, to.G, t),
			B: lerp(from.B, to.B, t),
			A: 255,
		}
		draw.Draw(img, image.Rect(0, y, size.W, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

// mandala draws concentric rings, each carrying twelve dots, on a transparent square.
func mandala(side int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	center := float64(side) / 2
	ring := color.NRGBA{255, 140, 0, 100}
	dot := color.NRGBA{255, 165, 0, 80}

	var radii []float64
	for r := 50; r < side/2; r += 80 {
		radii = append(radii, float64(r))
	}

	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			for _, r := range radii {
				if math.Abs(d-r) <= 1.5 {
					img.Set(x, y, ring)
					break
				}
			}
		}
	}

	const dots, dotRadius = 12, 15.0
	for _, r := range radii {
		for i := 0; i < dots; i++ {
			angle := 2 * math.Pi * float64(i) / dots
			cx := center + r*0.8*math.Cos(angle)
			cy := center + r*0.8*math.Sin(angle)
			fillCircle(img, cx, cy, dotRadius, dot)
		}
	}
	return img
}

func fillCircle(img *image.RGBA, cx, cy, r float64, c color.Color) {
	b := img.Bounds()
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			if !image.Pt(x, y).In(b) {
				continue
			}
			if math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) <= r {
				img.Set(x, y, c)
			}
		}
	}
}
