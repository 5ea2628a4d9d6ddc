package layer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/system"
)

// Placement is a layer with its resolved rectangle on the output frame.
type Placement struct {
	Layer Layer
	Rect  image.Rectangle
}

// Composite is an ordered stack of layers with a fixed output size and duration.
// Index 0 is the bottom of the stack.
type Composite struct {
	size       media.Size
	duration   float64
	placements []Placement
}

// Compose stacks layers in list order onto an output of the given size. The composite
// duration is fixed and does not depend on individual layer durations.
func Compose(layers []Layer, output media.Size, duration float64) (Composite, error) {
	if output.W <= 0 || output.H <= 0 {
		return Composite{}, fmt.Errorf("invalid output size %s", output)
	}
	if duration <= 0 {
		return Composite{}, fmt.Errorf("composite duration must be positive, got %f", duration)
	}
	if len(layers) == 0 {
		return Composite{}, fmt.Errorf("composite needs at least one layer")
	}

	placements := make([]Placement, 0, len(layers))
	for _, l := range layers {
		if err := l.Validate(); err != nil {
			return Composite{}, err
		}
		min := l.Position().Resolve(l.Size(), output)
		placements = append(placements, Placement{
			Layer: l,
			Rect:  image.Rectangle{Min: min, Max: min.Add(image.Point{X: l.Size().W, Y: l.Size().H})},
		})
	}

	return Composite{size: output, duration: duration, placements: placements}, nil
}

func (c Composite) Size() media.Size  { return c.size }
func (c Composite) Duration() float64 { return c.duration }

// Layers returns the layers bottom to top.
func (c Composite) Layers() []Layer {
	out := make([]Layer, len(c.placements))
	for i, p := range c.placements {
		out[i] = p.Layer
	}
	return out
}

// Placements returns a copy of the resolved layer rectangles.
func (c Composite) Placements() []Placement {
	out := make([]Placement, len(c.placements))
	copy(out, c.placements)
	return out
}

// FrameAt rasterizes the composite at time t.
func (c Composite) FrameAt(t float64) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, c.size.W, c.size.H))
	if err := c.RenderInto(dst, t); err != nil {
		return nil, err
	}
	return dst, nil
}

// RenderInto rasterizes the composite at time t into dst, which must match the output size.
// Later layers occlude earlier ones where opaque.
func (c Composite) RenderInto(dst *image.RGBA, t float64) error {
	if dst.Bounds().Dx() != c.size.W || dst.Bounds().Dy() != c.size.H {
		return fmt.Errorf("destination %v does not match composite size %s", dst.Bounds(), c.size)
	}
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	if t < 0 {
		t = 0
	}
	if t > c.duration {
		t = c.duration
	}

	for _, p := range c.placements {
		if t < p.Layer.Start() {
			continue
		}
		if err := drawLayer(dst, p.Rect, p.Layer, p.Layer.LocalTime(t), 1); err != nil {
			return err
		}
	}
	return nil
}

// drawLayer resizes the layer frame for local time t into rect and draws it over dst.
func drawLayer(dst *image.RGBA, rect image.Rectangle, l Layer, local, weight float64) error {
	alpha := l.Opacity() * weight
	if alpha <= 0 {
		return nil
	}

	frame, err := l.Source().FrameAt(l.SourceTime(local))
	if err != nil {
		return fmt.Errorf("layer %q: %w", l.Name(), err)
	}

	scaled := system.GetImage(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	defer system.PutImage(scaled)
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)

	var mask image.Image
	if alpha < 1 {
		mask = image.NewUniform(color.Alpha16{A: uint16(alpha * 0xffff)})
	}
	draw.DrawMask(dst, rect, scaled, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}
