package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// Listing is the content of a generated store card.
type Listing struct {
	AppName   string
	Developer string
	Rating    string
	Button    string
	URL       string
}

// DefaultListing is used when the request does not override the card content.
var DefaultListing = Listing{
	AppName:   "Divine Wallpapers",
	Developer: "Spiritual Apps",
	Rating:    "4.8 / 5",
	Button:    "Install",
	URL:       "https://play.google.com/store/apps/details?id=com.divine.wallpapers",
}

var (
	white      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	black      = color.RGBA{0x00, 0x00, 0x00, 0xff}
	grey       = color.RGBA{0x66, 0x66, 0x66, 0xff}
	storeGreen = color.RGBA{0x01, 0x87, 0x5f, 0xff}
	iconBlue   = color.RGBA{0x42, 0x85, 0xf4, 0xff}

	screenshotColors = []color.RGBA{
		{0xff, 0x6b, 0x6b, 0xff},
		{0x4e, 0xcd, 0xc4, 0xff},
		{0x45, 0xb7, 0xd1, 0xff},
	}
)

// StoreCard renders a store listing page sized for the phone screen, with a QR code
// pointing at the listing URL.
func StoreCard(size media.Size, l Listing) (*image.RGBA, error) {
	if size.W < 200 || size.H < 400 {
		return nil, fmt.Errorf("store card size %s too small", size)
	}

	img := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	fill(img, img.Bounds(), white)

	// Layout is designed on a 720 wide canvas and scaled.
	unit := float64(size.W) / 720
	px := func(v float64) int { return int(v * unit) }
	textScale := max(1, px(3))

	icon := image.Rect(px(50), px(100), px(250), px(300))
	fill(img, icon, iconBlue)

	textX := icon.Max.X + px(30)
	drawText(img, l.AppName, textX, icon.Min.Y+px(30), textScale, black)
	drawText(img, l.Developer, textX, icon.Min.Y+px(100), max(1, textScale*2/3), grey)
	drawText(img, l.Rating, textX, icon.Min.Y+px(150), max(1, textScale*2/3), storeGreen)

	button := image.Rect(px(50), icon.Max.Y+px(100), px(670), icon.Max.Y+px(220))
	fill(img, button, storeGreen)
	tw, th := textSize(l.Button, textScale)
	drawText(img, l.Button, button.Min.X+(button.Dx()-tw)/2, button.Min.Y+(button.Dy()-th)/2, textScale, white)

	shotsY := button.Max.Y + px(80)
	drawText(img, "Screenshots", px(50), shotsY, textScale, black)
	for i, c := range screenshotColors {
		x := px(50) + i*px(220)
		fill(img, image.Rect(x, shotsY+px(60), x+px(200), shotsY+px(310)), c)
	}

	if l.URL != "" {
		side := px(260)
		qr, err := qrcode.New(l.URL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("qr code: %w", err)
		}
		code := qr.Image(side)
		at := image.Pt((size.W-side)/2, size.H-side-px(60))
		if at.Y > shotsY+px(320) {
			draw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(side, side))}, code, code.Bounds().Min, draw.Src)
		}
	}

	return img, nil
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// textSize returns the pixel size of s drawn with the basic face at the given scale.
func textSize(s string, scale int) (int, int) {
	face := basicfont.Face7x13
	return font.MeasureString(face, s).Ceil() * scale, face.Metrics().Height.Ceil() * scale
}

// drawText renders s with the 7x13 bitmap face and enlarges it by an integer factor,
// keeping glyph edges sharp.
func drawText(dst *image.RGBA, s string, x, y, scale int, c color.Color) {
	if s == "" {
		return
	}
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Metrics().Height.Ceil()

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	target := image.Rect(x, y, x+w*scale, y+h*scale)
	xdraw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}
