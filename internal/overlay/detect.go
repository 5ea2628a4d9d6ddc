package overlay

import (
	"fmt"
	"image"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// MinScreenArea is the smallest transparent region accepted as a phone screen.
const MinScreenArea = 10000

// DetectScreen finds the largest fully enclosed transparent region of a frame overlay.
// Transparent areas touching the image border are the surroundings of the device, not
// its screen, and are skipped.
func DetectScreen(img image.Image) (media.Rect, error) {
	bounds := img.Bounds()
	mask := transparencyMask(img)

	visited := make([][]bool, bounds.Dy())
	for i := range visited {
		visited[i] = make([]bool, bounds.Dx())
	}

	var best image.Rectangle
	bestArea := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !mask[y-bounds.Min.Y][x-bounds.Min.X] || visited[y-bounds.Min.Y][x-bounds.Min.X] {
				continue
			}
			rect, area := floodFill(mask, visited, bounds, x, y)
			if rect.Min.X == bounds.Min.X || rect.Min.Y == bounds.Min.Y ||
				rect.Max.X == bounds.Max.X || rect.Max.Y == bounds.Max.Y {
				continue
			}
			if area > bestArea {
				best, bestArea = rect, area
			}
		}
	}

	if bestArea < MinScreenArea {
		return media.Rect{}, fmt.Errorf("no transparent screen area found in overlay")
	}
	return media.Rect{
		X: best.Min.X - bounds.Min.X,
		Y: best.Min.Y - bounds.Min.Y,
		W: best.Dx(),
		H: best.Dy(),
	}, nil
}

// transparencyMask marks pixels with alpha below one half.
func transparencyMask(img image.Image) [][]bool {
	bounds := img.Bounds()
	mask := make([][]bool, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := make([]bool, bounds.Dx())
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			row[x-bounds.Min.X] = a < 0x8000
		}
		mask[y-bounds.Min.Y] = row
	}
	return mask
}

// floodFill walks a 4-connected transparent region and returns its bounds and pixel count.
func floodFill(mask [][]bool, visited [][]bool, bounds image.Rectangle, startX, startY int) (image.Rectangle, int) {
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	area := 0

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y
		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		ix, iy := x-bounds.Min.X, y-bounds.Min.Y
		if visited[iy][ix] || !mask[iy][ix] {
			continue
		}
		visited[iy][ix] = true
		area++

		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), area
}

// FitContentArea scales a screen rectangle detected on an overlay of size from onto an
// output of size to.
func FitContentArea(screen media.Rect, from, to media.Size) media.Rect {
	if from == to || from.W == 0 || from.H == 0 {
		return screen
	}
	sx := float64(to.W) / float64(from.W)
	sy := float64(to.H) / float64(from.H)
	return media.Rect{
		X: int(float64(screen.X) * sx),
		Y: int(float64(screen.Y) * sy),
		W: int(float64(screen.W) * sx),
		H: int(float64(screen.H) * sy),
	}
}
