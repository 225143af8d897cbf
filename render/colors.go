package render

import (
	"image/color"
	"math"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// TrackColor returns a stable color for the given track ID.  Hues are
// stepped around the color wheel by the golden angle so consecutive IDs
// get visually distinct colors
func TrackColor(id int64) color.RGBA {
	hue := math.Mod(float64(id)*137.508, 360)
	return hsvToRGBA(hue, 0.8, 0.9)
}

// hsvToRGBA converts a color from HSV space.  Hue is in degrees with
// saturation and value in the range 0 to 1
func hsvToRGBA(h, s, v float64) color.RGBA {

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64

	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}
