package affine

import (
	"fmt"
	"math"
)

// Interpolation selects how source pixels are sampled during a warp
type Interpolation int

const (
	// InterpNearest samples the nearest source pixel
	InterpNearest Interpolation = iota
	// InterpBilinear blends the four surrounding source pixels
	InterpBilinear
)

// BorderMode selects how samples outside the source raster are produced
type BorderMode int

const (
	// BorderConstant reads out of range samples as a fixed value
	BorderConstant BorderMode = iota
	// BorderReplicate clamps coordinates to the nearest edge pixel
	BorderReplicate
	// BorderReflect mirrors coordinates at the raster edges without
	// repeating the edge pixel
	BorderReflect
	// BorderWrap tiles the raster
	BorderWrap
)

// Border bundles a border mode with the fill value used by BorderConstant
type Border struct {
	Mode  BorderMode
	Value uint8
}

// ConstantBorder returns a BorderConstant border filling with v
func ConstantBorder(v uint8) Border {
	return Border{Mode: BorderConstant, Value: v}
}

// Warp resamples src into dst where m maps source coordinates to destination
// coordinates.  Every destination pixel is traced back through the inverse
// transform so the output has no holes.  src and dst must share a channel
// count and m must be invertible
func Warp(src, dst *Raster, m Matrix, interp Interpolation, border Border) error {

	if src.Channels != dst.Channels {
		return fmt.Errorf("channel count mismatch: src %d, dst %d",
			src.Channels, dst.Channels)
	}

	if src.Width <= 0 || src.Height <= 0 {
		return fmt.Errorf("empty source raster %dx%d", src.Width, src.Height)
	}

	inv, err := m.Inverse()

	if err != nil {
		return fmt.Errorf("transform not invertible: %w", err)
	}

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {

			sx, sy := inv.TransformPoint(float32(x), float32(y))

			for c := 0; c < dst.Channels; c++ {
				var v uint8

				if interp == InterpBilinear {
					v = sampleBilinear(src, sx, sy, c, border)
				} else {
					v = sampleNearest(src, sx, sy, c, border)
				}

				dst.Set(x, y, c, v)
			}
		}
	}

	return nil
}

// sampleNearest reads the source pixel nearest to (x, y)
func sampleNearest(src *Raster, x, y float32, c int, border Border) uint8 {

	ix := int(math.Round(float64(x)))
	iy := int(math.Round(float64(y)))

	return sampleAt(src, ix, iy, c, border)
}

// sampleBilinear blends the four pixels surrounding (x, y), weighted by the
// fractional parts of the coordinate
func sampleBilinear(src *Raster, x, y float32, c int, border Border) uint8 {

	x0 := int(math.Floor(float64(x)))
	y0 := int(math.Floor(float64(y)))

	fx := float64(x) - float64(x0)
	fy := float64(y) - float64(y0)

	p00 := float64(sampleAt(src, x0, y0, c, border))
	p10 := float64(sampleAt(src, x0+1, y0, c, border))
	p01 := float64(sampleAt(src, x0, y0+1, c, border))
	p11 := float64(sampleAt(src, x0+1, y0+1, c, border))

	v := p00*(1-fx)*(1-fy) + p10*fx*(1-fy) + p01*(1-fx)*fy + p11*fx*fy

	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}

	return uint8(v + 0.5)
}

// sampleAt reads pixel (x, y), applying the border mode to out of range
// coordinates
func sampleAt(src *Raster, x, y, c int, border Border) uint8 {

	x, okX := resolveCoord(x, src.Width, border.Mode)
	y, okY := resolveCoord(y, src.Height, border.Mode)

	if !okX || !okY {
		return border.Value
	}

	return src.At(x, y, c)
}

// resolveCoord maps the coordinate v into [0, size) according to the border
// mode.  The boolean is false when the sample must come from the constant
// border value instead
func resolveCoord(v, size int, mode BorderMode) (int, bool) {

	if v >= 0 && v < size {
		return v, true
	}

	switch mode {
	case BorderReplicate:
		if v < 0 {
			return 0, true
		}
		return size - 1, true

	case BorderReflect:
		if v < 0 {
			v = -v - 1
		} else {
			v = 2*size - v - 1
		}

		// overshoot past a full mirror period clamps to the edge
		if v < 0 {
			v = 0
		} else if v >= size {
			v = size - 1
		}

		return v, true

	case BorderWrap:
		v %= size
		if v < 0 {
			v += size
		}
		return v, true

	default:
		// BorderConstant
		return 0, false
	}
}
