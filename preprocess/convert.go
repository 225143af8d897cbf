package preprocess

import (
	"fmt"

	"github.com/swdee/go-bytetrack/affine"
	"gocv.io/x/gocv"
)

// MatToRaster copies the pixel data of a Mat into an affine.Raster.  The
// Mat must be of type 8UC1, 8UC3, or 8UC4, the channel ordering is carried
// over unchanged
func MatToRaster(m gocv.Mat) (*affine.Raster, error) {

	if m.Empty() {
		return nil, fmt.Errorf("mat is empty")
	}

	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return nil, fmt.Errorf("unsupported mat type %d, must be 8UC1, 8UC3, or 8UC4",
			int(m.Type()))
	}

	// make mat continuous so ToBytes returns packed rows
	src := m

	if !m.IsContinuous() {
		src = m.Clone()
		defer src.Close()
	}

	return &affine.Raster{
		Pix:      src.ToBytes(),
		Width:    src.Cols(),
		Height:   src.Rows(),
		Channels: src.Channels(),
	}, nil
}

// RasterToMat copies an affine.Raster into a new Mat of the matching 8UC1,
// 8UC3, or 8UC4 type.  The caller must Close the returned Mat
func RasterToMat(r *affine.Raster) (gocv.Mat, error) {

	if r == nil || len(r.Pix) == 0 {
		return gocv.Mat{}, fmt.Errorf("raster is empty")
	}

	if len(r.Pix) != r.Width*r.Height*r.Channels {
		return gocv.Mat{}, fmt.Errorf("raster pixel data has length %d, expected %d",
			len(r.Pix), r.Width*r.Height*r.Channels)
	}

	var matType gocv.MatType

	switch r.Channels {
	case 1:
		matType = gocv.MatTypeCV8UC1
	case 3:
		matType = gocv.MatTypeCV8UC3
	case 4:
		matType = gocv.MatTypeCV8UC4
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported channel count %d, must be 1, 3, or 4",
			r.Channels)
	}

	return gocv.NewMatFromBytes(r.Height, r.Width, matType, r.Pix)
}
