package affine

// Raster holds interleaved 8 bit pixel data in row major order.  A gray
// image has Channels 1, a BGR image 3; any channel count is accepted
type Raster struct {
	// Pix is the pixel data, Channels bytes per pixel
	Pix []uint8
	// Width and Height are the raster dimensions in pixels
	Width  int
	Height int
	// Channels is the number of interleaved bytes per pixel
	Channels int
}

// NewRaster allocates a zeroed raster of the given size
func NewRaster(width, height, channels int) *Raster {
	return &Raster{
		Pix:      make([]uint8, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// At returns the value of channel c at pixel (x, y)
func (r *Raster) At(x, y, c int) uint8 {
	return r.Pix[(y*r.Width+x)*r.Channels+c]
}

// Set assigns the value of channel c at pixel (x, y)
func (r *Raster) Set(x, y, c int, v uint8) {
	r.Pix[(y*r.Width+x)*r.Channels+c] = v
}

// Fill sets every channel of every pixel to v
func (r *Raster) Fill(v uint8) {
	for i := range r.Pix {
		r.Pix[i] = v
	}
}

// Clone returns a deep copy of the raster
func (r *Raster) Clone() *Raster {
	out := NewRaster(r.Width, r.Height, r.Channels)
	copy(out.Pix, r.Pix)
	return out
}
