package bytetrack

import (
	"math"
)

// Tlwh (top-left x, top-left y, width, height) represents a 1x4 matrix
type Tlwh []float32

// Tlbr (top-left x, top-left y, bottom-right x, bottom-right y) represents
// a 1x4 matrix
type Tlbr []float32

// Cxcywh (center x, center y, width, height) represents a 1x4 matrix, the
// measurement layout consumed by the Kalman filter
type Cxcywh []float32

// Rect represents a rectangle with Tlwh (top-left x, top-left y, width,
// height) format
type Rect struct {
	Tlwh Tlwh
}

// NewRect creates a new Rect with given top-left coordinates and size
func NewRect(x, y, width, height float32) Rect {
	return Rect{
		Tlwh: Tlwh{x, y, width, height},
	}
}

// X returns the top-left x coordinate of the rectangle
func (r *Rect) X() float32 {
	return r.Tlwh[0]
}

// Y returns the top-left y coordinate of the rectangle
func (r *Rect) Y() float32 {
	return r.Tlwh[1]
}

// Width returns the width of the rectangle
func (r *Rect) Width() float32 {
	return r.Tlwh[2]
}

// Height returns the height of the rectangle
func (r *Rect) Height() float32 {
	return r.Tlwh[3]
}

// SetX sets the top-left x coordinate of the rectangle
func (r *Rect) SetX(x float32) {
	r.Tlwh[0] = x
}

// SetY sets the top-left y coordinate of the rectangle
func (r *Rect) SetY(y float32) {
	r.Tlwh[1] = y
}

// SetWidth sets the width of the rectangle
func (r *Rect) SetWidth(width float32) {
	r.Tlwh[2] = width
}

// SetHeight sets the height of the rectangle
func (r *Rect) SetHeight(height float32) {
	r.Tlwh[3] = height
}

// TLX returns the top-left x coordinate of the rectangle
func (r *Rect) TLX() float32 {
	return r.Tlwh[0]
}

// TLY returns the top-left y coordinate of the rectangle
func (r *Rect) TLY() float32 {
	return r.Tlwh[1]
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r *Rect) BRX() float32 {
	return r.Tlwh[0] + r.Tlwh[2]
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r *Rect) BRY() float32 {
	return r.Tlwh[1] + r.Tlwh[3]
}

// CenterX returns the center x coordinate of the rectangle
func (r *Rect) CenterX() float32 {
	return r.Tlwh[0] + r.Tlwh[2]/2
}

// CenterY returns the center y coordinate of the rectangle
func (r *Rect) CenterY() float32 {
	return r.Tlwh[1] + r.Tlwh[3]/2
}

// GetTlbr converts the rectangle to Tlbr (top-left, bottom-right) format
func (r *Rect) GetTlbr() Tlbr {
	return Tlbr{
		r.Tlwh[0],
		r.Tlwh[1],
		r.Tlwh[0] + r.Tlwh[2],
		r.Tlwh[1] + r.Tlwh[3],
	}
}

// GetCxcywh converts the rectangle to Cxcywh (center x, center y, width,
// height) format
func (r *Rect) GetCxcywh() Cxcywh {
	return Cxcywh{
		r.Tlwh[0] + r.Tlwh[2]/2,
		r.Tlwh[1] + r.Tlwh[3]/2,
		r.Tlwh[2],
		r.Tlwh[3],
	}
}

// CalcIoU calculates the Intersection over Union (IoU) with another
// rectangle.  Degenerate rectangles with zero or negative area score 0.
func (r *Rect) CalcIoU(other Rect) float32 {

	iw := float32(math.Min(float64(r.BRX()), float64(other.BRX())) -
		math.Max(float64(r.TLX()), float64(other.TLX())))

	if iw <= 0 {
		return 0
	}

	ih := float32(math.Min(float64(r.BRY()), float64(other.BRY())) -
		math.Max(float64(r.TLY()), float64(other.TLY())))

	if ih <= 0 {
		return 0
	}

	union := r.Tlwh[2]*r.Tlwh[3] + other.Tlwh[2]*other.Tlwh[3] - iw*ih

	if union <= 0 {
		return 0
	}

	return iw * ih / union
}

// GenerateRectByTlbr creates a Rect from Tlbr (top-left, bottom-right) format
func GenerateRectByTlbr(tlbr Tlbr) Rect {
	return NewRect(tlbr[0], tlbr[1], tlbr[2]-tlbr[0], tlbr[3]-tlbr[1])
}

// GenerateRectByCxcywh creates a Rect from Cxcywh (center x, center y,
// width, height) format
func GenerateRectByCxcywh(c Cxcywh) Rect {
	return NewRect(c[0]-c[2]/2, c[1]-c[3]/2, c[2], c[3])
}
