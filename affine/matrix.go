package affine

import (
	"errors"
	"gonum.org/v1/gonum/mat"
	"math"
)

// singularEps is the determinant magnitude below which the linear part of a
// transform is treated as non-invertible
const singularEps = 1e-10

var (
	// ErrSingularMatrix is returned when a transform cannot be inverted
	ErrSingularMatrix = errors.New("affine matrix is singular")

	// ErrDegenerateConfiguration is returned when corresponding points do
	// not determine a unique transform
	ErrDegenerateConfiguration = errors.New("degenerate point configuration")
)

// Point represents a 2D coordinate
type Point struct {
	X, Y float32
}

// Matrix is a 2x3 affine transform
//
//	| A11 A12 B1 |
//	| A21 A22 B2 |
//
// mapping the point (x, y) to (A11*x + A12*y + B1, A21*x + A22*y + B2)
type Matrix struct {
	A11, A12, B1 float32
	A21, A22, B2 float32
}

// Identity returns the identity transform
func Identity() Matrix {
	return Matrix{
		A11: 1, A12: 0, B1: 0,
		A21: 0, A22: 1, B2: 0,
	}
}

// Translation returns a transform shifting points by (tx, ty)
func Translation(tx, ty float32) Matrix {
	return Matrix{
		A11: 1, A12: 0, B1: tx,
		A21: 0, A22: 1, B2: ty,
	}
}

// Scaling returns a transform scaling points by sx horizontally and sy
// vertically about the origin
func Scaling(sx, sy float32) Matrix {
	return Matrix{
		A11: sx, A12: 0, B1: 0,
		A21: 0, A22: sy, B2: 0,
	}
}

// Rotation returns a rotation about the origin by angle degrees.  With the
// image convention of a downward y axis the rotation runs clockwise on
// screen
func Rotation(angle float32) Matrix {

	sin, cos := math.Sincos(float64(angle) * math.Pi / 180)

	return Matrix{
		A11: float32(cos), A12: float32(-sin), B1: 0,
		A21: float32(sin), A22: float32(cos), B2: 0,
	}
}

// RotationAbout returns a rotation by angle degrees combined with a uniform
// scale, keeping the point (cx, cy) fixed
func RotationAbout(cx, cy, angle, scale float32) Matrix {

	r := Rotation(angle)
	r.A11 *= scale
	r.A12 *= scale
	r.A21 *= scale
	r.A22 *= scale

	// shift the pivot to the origin, rotate, shift back
	return Translation(cx, cy).Compose(r).Compose(Translation(-cx, -cy))
}

// Compose returns the transform equivalent to applying other first and the
// receiver second
func (m Matrix) Compose(other Matrix) Matrix {
	return Matrix{
		A11: m.A11*other.A11 + m.A12*other.A21,
		A12: m.A11*other.A12 + m.A12*other.A22,
		B1:  m.A11*other.B1 + m.A12*other.B2 + m.B1,
		A21: m.A21*other.A11 + m.A22*other.A21,
		A22: m.A21*other.A12 + m.A22*other.A22,
		B2:  m.A21*other.B1 + m.A22*other.B2 + m.B2,
	}
}

// Det returns the determinant of the linear part of the transform
func (m Matrix) Det() float32 {
	return m.A11*m.A22 - m.A12*m.A21
}

// Inverse returns the inverse transform.  ErrSingularMatrix is returned when
// the linear part is not invertible
func (m Matrix) Inverse() (Matrix, error) {

	det := float64(m.A11)*float64(m.A22) - float64(m.A12)*float64(m.A21)

	if math.Abs(det) < singularEps {
		return Matrix{}, ErrSingularMatrix
	}

	invDet := 1.0 / det

	inv := Matrix{
		A11: float32(float64(m.A22) * invDet),
		A12: float32(-float64(m.A12) * invDet),
		A21: float32(-float64(m.A21) * invDet),
		A22: float32(float64(m.A11) * invDet),
	}

	// translation maps back through the inverted linear part
	inv.B1 = -(inv.A11*m.B1 + inv.A12*m.B2)
	inv.B2 = -(inv.A21*m.B1 + inv.A22*m.B2)

	return inv, nil
}

// TransformPoint applies the transform to the point (x, y)
func (m Matrix) TransformPoint(x, y float32) (float32, float32) {
	return m.A11*x + m.A12*y + m.B1, m.A21*x + m.A22*y + m.B2
}

// FromPoints computes the affine transform mapping three source points onto
// three destination points.  The six coefficients are solved as one 6x6
// linear system.  Collinear source points do not determine a unique
// transform and return ErrDegenerateConfiguration.  Collinear destination
// points are legal, the resulting transform is then rank deficient
func FromPoints(src, dst [3]Point) (Matrix, error) {

	// collinear sources leave the system singular
	area := float64(src[1].X-src[0].X)*float64(src[2].Y-src[0].Y) -
		float64(src[2].X-src[0].X)*float64(src[1].Y-src[0].Y)

	if math.Abs(area) < singularEps {
		return Matrix{}, ErrDegenerateConfiguration
	}

	a := mat.NewDense(6, 6, nil)
	b := mat.NewVecDense(6, nil)

	for i := 0; i < 3; i++ {
		x := float64(src[i].X)
		y := float64(src[i].Y)

		a.Set(i*2, 0, x)
		a.Set(i*2, 1, y)
		a.Set(i*2, 2, 1)
		a.Set(i*2+1, 3, x)
		a.Set(i*2+1, 4, y)
		a.Set(i*2+1, 5, 1)

		b.SetVec(i*2, float64(dst[i].X))
		b.SetVec(i*2+1, float64(dst[i].Y))
	}

	var sol mat.VecDense

	if err := sol.SolveVec(a, b); err != nil {
		return Matrix{}, ErrDegenerateConfiguration
	}

	return Matrix{
		A11: float32(sol.AtVec(0)), A12: float32(sol.AtVec(1)), B1: float32(sol.AtVec(2)),
		A21: float32(sol.AtVec(3)), A22: float32(sol.AtVec(4)), B2: float32(sol.AtVec(5)),
	}, nil
}
