package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camview/utils"
)

// Affine is a 2D affine transform in row major order:
//
//	x' = m[0]*x + m[1]*y + m[2]
//	y' = m[3]*x + m[4]*y + m[5]
//
// It has the same layout as f64.Aff3 so it can be handed straight to x/image/draw. Affine values
// are immutable; the Post* methods return a new transform that applies the receiver first and
// the new operation second.
type Affine f64.Aff3

// ErrNotInvertible is returned by Invert for a degenerate transform.
var ErrNotInvertible = errors.New("transform is not invertible")

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{1, 0, 0, 0, 1, 0}
}

// Scale returns a scale by (sx, sy) about pivot.
func Scale(sx, sy float64, pivot r2.Point) Affine {
	return Affine{
		sx, 0, pivot.X - sx*pivot.X,
		0, sy, pivot.Y - sy*pivot.Y,
	}
}

// Rotate returns a rotation by degrees about pivot. Positive angles turn clockwise on a surface
// whose y axis points down.
func Rotate(degrees float64, pivot r2.Point) Affine {
	sin, cos := sinCosDeg(degrees)
	return Affine{
		cos, -sin, pivot.X - cos*pivot.X + sin*pivot.Y,
		sin, cos, pivot.Y - sin*pivot.X - cos*pivot.Y,
	}
}

// Translate returns a translation by (dx, dy).
func Translate(dx, dy float64) Affine {
	return Affine{1, 0, dx, 0, 1, dy}
}

// sinCosDeg is exact for multiples of 90 so that quarter turns do not leave 1e-17 residue in
// the matrix.
func sinCosDeg(degrees float64) (float64, float64) {
	if math.Mod(degrees, 90) == 0 {
		switch int(utils.ModAngDeg(degrees)) {
		case 0:
			return 0, 1
		case 90:
			return 1, 0
		case 180:
			return 0, -1
		case 270:
			return -1, 0
		}
	}
	return math.Sincos(utils.DegToRad(degrees))
}

// Mul returns the product a·b, the transform that applies b first and then a.
func (a Affine) Mul(b Affine) Affine {
	return Affine{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// PostScale applies a scale about pivot after a.
func (a Affine) PostScale(sx, sy float64, pivot r2.Point) Affine {
	return Scale(sx, sy, pivot).Mul(a)
}

// PostRotate applies a rotation about pivot after a.
func (a Affine) PostRotate(degrees float64, pivot r2.Point) Affine {
	return Rotate(degrees, pivot).Mul(a)
}

// PostTranslate applies a translation after a.
func (a Affine) PostTranslate(dx, dy float64) Affine {
	return Translate(dx, dy).Mul(a)
}

// Apply maps a point.
func (a Affine) Apply(p r2.Point) r2.Point {
	return r2.Point{
		X: a[0]*p.X + a[1]*p.Y + a[2],
		Y: a[3]*p.X + a[4]*p.Y + a[5],
	}
}

// MapRect returns the bounding box of the mapped corners of r. For the axis aligned results
// produced by scales and quarter turns this is exactly the mapped rectangle.
func (a Affine) MapRect(r r2.Rect) r2.Rect {
	v := r.Vertices()
	return r2.RectFromPoints(a.Apply(v[0]), a.Apply(v[1]), a.Apply(v[2]), a.Apply(v[3]))
}

// Determinant of the linear part.
func (a Affine) Determinant() float64 {
	return a[0]*a[4] - a[1]*a[3]
}

// Invert returns the inverse transform.
func (a Affine) Invert() (Affine, error) {
	if math.Abs(a.Determinant()) < 1e-12 {
		return Identity(), ErrNotInvertible
	}
	var inv mat.Dense
	if err := inv.Inverse(a.matrix()); err != nil {
		return Identity(), errors.Wrap(ErrNotInvertible, err.Error())
	}
	return Affine{
		inv.At(0, 0), inv.At(0, 1), inv.At(0, 2),
		inv.At(1, 0), inv.At(1, 1), inv.At(1, 2),
	}, nil
}

func (a Affine) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		a[0], a[1], a[2],
		a[3], a[4], a[5],
		0, 0, 1,
	})
}

// IsIdentity reports whether a is exactly the identity.
func (a Affine) IsIdentity() bool {
	return a == Identity()
}

// AlmostEqual compares element wise within epsilon.
func (a Affine) AlmostEqual(b Affine, epsilon float64) bool {
	for i := range a {
		if !utils.Float64AlmostEqual(a[i], b[i], epsilon) {
			return false
		}
	}
	return true
}

// Aff3 returns the transform as the x/image type.
func (a Affine) Aff3() f64.Aff3 {
	return f64.Aff3(a)
}

func (a Affine) String() string {
	return fmt.Sprintf("[%.4f %.4f %.4f; %.4f %.4f %.4f]", a[0], a[1], a[2], a[3], a[4], a[5])
}
