package preview

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"go.viam.com/camview/geometry"
)

// RenderOptions tune Render. The zero value renders nearest neighbor on black.
type RenderOptions struct {
	Interpolator draw.Interpolator
	Background   color.Color
}

// StretchToView maps frame coordinates onto the view's bounds, ignoring aspect ratio. Surfaces
// do this before applying the preview transform.
func StretchToView(frame image.Rectangle, view geometry.Size) geometry.Affine {
	sx := float64(view.Width) / float64(frame.Dx())
	sy := float64(view.Height) / float64(frame.Dy())
	return geometry.Translate(-float64(frame.Min.X), -float64(frame.Min.Y)).PostScale(sx, sy, r2.Point{})
}

// Render draws frame the way a surface of the given size shows it under transform t: the frame is
// stretched to the view, then t is applied. Areas the frame does not reach keep the background.
func Render(frame image.Image, view geometry.Size, t geometry.Affine, opts *RenderOptions) (*image.NRGBA, error) {
	if !view.Valid() {
		return nil, errors.Wrapf(ErrInvalidGeometry, "view size %s", view)
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, errors.Wrap(ErrInvalidGeometry, "empty frame")
	}

	var interpolator draw.Interpolator = draw.NearestNeighbor
	var background color.Color = color.Black
	if opts != nil {
		if opts.Interpolator != nil {
			interpolator = opts.Interpolator
		}
		if opts.Background != nil {
			background = opts.Background
		}
	}

	dst := imaging.New(view.Width, view.Height, background)
	s2d := t.Mul(StretchToView(frame.Bounds(), view))
	interpolator.Transform(dst, s2d.Aff3(), frame, frame.Bounds(), draw.Over, nil)
	return dst, nil
}
