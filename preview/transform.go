// Package preview computes how camera preview frames are placed on a view: the transform that
// keeps frames upright and at their aspect ratio regardless of display rotation, mirroring and
// whether the device is natively landscape.
package preview

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/camview/geometry"
)

// ErrInvalidGeometry is returned when a preview or view size is not positive.
var ErrInvalidGeometry = errors.New("invalid preview geometry")

// Params are the inputs of ComputeTransform.
type Params struct {
	// Preview is the native frame size, in sensor (landscape) orientation.
	Preview geometry.Size
	// View is the on-screen size of the surface.
	View geometry.Size
	// Rotation is the display rotation as reported by the host.
	Rotation geometry.Rotation
	// DefaultLandscape is whether the device is natively landscape. See IsDefaultLandscape.
	DefaultLandscape bool
	// Mirror reflects the frame horizontally, for front facing cameras.
	Mirror bool
}

// Validate checks the sizes and rotation.
func (p Params) Validate() error {
	if !p.Preview.Valid() {
		return errors.Wrapf(ErrInvalidGeometry, "preview size %s", p.Preview)
	}
	if !p.View.Valid() {
		return errors.Wrapf(ErrInvalidGeometry, "view size %s", p.View)
	}
	if !p.Rotation.Valid() {
		return errors.Wrapf(ErrInvalidGeometry, "rotation %d", int(p.Rotation))
	}
	return nil
}

// EffectiveRotation is the rotation used to pick a branch of the transform. Natively landscape
// hardware reports rotations a quarter turn off from a portrait reference, so they are advanced
// by one step; an advance that lands on 270 is treated as 90 and one past 270 wraps to 0.
func EffectiveRotation(rotation geometry.Rotation, defaultLandscape bool) geometry.Rotation {
	if !defaultLandscape {
		return rotation
	}
	advanced := (rotation + 1) % 4
	if advanced == geometry.Rotation270 {
		return geometry.Rotation90
	}
	return advanced
}

// ComputeTransform returns the transform that maps preview frames, already stretched to the
// view's bounds by the surface, onto the view. Every step is post-composed about the view's
// center:
//
//  1. mirror horizontally, if requested;
//  2. scale so the frame keeps its aspect ratio inside the view;
//  3. for quarter turns, rotate by 90*(rotation-2) degrees and shift by the crop offset;
//     for 180, rotate by 180.
//
// Sizes that are not positive return the identity and ErrInvalidGeometry. The result depends
// only on p.
func ComputeTransform(p Params) (geometry.Affine, error) {
	if err := p.Validate(); err != nil {
		return geometry.Identity(), err
	}

	var (
		previewW = float64(p.Preview.Width)
		previewH = float64(p.Preview.Height)
		viewW    = float64(p.View.Width)
		viewH    = float64(p.View.Height)
		center   = p.View.Center()
		txform   = geometry.Identity()
	)

	if p.Mirror {
		txform = txform.PostScale(-1, 1, center)
	}

	rotation := EffectiveRotation(p.Rotation, p.DefaultLandscape)

	// Frame dimensions are in sensor orientation, so they are crossed with the view's.
	scaleX := previewH / viewW
	scaleY := previewW / viewH

	switch rotation {
	case geometry.Rotation90, geometry.Rotation270:
		secScaleX := previewW / viewW
		secScaleY := previewH / viewH
		coeff := math.Max(secScaleX, secScaleY)

		txform = txform.PostScale(scaleX/coeff, scaleY/coeff, center)
		txform = txform.PostRotate(float64(90*(int(rotation)-2)), center)

		if p.DefaultLandscape {
			offset := math.Abs(previewH-viewH*secScaleX) / (2 * secScaleX)
			txform = txform.PostTranslate(0, -offset)
		} else {
			offset := math.Abs(previewW-viewW*secScaleY) / (2 * secScaleY)
			txform = txform.PostTranslate(-offset, 0)
		}
	case geometry.Rotation180:
		coeff := math.Max(scaleX, scaleY)
		txform = txform.PostScale(scaleX/coeff, scaleY/coeff, center)
		txform = txform.PostRotate(180, center)
	default:
		coeff := math.Max(scaleX, scaleY)
		txform = txform.PostScale(scaleX/coeff, scaleY/coeff, center)
	}

	return txform, nil
}
