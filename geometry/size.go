// Package geometry holds the small value types shared by the preview code: sizes, display
// rotations, configuration orientations and 2D affine transforms.
package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Size is a frame or view dimension in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewSize returns a Size. It does not validate; see Valid.
func NewSize(width, height int) Size {
	return Size{Width: width, Height: height}
}

// ParseSize parses "<width>x<height>", e.g. "1920x1080".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, errors.Errorf("size %q must be formatted as <width>x<height>", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, errors.Wrapf(err, "bad width in size %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, errors.Wrapf(err, "bad height in size %q", s)
	}
	return Size{Width: width, Height: height}, nil
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Swapped returns the size with width and height exchanged.
func (s Size) Swapped() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// AspectRatio is width / height. It is 0 for an invalid size.
func (s Size) AspectRatio() float64 {
	if !s.Valid() {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

// Rect is the r2 rectangle from the origin to (Width, Height).
func (s Size) Rect() r2.Rect {
	return r2.RectFromPoints(r2.Point{}, r2.Point{X: float64(s.Width), Y: float64(s.Height)})
}

// Center is the middle of Rect.
func (s Size) Center() r2.Point {
	return r2.Point{X: float64(s.Width) / 2, Y: float64(s.Height) / 2}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
