package geometry

import (
	"strings"

	"github.com/pkg/errors"
)

// Rotation is the rotation of the display relative to the device's natural orientation, as a
// number of quarter turns. The values match what display surfaces report.
type Rotation int

const (
	// Rotation0 is the natural orientation.
	Rotation0 Rotation = iota
	// Rotation90 is a quarter turn.
	Rotation90
	// Rotation180 is upside down.
	Rotation180
	// Rotation270 is three quarter turns.
	Rotation270
)

// RotationFromDegrees converts any multiple of 90 degrees, positive or negative, into a Rotation.
func RotationFromDegrees(degrees int) (Rotation, error) {
	if degrees%90 != 0 {
		return Rotation0, errors.Errorf("rotation must be a multiple of 90 degrees, got %d", degrees)
	}
	return Rotation(((degrees/90)%4 + 4) % 4), nil
}

// Valid reports whether r is one of the four rotations.
func (r Rotation) Valid() bool {
	return r >= Rotation0 && r <= Rotation270
}

// Degrees returns 0, 90, 180 or 270.
func (r Rotation) Degrees() int {
	return int(r) * 90
}

// IsQuarterTurn is true for 90 and 270, where the display's axes are swapped relative to its
// natural orientation.
func (r Rotation) IsQuarterTurn() bool {
	return r == Rotation90 || r == Rotation270
}

func (r Rotation) String() string {
	switch r {
	case Rotation0:
		return "0"
	case Rotation90:
		return "90"
	case Rotation180:
		return "180"
	case Rotation270:
		return "270"
	default:
		return "invalid"
	}
}

// Orientation is the orientation of the current UI configuration.
type Orientation int

const (
	// Portrait is taller than wide.
	Portrait Orientation = iota
	// Landscape is wider than tall.
	Landscape
)

// OrientationFromString parses "portrait" or "landscape".
func OrientationFromString(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Portrait, errors.Errorf("unknown orientation %q", s)
}

// OrientationOf returns the orientation of a size. Square sizes are portrait.
func OrientationOf(s Size) Orientation {
	if s.Width > s.Height {
		return Landscape
	}
	return Portrait
}

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}
