package preview

import "go.viam.com/camview/geometry"

// Display is the host's view of the screen. State returns rotation and configuration
// orientation from a single snapshot so that callers never combine values read at different
// times.
type Display interface {
	State() (geometry.Rotation, geometry.Orientation)
}

// StaticDisplay is a Display with fixed values.
type StaticDisplay struct {
	Rotation    geometry.Rotation
	Orientation geometry.Orientation
}

// State returns the fixed values.
func (d StaticDisplay) State() (geometry.Rotation, geometry.Orientation) {
	return d.Rotation, d.Orientation
}

// IsDefaultLandscape reports whether the device's natural orientation is landscape. Natural
// landscape devices show landscape content at rotation 0 and 180, natural portrait devices show
// portrait content there, so a mismatch between rotation parity and the current orientation
// reveals a landscape device.
func IsDefaultLandscape(rotation geometry.Rotation, orientation geometry.Orientation) bool {
	if rotation.IsQuarterTurn() {
		return orientation == geometry.Portrait
	}
	return orientation == geometry.Landscape
}

// IsDisplayDefaultLandscape classifies the display from one snapshot of its state.
func IsDisplayDefaultLandscape(display Display) bool {
	return IsDefaultLandscape(display.State())
}
