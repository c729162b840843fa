// Package capability defines the contract between capability plugins, such as flash mode
// control, and the two camera backends they configure. A plugin is asked for a configurator for
// whichever backend is live and gets back a value of that backend's configurator type.
package capability

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownBackend is returned for a backend tag that is neither Legacy nor Modern.
var ErrUnknownBackend = errors.New("unknown camera backend")

// Backend tags the camera API a session drives.
type Backend int

const (
	// Legacy is the synchronous API configured through a flat parameter set.
	Legacy Backend = iota
	// Modern is the request based API that configures capture and preview separately.
	Modern
)

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	return b == Legacy || b == Modern
}

func (b Backend) String() string {
	switch b {
	case Legacy:
		return "legacy"
	case Modern:
		return "modern"
	default:
		return "unknown"
	}
}

// BackendFromString parses "legacy" or "modern".
func BackendFromString(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy":
		return Legacy, nil
	case "modern":
		return Modern, nil
	default:
		return 0, errors.Wrapf(ErrUnknownBackend, "%q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, errors.Wrapf(ErrUnknownBackend, "%d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	parsed, err := BackendFromString(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Facing is the direction a camera points.
type Facing int

const (
	// FacingBack is the world facing camera.
	FacingBack Facing = iota
	// FacingFront is the user facing camera. Its preview is usually mirrored.
	FacingFront
)

func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

// FacingFromString parses "front" or "back".
func FacingFromString(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return FacingFront, nil
	case "back", "":
		return FacingBack, nil
	default:
		return 0, errors.Errorf("unknown camera facing %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Facing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Facing) UnmarshalText(text []byte) error {
	parsed, err := FacingFromString(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
