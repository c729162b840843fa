package flash

import (
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/camview/capability"
)

// Mode is a flash mode.
type Mode int

// The flash modes. The zero value is Off.
const (
	Off Mode = iota
	On
	Auto
	RedEye
	Torch
)

var modeNames = map[Mode]string{
	Off:    "off",
	On:     "on",
	Auto:   "auto",
	RedEye: "red-eye",
	Torch:  "torch",
}

// modernAEModes maps modes to the modern backend's auto exposure modes. Torch is driven through
// the flash unit directly and has no auto exposure mode.
var modernAEModes = map[Mode]int{
	Off:    capability.AEModeOn,
	On:     capability.AEModeOnAlwaysFlash,
	Auto:   capability.AEModeOnAutoFlash,
	RedEye: capability.AEModeOnAutoFlashRedEye,
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ModeFromString parses a mode name. "redeye" is accepted for RedEye.
func ModeFromString(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "redeye" {
		return RedEye, nil
	}
	for mode, modeName := range modeNames {
		if modeName == name {
			return mode, nil
		}
	}
	return 0, errors.Errorf("unknown flash mode %q", s)
}

// LegacyValue is the legacy backend's value for the mode.
func (m Mode) LegacyValue() string {
	return m.String()
}

// ModernAEMode is the modern backend's auto exposure mode for m, if it has one.
func (m Mode) ModernAEMode() (int, bool) {
	ae, ok := modernAEModes[m]
	return ae, ok
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, errors.Errorf("unknown flash mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ModeFromString(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
