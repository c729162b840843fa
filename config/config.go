// Package config reads the JSON document describing a camera preview session: which backend
// and camera to drive, how the preview is shown, which capability plugins to load and how
// verbosely to log.
package config

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camview/capability"
	"go.viam.com/camview/geometry"
	"go.viam.com/camview/logging"
	"go.viam.com/camview/utils"
)

// A Config describes a camera preview session.
type Config struct {
	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`

	Debug     bool                          `json:"debug,omitempty"`
	LogConfig []logging.LoggerPatternConfig `json:"log,omitempty"`

	// Backend defaults to legacy.
	Backend capability.Backend `json:"backend"`
	// Facing defaults to back.
	Facing  capability.Facing `json:"facing"`
	Preview PreviewConfig     `json:"preview"`
	Plugins []PluginConfig    `json:"plugins,omitempty"`
}

// PreviewConfig describes the preview stream.
type PreviewConfig struct {
	// Width and Height are the frame size. Both zero means the size is not known yet.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// Mirror defaults to true for front facing cameras.
	Mirror *bool `json:"mirror,omitempty"`
}

// Size returns the preview size and whether one is configured.
func (pc PreviewConfig) Size() (geometry.Size, bool) {
	if pc.Width == 0 && pc.Height == 0 {
		return geometry.Size{}, false
	}
	return geometry.NewSize(pc.Width, pc.Height), true
}

// MirrorFor returns whether the preview of a camera facing the given way is mirrored.
func (pc PreviewConfig) MirrorFor(facing capability.Facing) bool {
	if pc.Mirror != nil {
		return *pc.Mirror
	}
	return facing == capability.FacingFront
}

// Validate ensures both dimensions are set together and positive.
func (pc PreviewConfig) Validate(path string) error {
	if pc.Width == 0 && pc.Height == 0 {
		return nil
	}
	if pc.Width <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if pc.Height <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "height")
	}
	return nil
}

// A PluginConfig names a capability plugin to load and carries its type specific attributes.
type PluginConfig struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (pc PluginConfig) Validate(path string) error {
	if pc.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if pc.Type == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	}
	return nil
}

// Ensure validates the config. It does not check that plugin types are registered; that
// happens when the plugins are built.
func (c *Config) Ensure() error {
	for idx, lpc := range c.LogConfig {
		if err := lpc.Validate(fmt.Sprintf("%s.%d", "log", idx)); err != nil {
			return err
		}
	}
	if !c.Backend.Valid() {
		return utils.NewConfigValidationError("backend", errors.Wrapf(capability.ErrUnknownBackend, "%d", int(c.Backend)))
	}
	if err := c.Preview.Validate("preview"); err != nil {
		return err
	}
	for idx, pc := range c.Plugins {
		if err := pc.Validate(fmt.Sprintf("%s.%d", "plugins", idx)); err != nil {
			return err
		}
	}
	if dups := lo.FindDuplicates(lo.Map(c.Plugins, func(pc PluginConfig, _ int) string {
		return pc.Name
	})); len(dups) > 0 {
		return utils.NewConfigValidationError("plugins", errors.Errorf("duplicate plugin names %v", dups))
	}
	return nil
}

// ApplyLogging turns on debug logging if the config asks for it and applies the log patterns to
// every logger in registry.
func (c *Config) ApplyLogging(registry *logging.Registry, logger logging.Logger) error {
	UpdateFileConfigDebug(c.Debug)
	return registry.UpdateConfig(c.LogConfig, logger)
}

// String prints the session settings followed by a table of the plugins.
func (c *Config) String() string {
	preview := "unknown"
	if size, ok := c.Preview.Size(); ok {
		preview = size.String()
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Name", "Type", "Attributes"})
	for idx, pc := range c.Plugins {
		t.AppendRow(table.Row{idx, pc.Name, pc.Type, fmt.Sprint(map[string]interface{}(pc.Attributes))})
	}
	return fmt.Sprintf("%s backend, %s camera, preview %s, mirror %t\n%s",
		c.Backend, c.Facing, preview, c.Preview.MirrorFor(c.Facing), t.Render())
}
