// Package flash is the flash mode capability plugin. A UI publishes ModeRequestEvent on the
// session's event bus; the plugin records the request and writes it into the next still capture
// parameters or capture and preview requests, provided both the plugin's configured modes and the
// device support it.
package flash

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camview/capability"
	"go.viam.com/camview/events"
	"go.viam.com/camview/logging"
)

// PluginType is the type name flash plugins are registered under.
const PluginType = "flash_mode"

// LegacyKey is the legacy parameter holding the flash mode.
const LegacyKey = "flash-mode"

func init() {
	capability.RegisterPlugin(PluginType, capability.PluginRegistration[*Config]{
		Constructor: func(
			ctx context.Context,
			bus *events.Bus,
			conf *Config,
			logger logging.Logger,
		) (capability.Plugin, error) {
			p, err := NewPlugin(bus, conf.Modes, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	})
}

// ModeRequestEvent asks flash plugins to use Mode from now on.
type ModeRequestEvent struct {
	Mode Mode
}

// ModeChangedEvent is published after a plugin has taken a ModeRequestEvent. Observers query
// the plugin for the new mode.
type ModeChangedEvent struct{}

// Plugin is the flash mode plugin.
type Plugin struct {
	bus    *events.Bus
	modes  []Mode
	logger logging.Logger

	selection capability.Selection[Mode]
	sub       events.Subscription

	mu        sync.Mutex
	destroyed bool
	legacy    *legacyConfigurator
	modern    *modernConfigurator

	destroyOnce sync.Once
	destroyErr  error
}

var _ capability.Plugin = (*Plugin)(nil)

// NewPlugin returns a plugin that may set any of modes. It is subscribed to bus when it returns.
func NewPlugin(bus *events.Bus, modes []Mode, logger logging.Logger) (*Plugin, error) {
	if bus == nil {
		return nil, errors.New("flash plugin needs an event bus")
	}
	p := &Plugin{
		bus:    bus,
		modes:  append([]Mode{}, modes...),
		logger: logger,
	}
	sub, err := events.Subscribe(bus, p.onModeRequest)
	if err != nil {
		return nil, errors.Wrap(err, "cannot subscribe flash plugin")
	}
	p.sub = sub
	return p, nil
}

// onModeRequest holds p.mu only while it records the mode, so an observer of ModeChangedEvent may
// destroy the plugin.
func (p *Plugin) onModeRequest(ev ModeRequestEvent) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.selection.Select(ev.Mode)
	p.mu.Unlock()

	p.logger.Debugw("flash mode requested", "mode", ev.Mode.String())
	if err := p.bus.Publish(ModeChangedEvent{}); err != nil {
		p.logger.Warnw("cannot publish flash mode change", "error", err)
	}
}

// Selected returns the last requested mode. The bool is false until a mode has been requested.
// The mode is returned whether or not it is supported.
func (p *Plugin) Selected() (Mode, bool) {
	return p.selection.Get()
}

// Modes returns the modes the plugin was configured with.
func (p *Plugin) Modes() []Mode {
	return append([]Mode{}, p.modes...)
}

func (p *Plugin) allows(mode Mode) bool {
	return lo.Contains(p.modes, mode)
}

// BuildConfigurator returns the plugin's configurator for backend, creating it on first use.
func (p *Plugin) BuildConfigurator(backend capability.Backend) (capability.Configurator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch backend {
	case capability.Legacy:
		if p.legacy == nil {
			p.legacy = &legacyConfigurator{plugin: p}
		}
		return p.legacy, nil
	case capability.Modern:
		if p.modern == nil {
			p.modern = &modernConfigurator{plugin: p}
		}
		return p.modern, nil
	default:
		return nil, errors.Wrapf(capability.ErrUnknownBackend, "%d", int(backend))
	}
}

// Validate accepts every session.
func (p *Plugin) Validate(capability.Session) error {
	return nil
}

// Destroy unsubscribes the plugin. Requests published afterwards are not seen, even by a delivery
// that was already under way. It is safe to call from an event handler.
func (p *Plugin) Destroy() error {
	p.destroyOnce.Do(func() {
		p.mu.Lock()
		p.destroyed = true
		p.mu.Unlock()

		err := p.bus.Unsubscribe(p.sub)
		// A closed bus has already dropped every subscription.
		if err != nil && !errors.Is(err, events.ErrBusClosed) {
			p.destroyErr = err
		}
	})
	return p.destroyErr
}

// unsupported logs the single warning for a request the plugin will not write.
func (p *Plugin) unsupported(backend capability.Backend, mode Mode, reason string) {
	p.logger.Warnw("no support for requested flash mode",
		"mode", mode.String(),
		"backend", backend.String(),
		"reason", reason,
	)
}

type legacyConfigurator struct {
	capability.LegacyBase
	plugin *Plugin
}

func (c *legacyConfigurator) ConfigureStillCamera(
	info capability.DeviceInfo,
	params *capability.LegacyParameters,
) *capability.LegacyParameters {
	if params == nil {
		return nil
	}
	mode, ok := c.plugin.Selected()
	if !ok {
		c.plugin.logger.Debugw("no flash mode requested", "camera", info.ID)
		return params
	}
	switch {
	case !c.plugin.allows(mode):
		c.plugin.unsupported(capability.Legacy, mode, "not a configured mode")
	case !lo.Contains(params.Supported(LegacyKey), mode.LegacyValue()):
		c.plugin.unsupported(capability.Legacy, mode, "not supported by the camera")
	default:
		params.Set(LegacyKey, mode.LegacyValue())
	}
	return params
}

type modernConfigurator struct {
	capability.ModernBase
	plugin *Plugin
}

func (c *modernConfigurator) AddToCaptureRequest(
	chars *capability.Characteristics,
	_ bool,
	builder *capability.RequestBuilder,
) {
	c.apply(chars, builder)
}

func (c *modernConfigurator) AddToPreviewRequest(
	chars *capability.Characteristics,
	builder *capability.RequestBuilder,
) {
	c.apply(chars, builder)
}

func (c *modernConfigurator) apply(chars *capability.Characteristics, builder *capability.RequestBuilder) {
	mode, ok := c.plugin.Selected()
	if !ok {
		c.plugin.logger.Debug("no flash mode requested")
		return
	}
	if !c.plugin.allows(mode) {
		c.plugin.unsupported(capability.Modern, mode, "not a configured mode")
		return
	}
	ae, ok := mode.ModernAEMode()
	if !ok {
		c.plugin.unsupported(capability.Modern, mode, "no auto exposure mode")
		return
	}
	available, _ := chars.Ints(capability.ControlAEAvailableModes)
	if !lo.Contains(available, ae) {
		c.plugin.unsupported(capability.Modern, mode, "not supported by the camera")
		return
	}
	builder.Set(capability.ControlAEMode, ae)
}
