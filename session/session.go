// Package session assembles camera requests from capability plugins. A Session knows which
// backend is live and asks every plugin for that backend's configurator, in the order the
// plugins were given, whenever the host builds still capture parameters or capture and preview
// requests.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/camview/capability"
	"go.viam.com/camview/config"
	"go.viam.com/camview/events"
	"go.viam.com/camview/geometry"
	"go.viam.com/camview/logging"
	"go.viam.com/camview/preview"
	"go.viam.com/camview/utils"
)

// ErrWrongBackend is returned when asking a session for a request of the backend it is not
// driving.
var ErrWrongBackend = errors.New("operation not available on this session's backend")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// A Session drives one camera through one backend with a fixed set of plugins.
type Session struct {
	id      uuid.UUID
	backend capability.Backend
	facing  capability.Facing
	plugins []capability.Plugin
	logger  logging.Logger

	previewSize *geometry.Size
	mirror      bool

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	closeErr  error
}

var _ capability.Session = (*Session)(nil)

// New makes a new session and validates every plugin against it. The session owns the plugins
// from then on and destroys them in Close. If validation fails no session is returned and the
// plugins are left to the caller.
func New(
	backend capability.Backend,
	facing capability.Facing,
	logger logging.Logger,
	plugins ...capability.Plugin,
) (*Session, error) {
	if !backend.Valid() {
		return nil, errors.Wrapf(capability.ErrUnknownBackend, "%d", int(backend))
	}
	s := &Session{
		id:      uuid.New(),
		backend: backend,
		facing:  facing,
		plugins: append([]capability.Plugin{}, plugins...),
		logger:  logger,
		mirror:  facing == capability.FacingFront,
	}

	var err error
	for idx, p := range s.plugins {
		if vErr := p.Validate(s); vErr != nil {
			err = multierr.Append(err, errors.Wrapf(vErr, "plugin %d (%T) rejected the session", idx, p))
		}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FromConfig builds the plugins named in cfg through the plugin registry and returns a session
// using them. Plugins get a sublogger named after them.
func FromConfig(ctx context.Context, cfg *config.Config, bus *events.Bus, logger logging.Logger) (*Session, error) {
	plugins := make([]capability.Plugin, 0, len(cfg.Plugins))
	destroyAll := func(err error) error {
		for _, p := range plugins {
			err = multierr.Append(err, p.Destroy())
		}
		return err
	}

	for idx, pc := range cfg.Plugins {
		path := fmt.Sprintf("%s.%d", "plugins", idx)
		reg, ok := capability.LookupPlugin(pc.Type)
		if !ok {
			return nil, destroyAll(utils.NewConfigValidationError(path, errors.Errorf("unknown plugin type %q", pc.Type)))
		}
		p, err := reg.Build(ctx, path+".attributes", bus, pc.Attributes, logger.Sublogger(pc.Name))
		if err != nil {
			return nil, destroyAll(errors.Wrapf(err, "cannot build plugin %q", pc.Name))
		}
		logger.CDebugw(ctx, "plugin built", "name", pc.Name, "type", pc.Type)
		plugins = append(plugins, p)
	}

	s, err := New(cfg.Backend, cfg.Facing, logger, plugins...)
	if err != nil {
		return nil, destroyAll(err)
	}
	if size, ok := cfg.Preview.Size(); ok {
		s.previewSize = &size
	}
	s.mirror = cfg.Preview.MirrorFor(cfg.Facing)
	return s, nil
}

// ID returns the id of this session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Backend returns the backend the session drives.
func (s *Session) Backend() capability.Backend {
	return s.backend
}

// Facing returns which way the session's camera faces.
func (s *Session) Facing() capability.Facing {
	return s.facing
}

// Plugins returns the session's plugins in application order.
func (s *Session) Plugins() []capability.Plugin {
	return append([]capability.Plugin{}, s.plugins...)
}

// NewView returns a preview view for this session's camera, mirrored for front facing cameras
// and with the configured preview size if there is one.
func (s *Session) NewView(display preview.Display) *preview.View {
	v := preview.NewView(display, s.logger.Sublogger("preview"))
	v.SetMirror(s.mirror)
	if s.previewSize != nil {
		v.SetPreviewSize(*s.previewSize)
	}
	return v
}

func (s *Session) check(want capability.Backend) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if s.backend != want {
		return errors.Wrapf(ErrWrongBackend, "session uses the %s backend, not %s", s.backend, want)
	}
	return nil
}

// ConfigureStillCamera passes params through every plugin's legacy configurator. A plugin whose
// configurator cannot be built is skipped and reported in the returned error; the others still
// apply.
func (s *Session) ConfigureStillCamera(
	ctx context.Context,
	info capability.DeviceInfo,
	params *capability.LegacyParameters,
) (*capability.LegacyParameters, error) {
	if err := s.check(capability.Legacy); err != nil {
		return params, err
	}
	var err error
	for _, p := range s.plugins {
		c, cErr := legacyConfigurator(p)
		if cErr != nil {
			err = multierr.Append(err, cErr)
			continue
		}
		params = c.ConfigureStillCamera(info, params)
	}
	if params != nil {
		s.logger.CDebugw(ctx, "still camera configured", "session", s.id.String(), "params", params.Flatten())
	}
	return params, err
}

// BuildCaptureRequest returns a still capture request annotated by every plugin.
func (s *Session) BuildCaptureRequest(
	ctx context.Context,
	chars *capability.Characteristics,
) (*capability.RequestBuilder, error) {
	return s.buildRequest(ctx, "capture", func(c capability.ModernConfigurator, builder *capability.RequestBuilder) {
		c.AddToCaptureRequest(chars, s.facing == capability.FacingFront, builder)
	})
}

// BuildPreviewRequest returns a preview request annotated by every plugin.
func (s *Session) BuildPreviewRequest(
	ctx context.Context,
	chars *capability.Characteristics,
) (*capability.RequestBuilder, error) {
	return s.buildRequest(ctx, "preview", func(c capability.ModernConfigurator, builder *capability.RequestBuilder) {
		c.AddToPreviewRequest(chars, builder)
	})
}

func (s *Session) buildRequest(
	ctx context.Context,
	kind string,
	apply func(capability.ModernConfigurator, *capability.RequestBuilder),
) (*capability.RequestBuilder, error) {
	if err := s.check(capability.Modern); err != nil {
		return nil, err
	}
	builder := capability.NewRequestBuilder()
	var err error
	for _, p := range s.plugins {
		c, cErr := modernConfigurator(p)
		if cErr != nil {
			err = multierr.Append(err, cErr)
			continue
		}
		apply(c, builder)
	}
	s.logger.CDebugw(ctx, "request built", "session", s.id.String(), "kind", kind, "fields", builder.Fields())
	return builder, err
}

func legacyConfigurator(p capability.Plugin) (capability.LegacyConfigurator, error) {
	c, err := p.BuildConfigurator(capability.Legacy)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin %T", p)
	}
	return capability.AsLegacy(c)
}

func modernConfigurator(p capability.Plugin) (capability.ModernConfigurator, error) {
	c, err := p.BuildConfigurator(capability.Modern)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin %T", p)
	}
	return capability.AsModern(c)
}

// Close destroys every plugin once. Errors from all plugins are combined.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		for _, p := range s.plugins {
			s.closeErr = multierr.Append(s.closeErr, p.Destroy())
		}
	})
	return s.closeErr
}
