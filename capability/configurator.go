package capability

import (
	"github.com/pkg/errors"

	"go.viam.com/camview/utils"
)

// A Configurator is the backend specific half of a plugin. Every Configurator is exactly one of
// LegacyConfigurator or ModernConfigurator, the one for the Backend it was built for.
type Configurator interface {
	// Backend is the backend this configurator writes requests for.
	Backend() Backend
}

// A LegacyConfigurator adjusts the legacy backend's still capture parameters. The legacy backend
// has no separate preview configuration step.
type LegacyConfigurator interface {
	Configurator
	// ConfigureStillCamera returns the parameters to use, usually params itself after
	// modification. params may be nil, in which case nil is returned.
	ConfigureStillCamera(info DeviceInfo, params *LegacyParameters) *LegacyParameters
}

// A ModernConfigurator annotates modern backend requests. Capture and preview requests get the
// same treatment.
type ModernConfigurator interface {
	Configurator
	AddToCaptureRequest(chars *Characteristics, facingFront bool, builder *RequestBuilder)
	AddToPreviewRequest(chars *Characteristics, builder *RequestBuilder)
}

// LegacyBase is a LegacyConfigurator that changes nothing. Embed it and override what is needed.
type LegacyBase struct{}

// Backend returns Legacy.
func (LegacyBase) Backend() Backend { return Legacy }

// ConfigureStillCamera returns params unchanged.
func (LegacyBase) ConfigureStillCamera(_ DeviceInfo, params *LegacyParameters) *LegacyParameters {
	return params
}

// ModernBase is a ModernConfigurator that changes nothing.
type ModernBase struct{}

// Backend returns Modern.
func (ModernBase) Backend() Backend { return Modern }

// AddToCaptureRequest does nothing.
func (ModernBase) AddToCaptureRequest(*Characteristics, bool, *RequestBuilder) {}

// AddToPreviewRequest does nothing.
func (ModernBase) AddToPreviewRequest(*Characteristics, *RequestBuilder) {}

// AsLegacy returns c as a LegacyConfigurator, failing if it was built for another backend.
func AsLegacy(c Configurator) (LegacyConfigurator, error) {
	return as[LegacyConfigurator](c, Legacy)
}

// AsModern returns c as a ModernConfigurator, failing if it was built for another backend.
func AsModern(c Configurator) (ModernConfigurator, error) {
	return as[ModernConfigurator](c, Modern)
}

func as[T Configurator](c Configurator, want Backend) (T, error) {
	var zero T
	if c == nil {
		return zero, errors.Errorf("no %s configurator", want)
	}
	if c.Backend() != want {
		return zero, errors.Errorf("configurator is for the %s backend, not %s", c.Backend(), want)
	}
	return utils.AssertType[T](c)
}

// A Session is the read only view of a camera session that plugins validate against.
type Session interface {
	Backend() Backend
	Facing() Facing
}

// A Plugin configures one camera capability, such as flash mode, on either backend.
type Plugin interface {
	// BuildConfigurator returns the plugin's configurator for backend. Asking twice for the
	// same backend returns the same configurator. Unknown backends return ErrUnknownBackend.
	BuildConfigurator(backend Backend) (Configurator, error)

	// Validate is called once when a session is set up and may reject it.
	Validate(session Session) error

	// Destroy releases the plugin's subscriptions. It is called once when the plugin is
	// retired; later calls do nothing.
	Destroy() error
}
