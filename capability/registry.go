package capability

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camview/events"
	"go.viam.com/camview/logging"
	"go.viam.com/camview/utils"
)

type (
	// A ConfigValidator is a plugin's native config. Validate reports problems using path, the
	// config's location in the enclosing document, as the prefix.
	ConfigValidator interface {
		Validate(path string) error
	}

	// A Create builds a plugin from its native config. The plugin subscribes to bus before
	// returning.
	Create[ConfigT ConfigValidator] func(
		ctx context.Context,
		bus *events.Bus,
		conf ConfigT,
		logger logging.Logger,
	) (Plugin, error)

	// An AttributeMapConverter converts an attribute map into a plugin's native config.
	AttributeMapConverter[ConfigT ConfigValidator] func(attributes utils.AttributeMap) (ConfigT, error)
)

// PluginRegistration tells the registry how to build one type of plugin.
type PluginRegistration[ConfigT ConfigValidator] struct {
	Constructor Create[ConfigT]

	// AttributeMapConverter is used to convert raw attributes to the plugin's native config.
	// It defaults to decoding the attributes with utils.TransformAttributeMap.
	AttributeMapConverter AttributeMapConverter[ConfigT]

	configType reflect.Type
}

// ConfigType returns the native config type, or nil for an untyped registration.
func (r PluginRegistration[ConfigT]) ConfigType() reflect.Type {
	return r.configType
}

// Build converts attributes, validates the result under path and constructs the plugin.
func (r PluginRegistration[ConfigT]) Build(
	ctx context.Context,
	path string,
	bus *events.Bus,
	attributes utils.AttributeMap,
	logger logging.Logger,
) (Plugin, error) {
	conf, err := r.AttributeMapConverter(attributes)
	if err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}
	if err := conf.Validate(path); err != nil {
		return nil, err
	}
	return r.Constructor(ctx, bus, conf, logger)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]PluginRegistration[ConfigValidator]{}
)

// RegisterPlugin registers a plugin type under name. It is meant to be called from init and
// panics on a duplicate name or a nil constructor.
func RegisterPlugin[ConfigT ConfigValidator](name string, reg PluginRegistration[ConfigT]) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[name]; old {
		panic(errors.Errorf("trying to register two plugins with the same type: %q", name))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for plugin type: %q", name))
	}
	if reg.AttributeMapConverter == nil {
		reg.AttributeMapConverter = utils.TransformAttributeMap[ConfigT]
	}
	var zero ConfigT
	reg.configType = reflect.TypeOf(zero)
	registry[name] = makeGenericRegistration(reg)
}

// makeGenericRegistration erases ConfigT while keeping the typed functions behind it.
func makeGenericRegistration[ConfigT ConfigValidator](typed PluginRegistration[ConfigT]) PluginRegistration[ConfigValidator] {
	return PluginRegistration[ConfigValidator]{
		Constructor: func(ctx context.Context, bus *events.Bus, conf ConfigValidator, logger logging.Logger) (Plugin, error) {
			typedConf, err := utils.AssertType[ConfigT](conf)
			if err != nil {
				return nil, err
			}
			return typed.Constructor(ctx, bus, typedConf, logger)
		},
		AttributeMapConverter: func(attributes utils.AttributeMap) (ConfigValidator, error) {
			return typed.AttributeMapConverter(attributes)
		},
		configType: typed.configType,
	}
}

// DeregisterPlugin removes a registered plugin type.
func DeregisterPlugin(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// LookupPlugin returns the registration for a plugin type.
func LookupPlugin(name string) (PluginRegistration[ConfigValidator], bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	return reg, ok
}

// RegisteredPlugins returns the registered plugin type names, sorted.
func RegisteredPlugins() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}
