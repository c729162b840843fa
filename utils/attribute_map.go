package utils

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a loosely typed set of attributes, as found in a config file, that a
// component converts into its own typed config.
type AttributeMap map[string]interface{}

// TransformAttributeMap decodes attributes into a value of type T using the `json` struct tags.
// Values implementing encoding.TextUnmarshaler are decoded from their text form. If T is a
// pointer type a new value is allocated. Attributes without a matching field are ignored.
func TransformAttributeMap[T any](attributes AttributeMap) (T, error) {
	var out T

	toT := reflect.TypeOf(out)
	if toT == nil {
		// nothing to transform
		return out, nil
	}

	var forResult interface{}
	if toT.Kind() == reflect.Ptr {
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     forResult,
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, errors.Wrap(err, "cannot decode attributes")
	}
	return out, nil
}
