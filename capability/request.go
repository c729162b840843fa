package capability

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// DeviceInfo describes the legacy camera being configured.
type DeviceInfo struct {
	ID     int
	Facing Facing
	// Orientation is the angle the sensor is mounted at relative to the device's natural
	// orientation.
	Orientation int
}

// supportedSuffix names the key listing the supported values of a legacy parameter.
const supportedSuffix = "-values"

// LegacyParameters is the legacy backend's flat string parameter set. Supported values for a
// key are listed, comma separated, under "<key>-values". It is safe for concurrent use.
type LegacyParameters struct {
	mu     sync.Mutex
	values map[string]string
}

// NewLegacyParameters returns an empty parameter set.
func NewLegacyParameters() *LegacyParameters {
	return &LegacyParameters{values: map[string]string{}}
}

// Get returns a parameter.
func (p *LegacyParameters) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

// Set sets a parameter.
func (p *LegacyParameters) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// Supported returns the values listed for key. It is nil when the device lists none, which
// means the parameter is not supported at all.
func (p *LegacyParameters) Supported(key string) []string {
	raw, ok := p.Get(key + supportedSuffix)
	if !ok || raw == "" {
		return nil
	}
	return lo.Map(strings.Split(raw, ","), func(v string, _ int) string {
		return strings.TrimSpace(v)
	})
}

// SetSupported lists the values the device supports for key.
func (p *LegacyParameters) SetSupported(key string, values ...string) {
	p.Set(key+supportedSuffix, strings.Join(values, ","))
}

// Flatten returns the parameters as sorted "key=value" pairs joined by ';'.
func (p *LegacyParameters) Flatten() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := lo.Keys(p.values)
	sort.Strings(keys)
	return strings.Join(lo.Map(keys, func(k string, _ int) string {
		return k + "=" + p.values[k]
	}), ";")
}

// CharacteristicKey names a static capability of a modern backend camera.
type CharacteristicKey string

// ControlAEAvailableModes lists the auto exposure modes the camera supports.
const ControlAEAvailableModes CharacteristicKey = "android.control.aeAvailableModes"

// Characteristics are the static capabilities a modern backend camera reports.
type Characteristics struct {
	values map[CharacteristicKey][]int
}

// NewCharacteristics returns an empty set of characteristics.
func NewCharacteristics() *Characteristics {
	return &Characteristics{values: map[CharacteristicKey][]int{}}
}

// With sets key and returns c.
func (c *Characteristics) With(key CharacteristicKey, values ...int) *Characteristics {
	c.values[key] = values
	return c
}

// Ints returns the values for key.
func (c *Characteristics) Ints(key CharacteristicKey) ([]int, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// RequestKey names a field of a modern backend capture request.
type RequestKey string

// ControlAEMode is the auto exposure mode, which also governs the flash.
const ControlAEMode RequestKey = "android.control.aeMode"

// Modern backend auto exposure modes.
const (
	AEModeOff               = 0
	AEModeOn                = 1
	AEModeOnAutoFlash       = 2
	AEModeOnAlwaysFlash     = 3
	AEModeOnAutoFlashRedEye = 4
)

// RequestBuilder accumulates the fields of a modern backend request.
type RequestBuilder struct {
	mu     sync.Mutex
	fields map[RequestKey]int
}

// NewRequestBuilder returns an empty request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{fields: map[RequestKey]int{}}
}

// Set sets a field.
func (r *RequestBuilder) Set(key RequestKey, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[key] = value
}

// Get returns a field.
func (r *RequestBuilder) Get(key RequestKey) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.fields[key]
	return v, ok
}

// Fields returns a copy of every field set so far.
func (r *RequestBuilder) Fields() map[RequestKey]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[RequestKey]int, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}
