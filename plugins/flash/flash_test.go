package flash

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/camview/capability"
	"go.viam.com/camview/events"
	"go.viam.com/camview/logging"
	"go.viam.com/camview/utils"
)

func newTestPlugin(t *testing.T, modes ...Mode) (*Plugin, *events.Bus, func() int) {
	t.Helper()
	logger, logs := logging.NewObservedTestLogger(t)
	bus := events.NewBus(logger)
	t.Cleanup(func() { bus.Close() })

	p, err := NewPlugin(bus, modes, logger)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { p.Destroy() })

	warnings := func() int {
		return logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("no support for requested flash mode").Len()
	}
	return p, bus, warnings
}

func legacyParams(supported ...string) *capability.LegacyParameters {
	params := capability.NewLegacyParameters()
	params.SetSupported(LegacyKey, supported...)
	params.Set(LegacyKey, "off")
	return params
}

func modernChars(available ...int) *capability.Characteristics {
	return capability.NewCharacteristics().With(capability.ControlAEAvailableModes, available...)
}

func TestMode(t *testing.T) {
	for mode, name := range map[Mode]string{Off: "off", On: "on", Auto: "auto", RedEye: "red-eye", Torch: "torch"} {
		test.That(t, mode.String(), test.ShouldEqual, name)
		parsed, err := ModeFromString(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, mode)
	}
	parsed, err := ModeFromString("REDEYE")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, RedEye)
	_, err = ModeFromString("strobe")
	test.That(t, err, test.ShouldNotBeNil)

	ae, ok := On.ModernAEMode()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ae, test.ShouldEqual, capability.AEModeOnAlwaysFlash)
	ae, _ = Off.ModernAEMode()
	test.That(t, ae, test.ShouldEqual, capability.AEModeOn)
	_, ok = Torch.ModernAEMode()
	test.That(t, ok, test.ShouldBeFalse)

	out, err := json.Marshal([]Mode{On, RedEye})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `["on","red-eye"]`)
	var back []Mode
	test.That(t, json.Unmarshal(out, &back), test.ShouldBeNil)
	test.That(t, back, test.ShouldResemble, []Mode{On, RedEye})
}

func TestBuildConfiguratorTyping(t *testing.T) {
	p, _, _ := newTestPlugin(t, On, Auto)

	legacy, err := p.BuildConfigurator(capability.Legacy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, legacy.Backend(), test.ShouldEqual, capability.Legacy)
	_, isModern := legacy.(capability.ModernConfigurator)
	test.That(t, isModern, test.ShouldBeFalse)
	_, err = capability.AsLegacy(legacy)
	test.That(t, err, test.ShouldBeNil)
	_, err = capability.AsModern(legacy)
	test.That(t, err, test.ShouldNotBeNil)

	modern, err := p.BuildConfigurator(capability.Modern)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, modern.Backend(), test.ShouldEqual, capability.Modern)
	_, isLegacy := modern.(capability.LegacyConfigurator)
	test.That(t, isLegacy, test.ShouldBeFalse)
	_, err = capability.AsModern(modern)
	test.That(t, err, test.ShouldBeNil)

	again, err := p.BuildConfigurator(capability.Legacy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldEqual, legacy)

	_, err = p.BuildConfigurator(capability.Backend(5))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModeRequest(t *testing.T) {
	p, bus, _ := newTestPlugin(t, On, Auto)

	_, ok := p.Selected()
	test.That(t, ok, test.ShouldBeFalse)

	changed := 0
	_, err := events.Subscribe(bus, func(ModeChangedEvent) {
		mode, ok := p.Selected()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, mode, test.ShouldEqual, Auto)
		changed++
	})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, bus.Publish(ModeRequestEvent{Mode: Auto}), test.ShouldBeNil)
	test.That(t, changed, test.ShouldEqual, 1)
	mode, ok := p.Selected()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mode, test.ShouldEqual, Auto)
	test.That(t, p.Modes(), test.ShouldResemble, []Mode{On, Auto})
}

func TestApplySupportedMode(t *testing.T) {
	p, bus, warnings := newTestPlugin(t, On, Auto)
	test.That(t, bus.Publish(ModeRequestEvent{Mode: Auto}), test.ShouldBeNil)

	legacy, err := p.BuildConfigurator(capability.Legacy)
	test.That(t, err, test.ShouldBeNil)
	lc, err := capability.AsLegacy(legacy)
	test.That(t, err, test.ShouldBeNil)
	params := legacyParams("on", "auto", "off")
	test.That(t, lc.ConfigureStillCamera(capability.DeviceInfo{}, params), test.ShouldEqual, params)
	v, _ := params.Get(LegacyKey)
	test.That(t, v, test.ShouldEqual, "auto")

	modern, err := p.BuildConfigurator(capability.Modern)
	test.That(t, err, test.ShouldBeNil)
	mc, err := capability.AsModern(modern)
	test.That(t, err, test.ShouldBeNil)
	chars := modernChars(capability.AEModeOn, capability.AEModeOnAutoFlash, capability.AEModeOnAlwaysFlash)
	capture := capability.NewRequestBuilder()
	preview := capability.NewRequestBuilder()
	mc.AddToCaptureRequest(chars, true, capture)
	mc.AddToPreviewRequest(chars, preview)
	test.That(t, capture.Fields(), test.ShouldResemble, map[capability.RequestKey]int{
		capability.ControlAEMode: capability.AEModeOnAutoFlash,
	})
	test.That(t, preview.Fields(), test.ShouldResemble, capture.Fields())
	test.That(t, warnings(), test.ShouldEqual, 0)
}

func TestApplyUnselected(t *testing.T) {
	p, _, warnings := newTestPlugin(t, On, Auto)

	legacy, err := p.BuildConfigurator(capability.Legacy)
	test.That(t, err, test.ShouldBeNil)
	params := legacyParams("on", "auto", "off")
	legacy.(capability.LegacyConfigurator).ConfigureStillCamera(capability.DeviceInfo{}, params)
	v, _ := params.Get(LegacyKey)
	test.That(t, v, test.ShouldEqual, "off")

	modern, err := p.BuildConfigurator(capability.Modern)
	test.That(t, err, test.ShouldBeNil)
	builder := capability.NewRequestBuilder()
	modern.(capability.ModernConfigurator).AddToPreviewRequest(modernChars(capability.AEModeOn), builder)
	test.That(t, builder.Fields(), test.ShouldBeEmpty)
	test.That(t, warnings(), test.ShouldEqual, 0)

	test.That(t, legacy.(capability.LegacyConfigurator).ConfigureStillCamera(capability.DeviceInfo{}, nil), test.ShouldBeNil)
}

func TestRedEyeNotConfigured(t *testing.T) {
	p, bus, warnings := newTestPlugin(t, On, Auto)
	test.That(t, bus.Publish(ModeRequestEvent{Mode: RedEye}), test.ShouldBeNil)

	// The request is recorded even though the plugin will never write it.
	mode, ok := p.Selected()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mode, test.ShouldEqual, RedEye)

	legacy, err := p.BuildConfigurator(capability.Legacy)
	test.That(t, err, test.ShouldBeNil)
	params := legacyParams("on", "auto", "off")
	before := params.Flatten()
	legacy.(capability.LegacyConfigurator).ConfigureStillCamera(capability.DeviceInfo{}, params)
	test.That(t, params.Flatten(), test.ShouldEqual, before)
	test.That(t, warnings(), test.ShouldEqual, 1)

	modern, err := p.BuildConfigurator(capability.Modern)
	test.That(t, err, test.ShouldBeNil)
	builder := capability.NewRequestBuilder()
	chars := modernChars(capability.AEModeOnAlwaysFlash, capability.AEModeOnAutoFlash, capability.AEModeOn)
	modern.(capability.ModernConfigurator).AddToCaptureRequest(chars, false, builder)
	test.That(t, builder.Fields(), test.ShouldBeEmpty)
	test.That(t, warnings(), test.ShouldEqual, 2)
}

func TestModeNotAvailable(t *testing.T) {
	p, bus, warnings := newTestPlugin(t, On, Auto, Torch)

	test.That(t, bus.Publish(ModeRequestEvent{Mode: On}), test.ShouldBeNil)
	legacy, err := p.BuildConfigurator(capability.Legacy)
	test.That(t, err, test.ShouldBeNil)
	params := legacyParams("off", "auto")
	legacy.(capability.LegacyConfigurator).ConfigureStillCamera(capability.DeviceInfo{}, params)
	v, _ := params.Get(LegacyKey)
	test.That(t, v, test.ShouldEqual, "off")
	test.That(t, warnings(), test.ShouldEqual, 1)

	// No flash at all.
	params = capability.NewLegacyParameters()
	legacy.(capability.LegacyConfigurator).ConfigureStillCamera(capability.DeviceInfo{}, params)
	_, ok := params.Get(LegacyKey)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, warnings(), test.ShouldEqual, 2)

	modern, err := p.BuildConfigurator(capability.Modern)
	test.That(t, err, test.ShouldBeNil)
	builder := capability.NewRequestBuilder()
	modern.(capability.ModernConfigurator).AddToPreviewRequest(modernChars(capability.AEModeOn), builder)
	test.That(t, builder.Fields(), test.ShouldBeEmpty)
	test.That(t, warnings(), test.ShouldEqual, 3)

	// Torch has no auto exposure mode.
	test.That(t, bus.Publish(ModeRequestEvent{Mode: Torch}), test.ShouldBeNil)
	modern.(capability.ModernConfigurator).AddToPreviewRequest(nil, builder)
	test.That(t, builder.Fields(), test.ShouldBeEmpty)
	test.That(t, warnings(), test.ShouldEqual, 4)
}

func TestDestroy(t *testing.T) {
	p, bus, _ := newTestPlugin(t, On, Auto)
	test.That(t, bus.Publish(ModeRequestEvent{Mode: On}), test.ShouldBeNil)

	test.That(t, p.Destroy(), test.ShouldBeNil)
	test.That(t, p.Destroy(), test.ShouldBeNil)

	test.That(t, bus.Publish(ModeRequestEvent{Mode: Auto}), test.ShouldBeNil)
	mode, _ := p.Selected()
	test.That(t, mode, test.ShouldEqual, On)
	test.That(t, bus.Stats().Subscriptions, test.ShouldEqual, 0)

	// Destroying after the bus is gone is fine too.
	other, err := NewPlugin(bus, []Mode{On}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bus.Close(), test.ShouldBeNil)
	test.That(t, other.Destroy(), test.ShouldBeNil)

	_, err = NewPlugin(bus, []Mode{On}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPlugin(nil, []Mode{On}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

// returnsWithin runs fn on another goroutine and fails the test if it has not returned in time.
func returnsWithin(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not return", what)
	}
}

func TestDestroyFromObserver(t *testing.T) {
	p, bus, _ := newTestPlugin(t, On, Auto)
	destroyErrs := make(chan error, 1)
	_, err := events.Subscribe(bus, func(ModeChangedEvent) {
		destroyErrs <- p.Destroy()
	})
	test.That(t, err, test.ShouldBeNil)

	returnsWithin(t, "publishing a mode request", func() {
		test.That(t, bus.Publish(ModeRequestEvent{Mode: Auto}), test.ShouldBeNil)
	})
	test.That(t, <-destroyErrs, test.ShouldBeNil)

	test.That(t, bus.Publish(ModeRequestEvent{Mode: On}), test.ShouldBeNil)
	mode, _ := p.Selected()
	test.That(t, mode, test.ShouldEqual, Auto)
	test.That(t, bus.Stats().Subscriptions, test.ShouldEqual, 1)
}

func TestCloseBusFromObserver(t *testing.T) {
	p, bus, _ := newTestPlugin(t, On, Auto)
	_, err := events.Subscribe(bus, func(ModeChangedEvent) {
		test.That(t, bus.Close(), test.ShouldBeNil)
	})
	test.That(t, err, test.ShouldBeNil)

	returnsWithin(t, "publishing a mode request", func() {
		test.That(t, bus.Publish(ModeRequestEvent{Mode: Auto}), test.ShouldBeNil)
	})
	test.That(t, bus.Publish(ModeRequestEvent{Mode: On}), test.ShouldBeError, events.ErrBusClosed)
	returnsWithin(t, "destroy", func() {
		test.That(t, p.Destroy(), test.ShouldBeNil)
	})
}

func TestDeliveryAfterDestroy(t *testing.T) {
	p, bus, _ := newTestPlugin(t, On, Auto)
	changed := 0
	_, err := events.Subscribe(bus, func(ModeChangedEvent) { changed++ })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Destroy(), test.ShouldBeNil)

	// A delivery that started before Destroy and reaches the handler after it.
	p.onModeRequest(ModeRequestEvent{Mode: On})
	_, ok := p.Selected()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, changed, test.ShouldEqual, 0)
}

func TestRegisteredPlugin(t *testing.T) {
	reg, ok := capability.LookupPlugin(PluginType)
	test.That(t, ok, test.ShouldBeTrue)

	logger := logging.NewTestLogger(t)
	bus := events.NewBus(logger)
	defer bus.Close()

	plugin, err := reg.Build(context.Background(), "plugins.0.attributes", bus,
		utils.AttributeMap{"modes": []interface{}{"on", "red-eye"}}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plugin.(*Plugin).Modes(), test.ShouldResemble, []Mode{On, RedEye})
	test.That(t, plugin.Destroy(), test.ShouldBeNil)

	_, err = reg.Build(context.Background(), "plugins.0.attributes", bus, utils.AttributeMap{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"modes" is required`)

	_, err = reg.Build(context.Background(), "plugins.0.attributes", bus,
		utils.AttributeMap{"modes": []interface{}{"on", "on"}}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = reg.Build(context.Background(), "plugins.0.attributes", bus,
		utils.AttributeMap{"modes": []interface{}{"strobe"}}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
