package utils

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

type upper string

func (u *upper) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return errors.New("empty")
	}
	*u = upper(strings.ToUpper(string(text)))
	return nil
}

type sampleConfig struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Tags  []upper `json:"tags"`
}

func TestTransformAttributeMap(t *testing.T) {
	attrs := AttributeMap{"name": "flash", "count": 2, "tags": []interface{}{"a", "b"}, "extra": true}

	byPtr, err := TransformAttributeMap[*sampleConfig](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, byPtr, test.ShouldResemble, &sampleConfig{Name: "flash", Count: 2, Tags: []upper{"A", "B"}})

	byVal, err := TransformAttributeMap[sampleConfig](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, byVal, test.ShouldResemble, *byPtr)

	empty, err := TransformAttributeMap[*sampleConfig](nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldResemble, &sampleConfig{})

	_, err = TransformAttributeMap[*sampleConfig](AttributeMap{"tags": []interface{}{""}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot decode attributes")

	_, err = TransformAttributeMap[*sampleConfig](AttributeMap{"count": "many"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidationErrors(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("plugins.0", "type")
	test.That(t, err.Error(), test.ShouldEqual, `error validating "plugins.0": "type" is required`)

	inner := errors.New("boom")
	err = NewConfigValidationError("preview", inner)
	test.That(t, errors.Is(err, inner), test.ShouldBeTrue)
}

func TestAngles(t *testing.T) {
	test.That(t, ModAngDeg(-90), test.ShouldEqual, 270.0)
	test.That(t, ModAngDeg(450), test.ShouldEqual, 90.0)
	test.That(t, Float64AlmostEqual(DegToRad(180), 3.14159265, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-3), test.ShouldBeFalse)
}
