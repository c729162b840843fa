package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

type BasicStruct struct {
	X int
	y string
}

// assertLogMatches fuzzy matches a console log line. The time only has to parse in the console
// format, whatever the host's zone, and the line number only has to be a number.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	_, err = time.Parse(DefaultTimeFormatStr, actualParts[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])

	actualFilename, actualLineNumber, found := strings.Cut(actualParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualParts[3], test.ShouldEqual, expectedParts[3])
	if len(actualParts) == 4 {
		return
	}

	expectedMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(expectedParts[4]), &expectedMap), test.ShouldBeNil)
	actualMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(actualParts[4]), &actualMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := newImpl("", DEBUG, false, NewWriterAppender(notStdout))

	logger.Info("impl Info log")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459-0400	INFO	logging/impl_test.go:62	impl Info log`)

	logger.Infof("impl %s log", "infof")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:45:20.764-0400	INFO	logging/impl_test.go:66	impl infof log`)

	logger.Warnw("impl logw", "key", "value")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806-0400	WARN	logging/impl_test.go:70	impl logw	{"key":"value"}`)

	// Only public fields are serialized.
	logger.Infow("BasicStruct", "mode", "red-eye", "BasicStruct", BasicStruct{1, "alice"})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	INFO	logging/impl_test.go:75	BasicStruct	{"BasicStruct":{"X":1},"mode":"red-eye"}`)

	logger.Errorw("unpaired", "dangling")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129-0400	ERROR	logging/impl_test.go:79	unpaired	{"dangling":"unpaired log key"}`)
}

func TestLevels(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.SetLevel(WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")
	test.That(t, observed.Len(), test.ShouldEqual, 2)
	test.That(t, observed.FilterLevelExact(zapcore.WarnLevel).Len(), test.ShouldEqual, 1)

	// Debug mode on the context bypasses the level for the C* variants.
	logger.CDebugw(context.Background(), "dropped")
	logger.CDebugw(WithDebug(context.Background(), "frame-tap"), "kept", "k", 1)
	debugLines := observed.FilterLevelExact(zapcore.DebugLevel).All()
	test.That(t, debugLines, test.ShouldHaveLength, 1)
	test.That(t, debugLines[0].ContextMap(), test.ShouldResemble, map[string]interface{}{"k": int64(1), "debug_key": "frame-tap"})
	test.That(t, observed.FilterMessage("kept").Len(), test.ShouldEqual, 3)
}

func TestSublogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("preview")
	subsub := sub.Sublogger("view")

	subsub.Info("hello")
	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "preview.view")

	// Changing a sublogger's level does not affect the parent.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, sub.GetLevel(), test.ShouldEqual, ERROR)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := json.Marshal(ERROR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"error"`)
}

func TestWithDebug(t *testing.T) {
	_, ok := DebugKey(context.Background())
	test.That(t, ok, test.ShouldBeFalse)

	key, ok := DebugKey(WithDebug(context.Background(), "frame-tap"))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, key, test.ShouldEqual, "frame-tap")

	key, ok = DebugKey(WithDebug(context.Background(), ""))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, key, test.ShouldHaveLength, 8)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camview.log")
	appender := NewFileAppender(path, 1, 1)
	logger := NewBlankLogger("camview")
	logger.AddAppender(appender)

	logger.Sublogger("preview").Warnw("cannot compute preview transform", "view", "0x0")
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	line := strings.TrimSuffix(string(contents), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[2], test.ShouldEqual, "camview.preview")
	test.That(t, parts[4], test.ShouldEqual, "cannot compute preview transform")
	test.That(t, parts[5], test.ShouldEqual, `{"view":"0x0"}`)
}
