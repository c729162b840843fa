package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender writes through tb.Log so that lines stay attached to the test that produced them
// even when tests run in parallel.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs to tb.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatLine(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp *testAppender) Sync() error {
	return nil
}
