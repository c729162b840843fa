package config

import (
	"sync"

	"go.uber.org/zap/zapcore"

	"go.viam.com/camview/logging"
)

// debugFlags are the two places debug logging can be switched on. The global level is debug
// when either is set.
var debugFlags struct {
	mu      sync.Mutex
	logger  logging.Logger
	cmdLine bool
	file    bool
}

// InitLoggingSettings records the command line debug flag and sets the global level from it.
// Call it once at startup, before any config file is read.
func InitLoggingSettings(logger logging.Logger, cmdLineDebug bool) {
	debugFlags.mu.Lock()
	defer debugFlags.mu.Unlock()

	debugFlags.logger = logger
	debugFlags.cmdLine = cmdLineDebug
	debugFlags.file = false
	level := levelForFlags()
	logging.GlobalLogLevel.SetLevel(level)
	logger.Infow("log level set", "level", level.String())
}

// UpdateFileConfigDebug records the debug flag of a freshly read config file.
func UpdateFileConfigDebug(fileDebug bool) {
	debugFlags.mu.Lock()
	defer debugFlags.mu.Unlock()

	debugFlags.file = fileDebug
	level := levelForFlags()
	if logging.GlobalLogLevel.Level() == level {
		return
	}
	logging.GlobalLogLevel.SetLevel(level)
	if debugFlags.logger != nil {
		debugFlags.logger.Infow("log level changed", "level", level.String(), "from_config", fileDebug)
	}
}

func levelForFlags() zapcore.Level {
	if debugFlags.cmdLine || debugFlags.file {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
