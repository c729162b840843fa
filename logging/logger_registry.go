package logging

import (
	"regexp"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry tracks named loggers so their levels can be changed by configuration after they
// were handed out.
type Registry struct {
	mu        sync.RWMutex
	loggers   map[string]Logger
	logConfig []LoggerPatternConfig
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		loggers: make(map[string]Logger),
	}
}

// Register adds logger under name, replacing any logger of the same name.
func (lr *Registry) Register(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
}

// Deregister removes the logger of the given name and reports whether it existed.
func (lr *Registry) Deregister(name string) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	_, ok := lr.loggers[name]
	delete(lr.loggers, name)
	return ok
}

// LoggerNamed returns the logger registered under name.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Names returns the sorted names of all registered loggers.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateConfig applies the patterns to every registered logger. Later patterns win over earlier
// ones; loggers no pattern matches are reset to INFO. Invalid patterns are skipped with a warning
// on errorLogger.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	lr.mu.Lock()
	lr.logConfig = logConfig
	lr.mu.Unlock()

	names := lr.Names()
	applied := make(map[string]Level, len(names))
	for _, lpc := range logConfig {
		if !validatePattern(lpc.Pattern) {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return err
		}
		r, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil {
			return err
		}
		for _, name := range names {
			if r.MatchString(name) {
				applied[name] = level
			}
		}
	}

	lr.mu.RLock()
	defer lr.mu.RUnlock()
	for _, name := range names {
		logger, ok := lr.loggers[name]
		if !ok {
			return errors.Errorf("logger named %s not recognized", name)
		}
		level, ok := applied[name]
		if !ok {
			level = INFO
		}
		logger.SetLevel(level)
	}
	return nil
}

// GetOrRegister returns the logger already registered under name, or registers logger and
// configures it with the current patterns. Racing callers all get the winner's logger.
func (lr *Registry) GetOrRegister(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}

	lr.loggers[name] = logger
	for _, lpc := range lr.logConfig {
		if !validatePattern(lpc.Pattern) {
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			continue
		}
		if matched, _ := regexp.MatchString(buildRegexFromPattern(lpc.Pattern), name); matched {
			logger.SetLevel(level)
		}
	}
	return logger
}
