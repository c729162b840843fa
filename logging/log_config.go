package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// LoggerPatternConfig sets the level of every registered logger whose name matches Pattern.
// Patterns are dot separated logger names where a section may be `*`, e.g. "camview.plugins.*".
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// e.g. "flash_mode".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "flash_mode" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "camview.*.flash_mode".
	validLoggerName = `^` + validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

// Validate checks the pattern and level. path is the config's location, e.g. "log.0".
func (lpc LoggerPatternConfig) Validate(path string) error {
	if !validatePattern(lpc.Pattern) {
		return errors.Errorf("error validating %q: invalid logger pattern %q", path, lpc.Pattern)
	}
	if _, err := LevelFromString(lpc.Level); err != nil {
		return errors.Wrapf(err, "error validating %q", path)
	}
	return nil
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}
