package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/camview/logging"
)

// Read reads a config from the given file. ${VAR} references are replaced from the environment
// before parsing.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	unprocessedConfig := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&unprocessedConfig); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	cfg, err := processConfig(ctx, &unprocessedConfig, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	return cfg, nil
}

// processConfig returns a validated copy of the config.
func processConfig(ctx context.Context, unprocessedConfig *Config, logger logging.Logger) (*Config, error) {
	cfg := *unprocessedConfig
	cfg.LogConfig = append([]logging.LoggerPatternConfig{}, unprocessedConfig.LogConfig...)
	cfg.Plugins = append([]PluginConfig{}, unprocessedConfig.Plugins...)
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	logger.CDebugw(ctx, "config processed",
		"path", cfg.ConfigFilePath,
		"backend", cfg.Backend.String(),
		"facing", cfg.Facing.String(),
		"plugins", len(cfg.Plugins),
	)
	return &cfg, nil
}
