package flash

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camview/utils"
)

// Config is the flash plugin's attributes, e.g. {"modes": ["on", "auto"]}.
type Config struct {
	Modes []Mode `json:"modes"`
}

// Validate requires at least one mode and no duplicates.
func (c *Config) Validate(path string) error {
	if len(c.Modes) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "modes")
	}
	if dups := lo.FindDuplicates(c.Modes); len(dups) > 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("duplicate flash modes %v", dups))
	}
	return nil
}
