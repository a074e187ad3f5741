package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tag validation is declarative via go-playground/validator;
// rules that cannot be expressed in tags are checked afterwards.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// ZFS user properties must be namespaced with a colon; a colon-less
	// owner key would collide with native property names.
	if !strings.Contains(cfg.Properties.Owner, ":") {
		return fmt.Errorf("properties.owner: %q is not a user property (must contain a colon)", cfg.Properties.Owner)
	}

	// The hook variable name must be usable in an environment.
	if strings.ContainsAny(cfg.Hook.UserEnv, "= \t") {
		return fmt.Errorf("hook.user_env: %q is not a valid environment variable name", cfg.Hook.UserEnv)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
