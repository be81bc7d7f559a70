// Package config loads process settings from the environment and website
// settings from a properties resource.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every process setting.
const EnvPrefix = "SITENAV_"

// ParseEnv loads configuration from environment variables. Struct tags name
// variables without EnvPrefix.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
