// Package config loads and validates the deployctl configuration file.
// Configuration is a flat set of typed sections with explicit defaults;
// a single validation pass runs before any side effect so missing
// required fields fail fast.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
)

// Load reads, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.NewValidationError(fmt.Sprintf("cannot read config %s: %v", path, err))
	}
	return Parse(data)
}

// Parse decodes configuration from raw yaml.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, engine.NewValidationError(fmt.Sprintf("invalid config yaml: %v", err))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when a section is absent.
func Default() *Config {
	return &Config{
		Logging:   telemetry.DefaultLoggingConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Transport: TransportConfig{Kind: "local"},
	}
}

// applyDefaults fills unset optional fields after decoding.
func (c *Config) applyDefaults() {
	if c.Transport.Kind == "" {
		c.Transport.Kind = "local"
	}
	if ssh := c.Transport.SSH; ssh != nil {
		if ssh.Port == 0 {
			ssh.Port = 22
		}
		if ssh.StagingDir == "" {
			ssh.StagingDir = "/tmp/deployctl"
		}
	}
	if c.Deploy != nil && c.Deploy.Transport == "" {
		c.Deploy.Transport = string(engine.TransportAuto)
	}
}

// Validate runs the single eager validation pass. Structural checks come
// from the validate tags; cross-field rules that tags cannot express are
// checked explicitly.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return engine.NewValidationError(fmt.Sprintf("invalid configuration: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		return engine.NewValidationError(err.Error())
	}
	if err := c.Telemetry.Validate(); err != nil {
		return engine.NewValidationError(err.Error())
	}

	if c.Transport.Kind == "ssh" && c.Transport.SSH == nil {
		return engine.NewValidationError("ssh transport requires an ssh section")
	}
	if c.Rollback != nil {
		if err := engine.RollbackMode(c.Rollback.Mode).Validate(); err != nil {
			return err
		}
	}
	if c.Kubernetes != nil {
		if err := engine.KubeRollbackMode(c.Kubernetes.Mode).Validate(); err != nil {
			return err
		}
	}
	return nil
}
