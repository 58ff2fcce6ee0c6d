package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// gatewaysFile is the on-disk shape of gateways.yml. Secrets never live in
// the file; they stay in the environment.
type gatewaysFile struct {
	Gateways map[string]GatewayConfig `yaml:"gateways"`
}

// applyGatewaysFile overlays base URLs and enablement flags from a yaml
// file onto the env-derived gateway config.
func (c *Config) applyGatewaysFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading gateways file: %w", err)
	}

	var parsed gatewaysFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing gateways file %s: %w", path, err)
	}

	for name, override := range parsed.Gateways {
		gw, ok := c.Gateways[name]
		if !ok {
			return fmt.Errorf("gateways file names unknown gateway %q", name)
		}
		gw.Enabled = override.Enabled
		if override.BaseURL != "" {
			gw.BaseURL = override.BaseURL
		}
		c.Gateways[name] = gw
	}

	return nil
}
