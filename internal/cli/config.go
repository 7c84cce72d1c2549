package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the optional TOML configuration file:
//
//	base_url = "https://provenance.ecs.soton.ac.uk/store/api/v0"
//	username = "alice"
//	api_key  = "..."
type fileConfig struct {
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username"`
	APIKey   string `toml:"api_key"`
}

// defaultConfigPath is ~/.provstore/config.toml.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".provstore", "config.toml")
}

// loadFileConfig reads path. A missing file is only an error when the user
// named it explicitly.
func loadFileConfig(path string, explicit bool) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *fileConfig) validate() error {
	var result *multierror.Error
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		result = multierror.Append(result, fmt.Errorf("base_url must be an http or https URL"))
	}
	if strings.Contains(c.Username, ":") {
		result = multierror.Append(result, fmt.Errorf("username must not contain ':'"))
	}
	if (c.Username == "") != (c.APIKey == "") {
		result = multierror.Append(result, fmt.Errorf("username and api_key must be set together"))
	}
	return result.ErrorOrNil()
}

// merge fills values left empty on the command line from c.
func (c *fileConfig) merge(baseURL, username, apiKey *string) {
	if *baseURL == "" {
		*baseURL = c.BaseURL
	}
	if *username == "" {
		*username = c.Username
	}
	if *apiKey == "" {
		*apiKey = c.APIKey
	}
}
