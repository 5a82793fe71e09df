/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the foodcheck YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/tomoncle/foodcheck/database"
	"github.com/tomoncle/foodcheck/utils"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"./foodcheck.yaml",
	"./foodcheck.yml",
	"./configs/foodcheck.yaml",
	"/etc/foodcheck/foodcheck.yaml",
}

// Config is the file layout of foodcheck.yaml.
type Config struct {
	Database database.ConnectionConfig  `yaml:"database"`
	Migrate  database.DataMigrateConfig `yaml:"migrate"`
	Seed     database.DataInitConfig    `yaml:"seed"`
	Logging  LoggingConfig              `yaml:"logging"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConnectionConfig(),
		Seed: database.DataInitConfig{
			Filepath:    "configs/sql",
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  utils.EnvDefaultString("LOG_LEVEL", "warn"),
			Format: utils.EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		},
	}
}

// Load reads path, or the first existing DefaultConfigPaths entry when path
// is empty, on top of Default. ${VAR} references are expanded before parsing.
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// ConfigLoader converts the file layout to the database package's Config.
func (c *Config) ConfigLoader() *database.Config {
	return &database.Config{
		ConnectionConfig:  c.Database,
		DataMigrateConfig: c.Migrate,
		DataInitConfig:    c.Seed,
	}
}
