// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Simulator configures the built-in robot simulator used when the dashboard
// runs without real robots.
type Simulator struct {
	Robots int `yaml:"robots"`
	TeamID int `yaml:"team_id"`
	TickMS int `yaml:"tick_ms"`
}

// Greptime configures the optional GreptimeDB history sink.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
}

// Sinks configures optional status history outputs.
type Sinks struct {
	LogFile  string   `yaml:"log_file"`
	Stdout   bool     `yaml:"stdout"`
	Greptime Greptime `yaml:"greptime"`
}

// Config is the root dashboard configuration.
type Config struct {
	Port           int       `yaml:"port"`
	TimeoutSeconds float64   `yaml:"timeout_seconds"`
	AdminAddr      string    `yaml:"admin_addr"`
	Simulator      Simulator `yaml:"simulator"`
	Sinks          Sinks     `yaml:"sinks"`
}

// Default returns the configuration used when no file is given: listen on
// 8080, five second robot timeout, admin UI on :8081.
func Default() *Config {
	return &Config{
		Port:           8080,
		TimeoutSeconds: 5,
		AdminAddr:      ":8081",
		Simulator:      Simulator{Robots: 3, TeamID: 1, TickMS: 100},
	}
}

// Timeout returns the robot timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Tick returns the simulator send interval.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Simulator.TickMS) * time.Millisecond
}

// Load reads a YAML config, validating it against the CUE schema first when
// a schema path is given. File values overlay the defaults.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %v", c.TimeoutSeconds)
	}
	if c.Simulator.Robots < 0 {
		return fmt.Errorf("simulator.robots must not be negative, got %d", c.Simulator.Robots)
	}
	return nil
}
