package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service settings, read from an optional YAML file with
// environment overrides for deployment knobs.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Expression ExpressionConfig `yaml:"expression"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowedOrigins"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// ExpressionConfig holds expression-evaluator settings.
type ExpressionConfig struct {
	MaxSourceLen int `yaml:"maxSourceLen"`
}

// Duration wraps time.Duration so YAML configs can use "5s" style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3003"},
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Expression: ExpressionConfig{
			MaxSourceLen: 8192,
		},
	}
}

// Load reads the YAML file at path when non-empty, then applies ADDR and
// ALLOWED_ORIGINS environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if addr, ok := os.LookupEnv("ADDR"); ok {
		cfg.Server.Addr = addr
	}
	if origins, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	return cfg, nil
}
