package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Kasa   KasaConfig   `yaml:"kasa"`
	Server ServerConfig `yaml:"server"`
	Groq   GroqConfig   `yaml:"groq"`
	MCP    MCPConfig    `yaml:"mcp"`
	Log    LogConfig    `yaml:"log"`
}

type KasaConfig struct {
	Addr    string `yaml:"addr"`
	Alias   string `yaml:"alias"`
	Timeout string `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type GroqConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type MCPConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML config at path with environment variables expanded.
// A missing file is not an error: configuration then comes entirely from
// defaults and the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Environment-only configuration.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Kasa.Addr == "" {
		c.Kasa.Addr = os.Getenv("KASA_DEVICE_IP")
	}
	if c.Kasa.Alias == "" {
		c.Kasa.Alias = "Outdoor plug"
	}
	if c.Kasa.Timeout == "" {
		c.Kasa.Timeout = "10s"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Groq.APIKey == "" {
		c.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.Groq.Model == "" {
		c.Groq.Model = "qwen/qwen3-32b"
	}
	if c.MCP.URL == "" {
		c.MCP.URL = "http://localhost:8000/mcp"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// ValidateGateway checks the settings the gateway process cannot start
// without.
func (c *Config) ValidateGateway() error {
	if c.Kasa.Addr == "" {
		return fmt.Errorf("kasa device address is required: set kasa.addr or the KASA_DEVICE_IP environment variable")
	}
	return nil
}

// ValidateAgent checks the settings the agent driver cannot start without.
func (c *Config) ValidateAgent() error {
	if c.Groq.APIKey == "" {
		return fmt.Errorf("groq API key is required: set groq.api_key or the GROQ_API_KEY environment variable")
	}
	return nil
}
