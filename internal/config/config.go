package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"voicebridge-backend/pkg/env"
)

// Config holds all configuration for the voice bridge process.
// Required values come from the environment and are validated at startup;
// a missing value is a startup failure, never a per-request one.
type Config struct {
	Server ServerConfig
	OpenAI OpenAIConfig
	ACS    ACSConfig
	Redis  RedisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	ServiceName string
}

// OpenAIConfig holds the Azure OpenAI Realtime endpoint configuration
type OpenAIConfig struct {
	Endpoint   string
	APIVersion string
	APIKey     string
	Deployment string
}

// ACSConfig holds Azure Communication Services configuration
type ACSConfig struct {
	ConnectionString string
	// CallbackHost is the public base URL of this service, used to build
	// callback and media streaming URLs handed to the platform.
	CallbackHost string
}

// RedisConfig holds the optional Redis registry backend configuration.
// When Addr is empty the in-process registry is used.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from the environment, failing fast on any
// missing required value. All missing values are reported together.
func Load() (*Config, error) {
	c := &Config{
		Server: ServerConfig{
			Port:        env.GetString("PORT", "8080"),
			ServiceName: env.GetString("SERVICE_NAME", "voicebridge"),
		},
		OpenAI: OpenAIConfig{
			Endpoint:   strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_ENDPOINT")),
			APIVersion: strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_VERSION")),
			APIKey:     env.GetStringFromFile("AZURE_OPENAI_API_KEY", ""),
			Deployment: strings.TrimSpace(os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME")),
		},
		ACS: ACSConfig{
			ConnectionString: env.GetStringFromFile("ACS_CONNECTION_STRING", ""),
			CallbackHost:     strings.TrimRight(strings.TrimSpace(os.Getenv("CALLBACK_URI_HOST")), "/"),
		},
		Redis: RedisConfig{
			Addr:     env.GetString("REDIS_ADDR", ""),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
		},
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every required value is present
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"AZURE_OPENAI_API_ENDPOINT", c.OpenAI.Endpoint},
		{"AZURE_OPENAI_API_VERSION", c.OpenAI.APIVersion},
		{"AZURE_OPENAI_API_KEY", c.OpenAI.APIKey},
		{"AZURE_OPENAI_DEPLOYMENT_NAME", c.OpenAI.Deployment},
		{"ACS_CONNECTION_STRING", c.ACS.ConnectionString},
		{"CALLBACK_URI_HOST", c.ACS.CallbackHost},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("required environment variable %s is not set", r.name))
		}
	}

	if c.ACS.CallbackHost != "" &&
		!strings.HasPrefix(c.ACS.CallbackHost, "http://") &&
		!strings.HasPrefix(c.ACS.CallbackHost, "https://") {
		errs = append(errs, fmt.Errorf("CALLBACK_URI_HOST must be an absolute http(s) URL"))
	}

	return errors.Join(errs...)
}
