// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	APIName          string `env:"OW_API_APP_NAME" default:"OpenWorkshop API"`
	APIVersion       string `env:"OW_API_APP_VERSION" default:"v2"`
	ServerPort       string `env:"OW_API_SERVER_PORT" default:"8042"`
	ServerLogLevel   string `env:"OW_API_SERVER_LOG_LEVEL" default:"info"`
	PostgresDsn      string `env:"OW_API_PG_DSN"`
	PostgresLogLevel string `env:"OW_API_PG_LOG_LEVEL" default:"warn"`
	RedisUrl         string `env:"OW_API_REDIS_URL" default:"redis://localhost:6379/0"`
	StorageUrl       string `env:"OW_API_STORAGE_URL" default:"http://127.0.0.1:7070"`
	StorageToken     string `env:"OW_API_STORAGE_TOKEN"`
	AccessCheckToken string `env:"OW_API_ACCESS_CHECK_TOKEN"`
	CookieDomain     string `env:"OW_API_COOKIE_DOMAIN" default:""`
	CookieSecure     string `env:"OW_API_COOKIE_SECURE" default:"true"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from the environment, with an optional .env file
func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value := os.Getenv(envTag)
		if value == "" {
			def, ok := field.Tag.Lookup("default")
			if !ok {
				return fmt.Errorf("env variable %s is required but not set", envTag)
			}
			value = def
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
