package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"cardsync/core/database"
	"cardsync/core/logger"
	"cardsync/core/server"
	"cardsync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the holoDelta card database.
	Database database.Config `mapstructure:"database"`
	// Catalog locates the catalog file and the asset store.
	Catalog CatalogConfig `mapstructure:"catalog"`
	// Pipeline tunes the image pipeline.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Sources locates the card record providers.
	Sources SourcesConfig `mapstructure:"sources"`
}

// LoadConfig loads configuration from environment variables and the .env
// file in path, then validates it.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// A missing .env is not an error.
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings no run could work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.WebPQuality < 0 || c.Pipeline.WebPQuality > 100 {
		errs = append(errs, fmt.Errorf("pipeline.webp_quality must be within 0-100, got %d", c.Pipeline.WebPQuality))
	}
	if c.Pipeline.MaxWriteFailures < 1 {
		errs = append(errs, fmt.Errorf("pipeline.max_write_failures must be at least 1, got %d", c.Pipeline.MaxWriteFailures))
	}
	if c.Sources.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("sources.max_pages must be at least 1, got %d", c.Sources.MaxPages))
	}
	if strings.TrimSpace(c.Catalog.File) == "" {
		errs = append(errs, errors.New("catalog.file is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
