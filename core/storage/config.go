package storage

import (
	"strings"
	"time"
)

// Config holds configuration for the bucket archives are published to.
type Config struct {
	// Endpoint is host:port of the S3-compatible service. An http:// or
	// https:// scheme is accepted; https implies UseSSL.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket archives are published to.
	Bucket string `mapstructure:"bucket" default:"cards"`
	// Prefix is prepended to every published object name.
	Prefix string `mapstructure:"prefix" default:"archives/"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds bounds connection setup and the first response byte.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// HostPort returns the endpoint without scheme and whether TLS is used.
func (c Config) HostPort() (string, bool) {
	switch {
	case strings.HasPrefix(c.Endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(c.Endpoint, "https://"), "/"), true
	case strings.HasPrefix(c.Endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(c.Endpoint, "http://"), "/"), c.UseSSL
	default:
		return strings.TrimSuffix(c.Endpoint, "/"), c.UseSSL
	}
}

// Timeout returns the connection timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
