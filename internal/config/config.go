package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host         string `env:"DB_HOST"`
	Port         string `env:"DB_PORT" env-default:"5432"`
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Name         string `env:"DB_NAME"`
	SSLMode      string `env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	// Zero lifetimes keep idle connections open indefinitely.
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" env-default:"1m"`
	// ConnectTimeout bounds both the server-side connect and the startup ping.
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" env-default:"5s"`
}

// StorageConfig holds object store settings shared by the MinIO and S3 backends.
// Credentials are optional for the S3 driver, which then falls back to the default AWS chain.
type StorageConfig struct {
	Driver       string `env:"STORAGE_DRIVER" env-default:"minio"`
	Endpoint     string `env:"STORAGE_ENDPOINT"`
	Region       string `env:"STORAGE_REGION" env-default:"us-east-1"`
	AccessKey    string `env:"STORAGE_ACCESS_KEY"`
	SecretKey    string `env:"STORAGE_SECRET_KEY"`
	Bucket       string `env:"STORAGE_BUCKET"`
	UseSSL       bool   `env:"STORAGE_USE_SSL" env-default:"false"`
	UsePathStyle bool   `env:"STORAGE_USE_PATH_STYLE" env-default:"true"`
	CreateBucket bool   `env:"STORAGE_CREATE_BUCKET" env-default:"true"`
	KeyPrefix    string `env:"STORAGE_KEY_PREFIX" env-default:"photos"`
}

// PhotoConfig holds the tunables of the photo lifecycle.
type PhotoConfig struct {
	AllowedContentTypes []string      `env:"PHOTO_ALLOWED_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/gif,image/webp"`
	MaxUploadBytes      int64         `env:"PHOTO_MAX_UPLOAD_BYTES" env-default:"10485760"`
	URLValidity         time.Duration `env:"PHOTO_URL_VALIDITY" env-default:"48h"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port           string `env:"PORT" env-default:"8080"`
	Timezone       string `env:"APP_TIMEZONE" env-default:"UTC"`
	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	MetadataDriver string `env:"METADATA_DRIVER" env-default:"postgres"`
	Database       DatabaseConfig
	Storage        StorageConfig
	Photo          PhotoConfig
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverMinIO    = "minio"
	DriverS3       = "s3"
)

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves Timezone, defaulting to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks driver names and the values the lifecycle cannot run without.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.MetadataDriver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported METADATA_DRIVER %q", c.MetadataDriver))
	}

	switch c.Storage.Driver {
	case DriverMinIO, DriverS3:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Photo.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("PHOTO_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Photo.URLValidity <= 0 {
		errs = append(errs, errors.New("PHOTO_URL_VALIDITY must be positive"))
	}
	for i, ct := range c.Photo.AllowedContentTypes {
		c.Photo.AllowedContentTypes[i] = strings.ToLower(strings.TrimSpace(ct))
	}

	return errors.Join(errs...)
}
