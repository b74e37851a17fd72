// Package config loads runtime settings from TRIPKEEP_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"port"`
	DBPath            string        `mapstructure:"db_path"`
	AssetsFolder      string        `mapstructure:"assets_folder"`
	AttachmentsFolder string        `mapstructure:"attachments_folder"`
	BackupsFolder     string        `mapstructure:"backups_folder"`
	AttachmentMaxSize int64         `mapstructure:"attachment_max_size"`
	BackupRetention   time.Duration `mapstructure:"backup_retention"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	WSOrigins         []string      `mapstructure:"ws_origins"`
	Offsite           OffsiteConfig `mapstructure:"offsite"`
	Provider          ProviderURLs  `mapstructure:"provider"`
}

// OffsiteConfig configures the optional S3 mirror of completed backups.
type OffsiteConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Passphrase string `mapstructure:"passphrase"`
}

type ProviderURLs struct {
	Places  string `mapstructure:"places_url"`
	Geocode string `mapstructure:"geocode_url"`
	Routes  string `mapstructure:"routes_url"`
}

var defaults = map[string]any{
	"port":                 "8080",
	"db_path":              "storage/trip.sqlite",
	"assets_folder":        "storage/assets",
	"attachments_folder":   "storage/attachments",
	"backups_folder":       "storage/backups",
	"attachment_max_size":  10 << 20,
	"backup_retention":     "0s",
	"jwt_secret":           "",
	"token_ttl":            "720h",
	"log_level":            "info",
	"log_format":           "text",
	"ws_origins":           []string{},
	"offsite.endpoint":     "",
	"offsite.bucket":       "",
	"offsite.region":       "us-east-1",
	"offsite.access_key":   "",
	"offsite.secret_key":   "",
	"offsite.passphrase":   "",
	"provider.places_url":  "",
	"provider.geocode_url": "",
	"provider.routes_url":  "",
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml in the working directory is used when present. Environment
// variables take precedence: offsite.bucket is TRIPKEEP_OFFSITE_BUCKET.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("TRIPKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required (TRIPKEEP_JWT_SECRET)")
	}
	if c.AttachmentMaxSize < 0 {
		return errors.New("attachment_max_size must not be negative")
	}
	return nil
}
