// Package config contains utilities for loading the service config.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

const (
	configFilePath     = "/data/heirloom.yaml"
	appSecretBytes     = 32
	appSecretFilePerms = 0o600
)

const (
	EnvProd = "PROD"
	EnvDev  = "DEV"
)

type AppSecret struct {
	Value   string `yaml:"value"`
	Path    string `yaml:"path" validate:"omitempty,filepath"`
	Version string `yaml:"version"`
}

type Database struct {
	Port     uint16 `yaml:"port"`
	Host     string `yaml:"host" validate:"omitempty,hostname_rfc1123"`
	Database string `yaml:"database" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password" validate:"required"`
}

// URL renders the pgx connection string.
func (d Database) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type ObjectStore struct {
	Endpoint   string `yaml:"endpoint" validate:"required"`
	AccessKey  string `yaml:"access_key" validate:"required"`
	SecretKey  string `yaml:"secret_key" validate:"required"`
	Bucket     string `yaml:"bucket"`
	PublicHost string `yaml:"public_host" validate:"omitempty,url"`
	UseSSL     bool   `yaml:"use_ssl"`
}

type Config struct {
	AppSecret   AppSecret   `yaml:"app_secret"`
	Database    Database    `yaml:"database"`
	ObjectStore ObjectStore `yaml:"object_store"`
	HostOrigin  string      `yaml:"host_origin" validate:"url"`
	Port        uint16      `yaml:"port"`
	Env         string      `yaml:"env" validate:"omitempty,oneof=DEV PROD"`
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

func newAppSecret() (string, error) {
	token := make([]byte, appSecretBytes)
	if _, err := rand.Reader.Read(token); err != nil {
		return "", fmt.Errorf("creating app secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(token), nil
}

// loadAppSecret resolves the secret value, generating and persisting one
// on first run when neither a value nor an existing file is present.
func loadAppSecret(config *Config) error {
	if config.AppSecret.Value != "" {
		return nil
	}

	var secret string
	if stat, err := os.Lstat(config.AppSecret.Path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking secret path: %w", err)
		}

		file, err := os.OpenFile(config.AppSecret.Path,
			os.O_WRONLY|os.O_CREATE|os.O_EXCL, appSecretFilePerms)
		if err != nil {
			return fmt.Errorf("creating secret file: %w", err)
		}
		defer func() { _ = file.Close() }()

		secret, err = newAppSecret()
		if err != nil {
			return fmt.Errorf("generating new app secret: %w", err)
		}
		if _, err := file.WriteString(secret); err != nil {
			return fmt.Errorf("writing secret file: %w", err)
		}
	} else {
		if stat.IsDir() {
			return fmt.Errorf("expected file, got directory at %q", config.AppSecret.Path)
		}
		data, err := os.ReadFile(config.AppSecret.Path)
		if err != nil {
			return fmt.Errorf("reading secret file: %w", err)
		}
		secret = string(data)
	}
	config.AppSecret.Value = secret
	return nil
}

func loadWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePort(raw, name string) (uint16, error) {
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (%q): %w", name, raw, err)
	}
	return uint16(port), nil
}

func loadConfigFromEnv() (Config, error) {
	conf := Config{
		HostOrigin: loadWithDefault("HOST_ORIGIN", "http://localhost:8080"),
		Env:        loadWithDefault("ENV", EnvDev),
		AppSecret: AppSecret{
			Value:   loadWithDefault("APP_SECRET", ""),
			Path:    loadWithDefault("APP_SECRET_PATH", "/data/secret"),
			Version: loadWithDefault("APP_SECRET_VERSION", "1"),
		},
		Database: Database{
			Host:     loadWithDefault("DATABASE_HOST", "localhost"),
			Database: loadWithDefault("DATABASE", ""),
			User:     loadWithDefault("DATABASE_USER", ""),
			Password: loadWithDefault("DATABASE_PASSWORD", ""),
		},
		ObjectStore: ObjectStore{
			Endpoint:   loadWithDefault("OBJECT_STORE_ENDPOINT", "localhost:9000"),
			AccessKey:  loadWithDefault("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey:  loadWithDefault("OBJECT_STORE_SECRET_KEY", ""),
			Bucket:     loadWithDefault("OBJECT_STORE_BUCKET", "heirloom-images"),
			PublicHost: loadWithDefault("OBJECT_STORE_PUBLIC_HOST", ""),
		},
	}

	var err error
	if conf.Port, err = parsePort(loadWithDefault("PORT", "8080"), "PORT"); err != nil {
		return conf, err
	}
	if conf.Database.Port, err = parsePort(loadWithDefault("DATABASE_PORT", "5432"), "DATABASE_PORT"); err != nil {
		return conf, err
	}
	if ssl := loadWithDefault("OBJECT_STORE_USE_SSL", "false"); ssl != "" {
		if conf.ObjectStore.UseSSL, err = strconv.ParseBool(ssl); err != nil {
			return conf, fmt.Errorf("invalid OBJECT_STORE_USE_SSL (%q): %w", ssl, err)
		}
	}
	if conf.ObjectStore.PublicHost == "" {
		scheme := "http"
		if conf.ObjectStore.UseSSL {
			scheme = "https"
		}
		conf.ObjectStore.PublicHost = scheme + "://" + conf.ObjectStore.Endpoint
	}

	return finish(conf)
}

func loadConfigFromFile(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(contents, &config); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.AppSecret.Path == "" {
		config.AppSecret.Path = "/data/secret"
	}
	if config.AppSecret.Version == "" {
		config.AppSecret.Version = "1"
	}
	if config.Env == "" {
		config.Env = EnvDev
	}
	if config.HostOrigin == "" {
		config.HostOrigin = "http://localhost:8080"
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Database.Host == "" {
		config.Database.Host = "localhost"
	}
	if config.Database.Port == 0 {
		config.Database.Port = 5432
	}
	if config.ObjectStore.Bucket == "" {
		config.ObjectStore.Bucket = "heirloom-images"
	}
	if config.ObjectStore.PublicHost == "" {
		scheme := "http"
		if config.ObjectStore.UseSSL {
			scheme = "https"
		}
		config.ObjectStore.PublicHost = scheme + "://" + config.ObjectStore.Endpoint
	}

	return finish(config)
}

func finish(config Config) (Config, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return Config{}, err
	}
	if err := loadAppSecret(&config); err != nil {
		return Config{}, fmt.Errorf("loading app secret: %w", err)
	}
	return config, nil
}

func configFileExists(path string) bool {
	f, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return !f.IsDir()
}

func Load() (Config, error) {
	if configFileExists(configFilePath) {
		return loadConfigFromFile(configFilePath)
	}
	return loadConfigFromEnv()
}
