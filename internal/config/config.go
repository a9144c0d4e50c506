// Package config provides centralized configuration management for notekeep.
// Values come from built-in defaults, then an optional YAML file, then
// environment variables, then CLI flags; later sources win.
//
// The --no-s3 flag swaps the remote backup bucket for an in-memory one.
// Environment variables provide secrets and service configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/notekeep/internal/crypto"
	"github.com/kuitang/notekeep/internal/logutil"
)

const (
	// EnvConfigFile names the YAML file to load when --config is not given.
	EnvConfigFile = "NOTEKEEP_CONFIG"

	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	defaultRegion = "auto"
)

// Config holds all application configuration.
type Config struct {
	// Local storage
	DataDir      string `yaml:"data_dir"`      // DATA_DIR
	StoreBackend string `yaml:"store_backend"` // STORE_BACKEND: sqlite | memory
	MasterKey    string `yaml:"master_key"`    // MASTER_KEY: optional, 64 hex characters (32 bytes)

	LogLevel string `yaml:"log_level"` // LOG_LEVEL

	// Identity
	OIDCIssuer      string `yaml:"oidc_issuer"`       // OIDC_ISSUER
	OIDCUserInfoURL string `yaml:"oidc_userinfo_url"` // OIDC_USERINFO_URL: skips discovery when set

	// Remote backup
	EnableRemoteBackup bool          `yaml:"enable_remote_backup"` // ENABLE_REMOTE_BACKUP
	NoS3               bool          `yaml:"no_s3"`                // --no-s3
	BackupPrefix       string        `yaml:"backup_prefix"`        // BACKUP_PREFIX
	BackupPushInterval time.Duration `yaml:"backup_push_interval"` // BACKUP_PUSH_INTERVAL

	// S3-compatible storage
	AWSEndpointS3      string `yaml:"aws_endpoint_url_s3"`   // AWS_ENDPOINT_URL_S3
	AWSRegion          string `yaml:"aws_region"`            // AWS_REGION
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`     // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"` // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string `yaml:"bucket_name"`           // BUCKET_NAME
}

// Flags carries CLI overrides. Zero values mean "not given".
type Flags struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
	NoS3       bool
	Memory     bool
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DataDir:            "./data",
		StoreBackend:       StoreSQLite,
		LogLevel:           "info",
		OIDCIssuer:         "https://accounts.google.com",
		BackupPrefix:       "notekeep",
		BackupPushInterval: 2 * time.Second,
		AWSRegion:          defaultRegion,
	}
}

// LoadConfig builds the configuration from defaults, the YAML file,
// environment variables and flags, then validates it.
func LoadConfig(flags Flags) (*Config, error) {
	cfg := Defaults()

	path := flags.ConfigPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays the YAML file at path. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %q does not exist", path)
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	setString(lookup, "DATA_DIR", &c.DataDir)
	setString(lookup, "STORE_BACKEND", &c.StoreBackend)
	setString(lookup, "MASTER_KEY", &c.MasterKey)
	setString(lookup, "LOG_LEVEL", &c.LogLevel)
	setString(lookup, "OIDC_ISSUER", &c.OIDCIssuer)
	setString(lookup, "OIDC_USERINFO_URL", &c.OIDCUserInfoURL)
	setBool(lookup, "ENABLE_REMOTE_BACKUP", &c.EnableRemoteBackup)
	setString(lookup, "BACKUP_PREFIX", &c.BackupPrefix)
	setDuration(lookup, "BACKUP_PUSH_INTERVAL", &c.BackupPushInterval)

	// S3 storage uses the standard AWS_ variable names
	setString(lookup, "AWS_ENDPOINT_URL_S3", &c.AWSEndpointS3)
	setString(lookup, "AWS_REGION", &c.AWSRegion)
	setString(lookup, "AWS_ACCESS_KEY_ID", &c.AWSAccessKeyID)
	setString(lookup, "AWS_SECRET_ACCESS_KEY", &c.AWSSecretAccessKey)
	setString(lookup, "BUCKET_NAME", &c.AWSBucketName)
}

func (c *Config) applyFlags(flags Flags) {
	if flags.DataDir != "" {
		c.DataDir = flags.DataDir
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.NoS3 {
		c.NoS3 = true
	}
	if flags.Memory {
		c.StoreBackend = StoreMemory
	}
}

// Validate checks that all configuration is present and consistent.
func (c *Config) Validate() error {
	var errs []string

	switch c.StoreBackend {
	case StoreSQLite:
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, "DATA_DIR is required for the sqlite store")
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be %q or %q, got %q", StoreSQLite, StoreMemory, c.StoreBackend))
	}

	// MasterKey: optional, but when set it must decode to a full key
	if c.MasterKey != "" {
		if _, err := crypto.ParseMasterKey(c.MasterKey); err != nil {
			errs = append(errs, "MASTER_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}

	if c.OIDCIssuer != "" && !isHTTPURL(c.OIDCIssuer) {
		errs = append(errs, "OIDC_ISSUER must be an http(s) URL")
	}
	if c.OIDCUserInfoURL != "" && !isHTTPURL(c.OIDCUserInfoURL) {
		errs = append(errs, "OIDC_USERINFO_URL must be an http(s) URL")
	}

	if c.BackupPushInterval < 0 {
		errs = append(errs, "BACKUP_PUSH_INTERVAL must not be negative")
	}

	// S3: require a bucket unless --no-s3
	if c.EnableRemoteBackup && !c.NoS3 {
		if c.AWSBucketName == "" {
			errs = append(errs, "BUCKET_NAME is required for remote backup (set env var or use --no-s3)")
		}
		if c.AWSEndpointS3 != "" && !isHTTPURL(c.AWSEndpointS3) {
			errs = append(errs, "AWS_ENDPOINT_URL_S3 must be an http(s) URL")
		}
		if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
			errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// MasterKeyBytes decodes MasterKey. It returns nil when no key is configured.
func (c *Config) MasterKeyBytes() ([]byte, error) {
	if c.MasterKey == "" {
		return nil, nil
	}
	return crypto.ParseMasterKey(c.MasterKey)
}

// LogSummary logs the effective configuration with secrets redacted.
func (c *Config) LogSummary(log *slog.Logger) {
	fields := map[string]string{
		"data_dir":              c.DataDir,
		"store_backend":         c.StoreBackend,
		"master_key":            c.MasterKey,
		"log_level":             c.LogLevel,
		"oidc_issuer":           c.OIDCIssuer,
		"oidc_userinfo_url":     c.OIDCUserInfoURL,
		"enable_remote_backup":  strconv.FormatBool(c.EnableRemoteBackup),
		"no_s3":                 strconv.FormatBool(c.NoS3),
		"backup_prefix":         c.BackupPrefix,
		"backup_push_interval":  c.BackupPushInterval.String(),
		"aws_endpoint_url_s3":   c.AWSEndpointS3,
		"aws_region":            c.AWSRegion,
		"aws_access_key_id":     c.AWSAccessKeyID,
		"aws_secret_access_key": c.AWSSecretAccessKey,
		"bucket_name":           c.AWSBucketName,
	}
	log.Debug("configuration loaded", "config", logutil.FormatFieldsForLog(fields))
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Helper functions for reading environment variables

func setString(lookup lookupFunc, key string, dst *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func setBool(lookup lookupFunc, key string, dst *bool) {
	value, ok := lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*dst = parsed
}

func setDuration(lookup lookupFunc, key string, dst *time.Duration) {
	value, ok := lookup(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*dst = parsed
}
