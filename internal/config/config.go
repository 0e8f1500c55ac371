/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables (and a .env file in the working directory) are read-only overrides.
// Secrets are never stored in the file; they live in the OS keychain.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type CatalogConfig struct {
	Source string `yaml:"source"` // "file" | "postgres"
	File   string `yaml:"file"`
	// DSN is a postgres URL; its password comes from the keyring when omitted.
	DSN string `yaml:"dsn"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type TemplatesConfig struct {
	Source    string   `yaml:"source"` // "dir" | "s3"
	Dir       string   `yaml:"dir"`
	S3        S3Config `yaml:"s3"`
	CacheSize int      `yaml:"cache_size"`
}

type ConvertConfig struct {
	Output   string `yaml:"output"`
	Column   int    `yaml:"column"`
	ProofDir string `yaml:"proof_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Catalog       CatalogConfig   `yaml:"catalog"`
	Templates     TemplatesConfig `yaml:"templates"`
	Convert       ConvertConfig   `yaml:"convert"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Catalog:       CatalogConfig{Source: "file", File: "catalog.yaml"},
		Templates:     TemplatesConfig{Source: "dir", Dir: "license-list", CacheSize: 256},
		Convert:       ConvertConfig{Output: "src", Column: 80},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "LXML_TELEMETRY_OPT_IN"
	EnvCatalogSource  = "LXML_CATALOG_SOURCE"
	EnvCatalogFile    = "LXML_CATALOG_FILE"
	EnvCatalogDSN     = "LXML_CATALOG_DSN"
	EnvTemplatesDir   = "LXML_TEMPLATES_DIR"
	EnvS3Endpoint     = "LXML_S3_ENDPOINT"
	EnvS3AccessKey    = "LXML_S3_ACCESS_KEY"
	EnvS3Bucket       = "LXML_S3_BUCKET"
	EnvOutput         = "LXML_OUTPUT"
	EnvColumn         = "LXML_COLUMN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "LXML_LOG_LEVEL"
	EnvLogFormat = "LXML_LOG_FORMAT"
	EnvLogSource = "LXML_LOG_SOURCE"
	EnvLogFile   = "LXML_LOG_FILE"
)

// Secret names in the OS keyring. Each can be overridden by its env var.
const (
	SecretCatalogPassword = "catalog_password"
	SecretS3SecretKey     = "s3_secret_key"
)

var secretEnv = map[string]string{
	SecretCatalogPassword: "LXML_CATALOG_PASSWORD",
	SecretS3SecretKey:     "LXML_S3_SECRET_KEY",
}

const keyringService = "licensexml"

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "licensexml")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "licensexml")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "licensexml")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file at path (the user config path when empty),
// applies defaults and merges environment overrides. A missing file is not
// an error; a malformed one is.
func Load(path string) (AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to path (the user config path when empty).
func Save(cfg AppConfig, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the settings the batch depends on.
func (c AppConfig) Validate() error {
	return validation.Errors{
		"catalog": validation.ValidateStruct(&c.Catalog,
			validation.Field(&c.Catalog.Source, validation.Required, validation.In("file", "postgres")),
			validation.Field(&c.Catalog.File, validation.When(c.Catalog.Source == "file", validation.Required)),
			validation.Field(&c.Catalog.DSN, validation.When(c.Catalog.Source == "postgres", validation.Required)),
		),
		"templates": validation.ValidateStruct(&c.Templates,
			validation.Field(&c.Templates.Source, validation.Required, validation.In("dir", "s3")),
			validation.Field(&c.Templates.Dir, validation.When(c.Templates.Source == "dir", validation.Required)),
			validation.Field(&c.Templates.CacheSize, validation.Min(0)),
		),
		"s3": validation.ValidateStruct(&c.Templates.S3,
			validation.Field(&c.Templates.S3.Endpoint, validation.When(c.Templates.Source == "s3", validation.Required)),
			validation.Field(&c.Templates.S3.AccessKey, validation.When(c.Templates.Source == "s3", validation.Required)),
			validation.Field(&c.Templates.S3.Bucket, validation.When(c.Templates.Source == "s3", validation.Required)),
		),
		"convert": validation.ValidateStruct(&c.Convert,
			validation.Field(&c.Convert.Output, validation.Required),
			// narrower budgets cannot keep tags and text apart
			validation.Field(&c.Convert.Column, validation.Required, validation.Min(20)),
		),
		"logging": validation.ValidateStruct(&c.Logging,
			validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
			validation.Field(&c.Logging.Format, validation.In("console", "json")),
		),
	}.Filter()
}

// Secret returns a secret from its env var or the OS keyring; an unknown
// secret yields "".
func Secret(name string) (string, error) {
	if env, ok := secretEnv[name]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	v, err := keyring.Get(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring %s: %w", name, err)
	}
	return v, nil
}

// SetSecret stores a secret in the OS keyring.
func SetSecret(name, value string) error {
	if _, ok := secretEnv[name]; !ok {
		return fmt.Errorf("unknown secret %q", name)
	}
	if value == "" {
		err := keyring.Delete(keyringService, name)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return keyring.Set(keyringService, name, value)
}

// SecretNames lists the secrets SetSecret accepts.
func SecretNames() []string { return []string{SecretCatalogPassword, SecretS3SecretKey} }

// CatalogDSN returns the catalog DSN with the keyring password filled in
// when the URL carries a user but no password.
func (c AppConfig) CatalogDSN() (string, error) {
	u, err := url.Parse(c.Catalog.DSN)
	if err != nil {
		return "", fmt.Errorf("catalog dsn: %w", err)
	}
	if u.User == nil {
		return c.Catalog.DSN, nil
	}
	if _, ok := u.User.Password(); ok {
		return c.Catalog.DSN, nil
	}
	pw, err := Secret(SecretCatalogPassword)
	if err != nil || pw == "" {
		return c.Catalog.DSN, err
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String(), nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// catalog
	if s := strings.ToLower(strings.TrimSpace(src.Catalog.Source)); s != "" {
		dst.Catalog.Source = s
	}
	if s := strings.TrimSpace(src.Catalog.File); s != "" {
		dst.Catalog.File = s
	}
	if s := strings.TrimSpace(src.Catalog.DSN); s != "" {
		dst.Catalog.DSN = s
	}
	// templates
	if s := strings.ToLower(strings.TrimSpace(src.Templates.Source)); s != "" {
		dst.Templates.Source = s
	}
	if s := strings.TrimSpace(src.Templates.Dir); s != "" {
		dst.Templates.Dir = s
	}
	if src.Templates.CacheSize != 0 {
		dst.Templates.CacheSize = src.Templates.CacheSize
	}
	if src.Templates.S3 != (S3Config{}) {
		dst.Templates.S3 = src.Templates.S3
	}
	// convert
	if s := strings.TrimSpace(src.Convert.Output); s != "" {
		dst.Convert.Output = s
	}
	if src.Convert.Column != 0 {
		dst.Convert.Column = src.Convert.Column
	}
	if s := strings.TrimSpace(src.Convert.ProofDir); s != "" {
		dst.Convert.ProofDir = s
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	str(EnvCatalogSource, &cfg.Catalog.Source)
	str(EnvCatalogFile, &cfg.Catalog.File)
	str(EnvCatalogDSN, &cfg.Catalog.DSN)
	if v := strings.TrimSpace(os.Getenv(EnvTemplatesDir)); v != "" {
		cfg.Templates.Source = "dir"
		cfg.Templates.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3Endpoint)); v != "" {
		cfg.Templates.Source = "s3"
		cfg.Templates.S3.Endpoint = v
	}
	str(EnvS3AccessKey, &cfg.Templates.S3.AccessKey)
	str(EnvS3Bucket, &cfg.Templates.S3.Bucket)
	str(EnvOutput, &cfg.Convert.Output)
	if v := strings.TrimSpace(os.Getenv(EnvColumn)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Convert.Column = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	str(EnvLogFile, &cfg.Logging.File)
}

var envByKey = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"catalog.source":           EnvCatalogSource,
	"catalog.file":             EnvCatalogFile,
	"catalog.dsn":              EnvCatalogDSN,
	"templates.dir":            EnvTemplatesDir,
	"templates.s3.endpoint":    EnvS3Endpoint,
	"templates.s3.access_key":  EnvS3AccessKey,
	"templates.s3.bucket":      EnvS3Bucket,
	"convert.output":           EnvOutput,
	"convert.column":           EnvColumn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// OverrideKeys lists the keys EnvOverrideFor knows about.
func OverrideKeys() []string {
	keys := make([]string, 0, len(envByKey))
	for k := range envByKey {
		keys = append(keys, k)
	}
	return keys
}
