// Package config loads the gate's YAML configuration. Missing files fall
// back to defaults; invalid YAML is an error. The raw bytes are hashed so
// audit entries can name the exact configuration a decision ran under.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a yaml-parsable time.Duration ("5s", "250ms").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Backends configures the structured membership/visibility data sources.
type Backends struct {
	// DirectoryURL is the base URL of the site-local group directory API.
	DirectoryURL string `yaml:"directory_url"`
	// GraphURL is the base URL of the federated group service API.
	GraphURL string `yaml:"graph_url"`
	// Timeout bounds each backend call.
	Timeout Duration `yaml:"timeout"`
	// Retries is the transient-failure retry count per HTTP call.
	Retries uint `yaml:"retries"`
}

// Poll bounds the rendered-names fallback window: the member list may paint
// asynchronously after page load.
type Poll struct {
	Attempts uint     `yaml:"attempts"`
	Interval Duration `yaml:"interval"`
}

// Config holds all gate parameters.
type Config struct {
	// SafeURL is the redirect target for denied principals.
	SafeURL string `yaml:"safe_url"`
	// SensitiveSegments are case-insensitive address substrings marking a
	// site as protected.
	SensitiveSegments []string `yaml:"sensitive_segments"`
	// MetadataMarker marks a resource as protected when present in its
	// declared description.
	MetadataMarker string `yaml:"metadata_marker"`
	// ExemptPaths are administrative paths that always allow, evaluated
	// before anything else.
	ExemptPaths []string `yaml:"exempt_paths"`
	// Roles are the directory role groups unioned into the authorized set.
	Roles []string `yaml:"roles"`

	Backends Backends `yaml:"backends"`
	Poll     Poll     `yaml:"poll"`

	// Listen is the decision service bind address.
	Listen string `yaml:"listen"`
	// AuditPath is the decision audit log location. Empty disables auditing.
	AuditPath string `yaml:"audit_path"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		SafeURL:           "https://example.sharepoint.com",
		SensitiveSegments: []string{"/teams/b"},
		MetadataMarker:    "protected b",
		ExemptPaths: []string{
			"/sites/appcatalog/",
			"/_layouts/15/tenantappcatalog.aspx",
		},
		Roles: []string{"Owners", "Members", "Visitors"},
		Backends: Backends{
			Timeout: Duration(5 * time.Second),
			Retries: 2,
		},
		Poll: Poll{
			Attempts: 10,
			Interval: Duration(500 * time.Millisecond),
		},
		Listen: "127.0.0.1:8472",
	}
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.sitegate/config.yaml. Missing file returns defaults.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw YAML
// bytes. Defaults (no file) hash the empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		path = filepath.Join(home, ".sitegate", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

// Write marshals cfg to path, creating parent directories.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
