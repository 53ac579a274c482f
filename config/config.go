package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks configuration problems. They are fatal at startup.
var ErrConfig = errors.New("invalid configuration")

// Launch modes accepted by ReportPortal
const (
	ModeDefault = "DEFAULT"
	ModeDebug   = "DEBUG"
)

// Config represents the reporter configuration
type Config struct {
	// Endpoint is the ReportPortal base URL
	Endpoint string `yaml:"endpoint"`

	// Token is the API token of the reporting user
	Token string `yaml:"token"`

	// Project is the ReportPortal project name
	Project string `yaml:"project"`

	// Launch is the name of the launch
	Launch string `yaml:"launch"`

	// Description is attached to the launch
	Description string `yaml:"description"`

	// Mode is DEFAULT or DEBUG
	Mode string `yaml:"mode"`

	// Attributes are attached to the launch as key/value pairs
	Attributes map[string]string `yaml:"attributes"`

	// Timeout bounds every request to the server
	Timeout time.Duration `yaml:"timeout"`

	// LaunchIDFile is where the start phase stores the launch identifier
	LaunchIDFile string `yaml:"launch_id_file"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Launch:  "rpgo",
		Mode:    ModeDefault,
		Timeout: 30 * time.Second,
	}
}

// Load builds the configuration. Sources are applied in order, later ones
// winning: defaults, the YAML file at path (if path is not empty), then RP_*
// environment variables. A .env file in the working directory is loaded into
// the environment first without overriding variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env: %w", ErrConfig, err)
	}

	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read config file: %w", ErrConfig, err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		Endpoint     string            `yaml:"endpoint"`
		Token        string            `yaml:"token"`
		Project      string            `yaml:"project"`
		Launch       string            `yaml:"launch"`
		Description  string            `yaml:"description"`
		Mode         string            `yaml:"mode"`
		Attributes   map[string]string `yaml:"attributes"`
		Timeout      string            `yaml:"timeout"`
		LaunchIDFile string            `yaml:"launch_id_file"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return fmt.Errorf("%w: failed to parse config file %s: %w", ErrConfig, path, err)
	}

	// Apply non-zero values from file (merging with defaults)
	setString(&c.Endpoint, yamlCfg.Endpoint)
	setString(&c.Token, yamlCfg.Token)
	setString(&c.Project, yamlCfg.Project)
	setString(&c.Launch, yamlCfg.Launch)
	setString(&c.Description, yamlCfg.Description)
	setString(&c.Mode, yamlCfg.Mode)
	setString(&c.LaunchIDFile, yamlCfg.LaunchIDFile)
	if len(yamlCfg.Attributes) > 0 {
		c.Attributes = yamlCfg.Attributes
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return fmt.Errorf("%w: invalid timeout format %q: %w", ErrConfig, yamlCfg.Timeout, err)
		}
		c.Timeout = timeout
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Endpoint, os.Getenv("RP_ENDPOINT"))
	setString(&c.Token, os.Getenv("RP_TOKEN"))
	setString(&c.Project, os.Getenv("RP_PROJECT"))
	setString(&c.Launch, os.Getenv("RP_LAUNCH"))
	setString(&c.Description, os.Getenv("RP_DESCRIPTION"))
	setString(&c.Mode, os.Getenv("RP_MODE"))
	setString(&c.LaunchIDFile, os.Getenv("RP_LAUNCH_ID_FILE"))

	if v := os.Getenv("RP_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: invalid RP_TIMEOUT %q: %w", ErrConfig, v, err)
		}
		c.Timeout = timeout
	}

	if v := os.Getenv("RP_ATTRIBUTES"); v != "" {
		attrs, err := ParseAttributes(strings.Split(v, ","))
		if err != nil {
			return fmt.Errorf("%w: invalid RP_ATTRIBUTES: %w", ErrConfig, err)
		}
		c.SetAttributes(attrs)
	}
	return nil
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(endpoint, project, token, launch, launchIDFile *string) {
	if endpoint != nil {
		c.Endpoint = *endpoint
	}
	if project != nil {
		c.Project = *project
	}
	if token != nil {
		c.Token = *token
	}
	if launch != nil {
		c.Launch = *launch
	}
	if launchIDFile != nil {
		c.LaunchIDFile = *launchIDFile
	}
}

// SetAttributes adds attributes, replacing existing values for the same key.
func (c *Config) SetAttributes(attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	if c.Attributes == nil {
		c.Attributes = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		c.Attributes[k] = v
	}
}

// Validate checks the configuration. Server settings are only required when
// requests are actually sent.
func (c *Config) Validate(dryRun bool) error {
	c.Mode = strings.ToUpper(strings.TrimSpace(c.Mode))
	if c.Mode != ModeDefault && c.Mode != ModeDebug {
		return fmt.Errorf("%w: invalid mode %q, must be one of: %s, %s", ErrConfig, c.Mode, ModeDefault, ModeDebug)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0, got %v", ErrConfig, c.Timeout)
	}
	if strings.TrimSpace(c.Launch) == "" {
		return fmt.Errorf("%w: launch name cannot be empty", ErrConfig)
	}

	if dryRun {
		return nil
	}

	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if c.Project == "" {
		missing = append(missing, "project")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ParseAttributes parses key=value pairs.
func ParseAttributes(pairs []string) (map[string]string, error) {
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("attribute %q must be key=value", pair)
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
