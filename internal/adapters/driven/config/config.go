// Package config loads driveroute configuration from a TOML file with
// DRIVEROUTE_ environment overrides, and writes default files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "driveroute.toml"

// EnvPrefix prefixes environment overrides, e.g. DRIVEROUTE_SERVER_ADDR.
const EnvPrefix = "DRIVEROUTE"

// State store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Drive      DriveConfig      `mapstructure:"drive"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Router     RouterConfig     `mapstructure:"router"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	State      StateConfig      `mapstructure:"state"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`

	// path is the file the values came from, empty if none was read.
	path     string
	settings map[string]any
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	PublicURL    string `mapstructure:"public_url"`
	CallbackPath string `mapstructure:"callback_path"`
	RoutePrefix  string `mapstructure:"route_prefix"`
}

// DriveConfig configures the Drive connection.
type DriveConfig struct {
	WatchFolderID     string  `mapstructure:"watch_folder_id"`
	ParentFolderID    string  `mapstructure:"parent_folder_id"`
	ClientSecretFile  string  `mapstructure:"client_secret_file"`
	TokenFile         string  `mapstructure:"token_file"`
	PageSize          int64   `mapstructure:"page_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CatalogConfig locates the label catalog.
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// RouterConfig tunes routing decisions.
type RouterConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	CatchAllLabel       string  `mapstructure:"catch_all_label"`
}

// ClassifierConfig configures the model classifier.
// An empty APIKey disables the model and leaves the keyword heuristic.
type ClassifierConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxChars    int           `mapstructure:"max_chars"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StateConfig selects the durable state backend.
type StateConfig struct {
	Driver string `mapstructure:"driver"`
	// DSN is the Postgres connection string, or the SQLite data directory.
	DSN string `mapstructure:"dsn"`
}

// WorkerConfig sizes the drain queue.
type WorkerConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// Load reads path (or DefaultPath when empty) and applies environment
// overrides. A missing file is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	cfg := &Config{}
	v.SetConfigFile(path)
	switch err := v.ReadInConfig(); {
	case err == nil:
		cfg.path = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults and environment only.
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: config file %s not found", domain.ErrConfig, path)
	default:
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", domain.ErrConfig, err)
	}
	cfg.settings = v.AllSettings()
	cfg.resolvePaths()
	return cfg, nil
}

// Path returns the file the configuration was read from, or "".
func (c *Config) Path() string {
	return c.path
}

// resolvePaths makes relative file settings relative to the config file.
func (c *Config) resolvePaths() {
	if c.path == "" {
		return
	}
	dir := filepath.Dir(c.path)
	for _, p := range []*string{&c.Drive.ClientSecretFile, &c.Drive.TokenFile, &c.Catalog.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks settings every command needs.
func (c *Config) Validate() error {
	var problems []string

	if c.Drive.ParentFolderID == "" {
		problems = append(problems, "drive.parent_folder_id is required")
	}
	if c.Drive.PageSize < 1 || c.Drive.PageSize > 1000 {
		problems = append(problems, "drive.page_size must be between 1 and 1000")
	}
	if c.Drive.RequestsPerSecond <= 0 || c.Drive.Burst < 1 {
		problems = append(problems, "drive.requests_per_second and drive.burst must be positive")
	}
	switch strings.ToLower(filepath.Ext(c.Catalog.Path)) {
	case ".csv", ".yaml", ".yml":
	default:
		problems = append(problems, "catalog.path must end in .csv, .yaml or .yml")
	}
	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		problems = append(problems, "router.confidence_threshold must be within [0, 1]")
	}
	if strings.TrimSpace(c.Router.CatchAllLabel) == "" {
		problems = append(problems, "router.catch_all_label is required")
	}
	if c.Classifier.Temperature < 0 || c.Classifier.Temperature > 2 {
		problems = append(problems, "classifier.temperature must be within [0, 2]")
	}
	if c.Classifier.MaxChars < 1 {
		problems = append(problems, "classifier.max_chars must be positive")
	}
	if c.Classifier.Timeout <= 0 {
		problems = append(problems, "classifier.timeout must be positive")
	}
	switch c.State.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.State.DSN == "" {
			problems = append(problems, "state.dsn is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("state.driver %q is not one of sqlite, postgres, memory", c.State.Driver))
	}
	if c.Worker.QueueSize < 1 {
		problems = append(problems, "worker.queue_size must be at least 1")
	}

	return joinProblems(problems)
}

// ValidateServe additionally checks what receiving notifications needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var problems []string
	if c.Drive.WatchFolderID == "" {
		problems = append(problems, "drive.watch_folder_id is required")
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if !strings.HasPrefix(c.Server.CallbackPath, "/") {
		problems = append(problems, "server.callback_path must start with /")
	}
	if c.Server.RoutePrefix != "" && !strings.HasPrefix(c.Server.RoutePrefix, "/") {
		problems = append(problems, "server.route_prefix must start with /")
	}
	u, err := url.Parse(c.Server.PublicURL)
	if c.Server.PublicURL == "" || err != nil || u.Scheme != "https" || u.Host == "" {
		problems = append(problems, "server.public_url must be an https URL")
	}

	return joinProblems(problems)
}

// NotificationAddress is the public URL the provider posts notifications to.
func (c *Config) NotificationAddress() string {
	return strings.TrimRight(c.Server.PublicURL, "/") + c.Server.CallbackPath
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrConfig, strings.Join(problems, "; "))
}
