package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the image discovery pipeline
type Config struct {
	// Static HTML/JSON extraction
	Static StaticConfig `yaml:"static" json:"static"`

	// Interactive gallery crawling
	Interactive InteractiveConfig `yaml:"interactive" json:"interactive"`

	// Headless browser launch settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Dimension filtering of gallery candidates
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Session cookie source
	Cookies CookiesConfig `yaml:"cookies" json:"cookies"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StaticConfig holds the static extractor settings
type StaticConfig struct {
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay      time.Duration `yaml:"base_delay" json:"base_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	PhotoClass     string        `yaml:"photo_class" json:"photo_class"`
	LazyAttribute  string        `yaml:"lazy_attribute" json:"lazy_attribute"`
	ZoomAttribute  string        `yaml:"zoom_attribute" json:"zoom_attribute"`
}

// InteractiveConfig holds the gallery crawler settings
type InteractiveConfig struct {
	MinDim          int           `yaml:"min_dim" json:"min_dim"`
	MaxDim          int           `yaml:"max_dim" json:"max_dim"`
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts"`
	MaxSteps        int           `yaml:"max_steps" json:"max_steps"`
	CDNMarker       string        `yaml:"cdn_marker" json:"cdn_marker"`
	GallerySelector string        `yaml:"gallery_selector" json:"gallery_selector"`
	NextSelector    string        `yaml:"next_selector" json:"next_selector"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
	WaitTimeout     time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	SettleDelay     time.Duration `yaml:"settle_delay" json:"settle_delay"`
	StepDelay       time.Duration `yaml:"step_delay" json:"step_delay"`
}

// BrowserConfig controls headless Chrome launch flags
type BrowserConfig struct {
	Headless       bool   `yaml:"headless" json:"headless"`
	NoSandbox      bool   `yaml:"no_sandbox" json:"no_sandbox"`
	ViewportWidth  int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" json:"viewport_height"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	ExecPath       string `yaml:"exec_path" json:"exec_path"`
}

// FilterConfig holds the dimension filter settings
type FilterConfig struct {
	PoolSize          int           `yaml:"pool_size" json:"pool_size"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// CookiesConfig points at the externally provisioned cookie blob
type CookiesConfig struct {
	File           string `yaml:"file" json:"file"`
	KeyringAccount string `yaml:"keyring_account" json:"keyring_account"`
	Vault          string `yaml:"vault" json:"vault"`
	// Passphrase unlocks Vault. Only read from the environment.
	Passphrase string `yaml:"-" json:"-"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Static: StaticConfig{
			MaxRetries:     3,
			BaseDelay:      1 * time.Second,
			RequestTimeout: 30 * time.Second,
			PhotoClass:     "ui-pdp-image",
			LazyAttribute:  "data-src",
			ZoomAttribute:  "data-zoom",
		},
		Interactive: InteractiveConfig{
			MinDim:          860,
			MaxDim:          980,
			MaxAttempts:     10,
			MaxSteps:        50,
			CDNMarker:       "scontent",
			GallerySelector: "img",
			NextSelector:    `div[aria-label="Siguiente"], div[aria-label="Next"]`,
			NavigateTimeout: 20 * time.Second,
			WaitTimeout:     10 * time.Second,
			SettleDelay:     3 * time.Second,
			StepDelay:       1 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:       true,
			NoSandbox:      true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Filter: FilterConfig{
			PoolSize:          100,
			RequestTimeout:    5 * time.Second,
			RequestsPerSecond: 0, // 0 means no limit
			CacheTTL:          0, // 0 disables the dimension cache
		},
		Cookies: CookiesConfig{
			File: "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	envDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	// Static extractor
	envInt("IMGHARVEST_MAX_RETRIES", &c.Static.MaxRetries)
	envDuration("IMGHARVEST_BASE_DELAY", &c.Static.BaseDelay)

	// Interactive crawler
	envInt("IMGHARVEST_MIN_DIM", &c.Interactive.MinDim)
	envInt("IMGHARVEST_MAX_DIM", &c.Interactive.MaxDim)
	envInt("IMGHARVEST_MAX_ATTEMPTS", &c.Interactive.MaxAttempts)

	// Browser
	if execPath := os.Getenv("IMGHARVEST_CHROME_PATH"); execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if headless := os.Getenv("IMGHARVEST_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}

	// Filter
	envInt("IMGHARVEST_POOL_SIZE", &c.Filter.PoolSize)
	envDuration("IMGHARVEST_FILTER_TIMEOUT", &c.Filter.RequestTimeout)

	// Cookies
	if cookieFile := os.Getenv("IMGHARVEST_COOKIES_FILE"); cookieFile != "" {
		c.Cookies.File = cookieFile
	}
	if account := os.Getenv("IMGHARVEST_COOKIES_KEYRING"); account != "" {
		c.Cookies.KeyringAccount = account
	}
	if vault := os.Getenv("IMGHARVEST_COOKIES_VAULT"); vault != "" {
		c.Cookies.Vault = vault
	}
	if pass := os.Getenv("IMGHARVEST_PASSPHRASE"); pass != "" {
		c.Cookies.Passphrase = pass
	}

	// Logging level
	if logLevel := os.Getenv("IMGHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgharvest.yaml",
		".imgharvest.yml",
		filepath.Join(home, ".config", "imgharvest", "config.yaml"),
		filepath.Join(home, ".config", "imgharvest", "config.yml"),
		filepath.Join(home, ".imgharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Static extractor
	if c.Static.MaxRetries <= 0 {
		errs = append(errs, errors.New("static max retries must be positive"))
	}
	if c.Static.BaseDelay < 0 {
		errs = append(errs, errors.New("static base delay cannot be negative"))
	}
	if c.Static.RequestTimeout <= 0 {
		errs = append(errs, errors.New("static request timeout must be positive"))
	}
	if c.Static.PhotoClass == "" {
		errs = append(errs, errors.New("static photo class is required"))
	}

	// Interactive crawler
	if c.Interactive.MinDim <= 0 || c.Interactive.MaxDim <= 0 {
		errs = append(errs, errors.New("dimension band bounds must be positive"))
	}
	if c.Interactive.MinDim > c.Interactive.MaxDim {
		errs = append(errs, errors.New("min dimension cannot exceed max dimension"))
	}
	if c.Interactive.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Interactive.MaxSteps < c.Interactive.MaxAttempts {
		errs = append(errs, errors.New("max steps cannot be lower than max attempts"))
	}
	if c.Interactive.CDNMarker == "" {
		errs = append(errs, errors.New("CDN marker is required"))
	}
	if c.Interactive.NextSelector == "" {
		errs = append(errs, errors.New("next selector is required"))
	}
	if c.Interactive.NavigateTimeout <= 0 || c.Interactive.WaitTimeout <= 0 {
		errs = append(errs, errors.New("browser timeouts must be positive"))
	}

	// Browser
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("viewport dimensions must be positive"))
	}

	// Filter
	if c.Filter.PoolSize <= 0 {
		errs = append(errs, errors.New("filter pool size must be positive"))
	}
	if c.Filter.RequestTimeout <= 0 {
		errs = append(errs, errors.New("filter request timeout must be positive"))
	}
	if c.Filter.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("filter requests per second cannot be negative"))
	}
	if c.Filter.CacheTTL < 0 {
		errs = append(errs, errors.New("filter cache TTL cannot be negative"))
	}

	// Cookies
	if c.Cookies.Vault != "" && c.Cookies.Passphrase == "" {
		errs = append(errs, errors.New("cookie vault requires IMGHARVEST_PASSPHRASE"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["max-retries"].(int); ok && v > 0 {
		c.Static.MaxRetries = v
	}
	if v, ok := flags["base-delay"].(time.Duration); ok && v >= 0 {
		c.Static.BaseDelay = v
	}
	if v, ok := flags["min-dim"].(int); ok && v > 0 {
		c.Interactive.MinDim = v
	}
	if v, ok := flags["max-dim"].(int); ok && v > 0 {
		c.Interactive.MaxDim = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Interactive.MaxAttempts = v
	}
	if v, ok := flags["cookies"].(string); ok && v != "" {
		c.Cookies.File = v
	}
	if v, ok := flags["cookies-keyring"].(string); ok && v != "" {
		c.Cookies.KeyringAccount = v
	}
	if v, ok := flags["cookies-vault"].(string); ok && v != "" {
		c.Cookies.Vault = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgharvest.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
