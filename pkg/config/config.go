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

// Config holds all configuration options for tweetsync
type Config struct {
	// Twitter account defaults (flags still win over these)
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Scrape session settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Local record set storage
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Remote store used by the sync command
	Remote RemoteConfig `yaml:"remote" json:"remote"`

	// Dashboard inputs and listen address
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TwitterConfig holds account defaults sourced from the environment or config file
type TwitterConfig struct {
	Mail       string `yaml:"mail" json:"mail"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	Headless   string `yaml:"headless" json:"headless"`
	TOTPSecret string `yaml:"totp_secret" json:"totp_secret"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
}

// ScrapeConfig holds scrape session configuration
type ScrapeConfig struct {
	DefaultTweets    int           `yaml:"default_tweets" json:"default_tweets"`
	ScrollDelay      time.Duration `yaml:"scroll_delay" json:"scroll_delay"`
	MaxIdleScrolls   int           `yaml:"max_idle_scrolls" json:"max_idle_scrolls"`
	PageTimeout      time.Duration `yaml:"page_timeout" json:"page_timeout"`
	NavigateAttempts int           `yaml:"navigate_attempts" json:"navigate_attempts"`
	ProgressInterval int           `yaml:"progress_interval" json:"progress_interval"`
}

// StorageConfig holds record set storage configuration
type StorageConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// RemoteConfig holds remote sink configuration
type RemoteConfig struct {
	// Sink selects the uploader backend: "rest" or "postgres"
	Sink              string        `yaml:"sink" json:"sink"`
	URL               string        `yaml:"url" json:"url"`
	APIKey            string        `yaml:"api_key" json:"api_key"`
	Table             string        `yaml:"table" json:"table"`
	DSN               string        `yaml:"dsn" json:"dsn"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Ledger            bool          `yaml:"ledger" json:"ledger"`
	LedgerPath        string        `yaml:"ledger_path" json:"ledger_path"`
}

// DashboardConfig holds the precomputed analytics tables and HTTP address
type DashboardConfig struct {
	Addr          string `yaml:"addr" json:"addr"`
	SentimentFile string `yaml:"sentiment_file" json:"sentiment_file"`
	EmotionFile   string `yaml:"emotion_file" json:"emotion_file"`
	ClusterFile   string `yaml:"cluster_file" json:"cluster_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

const (
	SinkREST     = "rest"
	SinkPostgres = "postgres"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			BaseURL:   "https://x.com",
		},
		Scrape: ScrapeConfig{
			DefaultTweets:    50,
			ScrollDelay:      1500 * time.Millisecond,
			MaxIdleScrolls:   5,
			PageTimeout:      30 * time.Second,
			NavigateAttempts: 3,
			ProgressInterval: 10,
		},
		Storage: StorageConfig{
			Directory: "./tweets",
		},
		Remote: RemoteConfig{
			Sink:              SinkREST,
			Table:             "twitterdata",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
			Ledger:            true,
		},
		Dashboard: DashboardConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Account defaults keep the variable names the scraper has always used
	if mail := os.Getenv("TWITTER_MAIL"); mail != "" {
		c.Twitter.Mail = mail
	}
	if username := os.Getenv("TWITTER_USERNAME"); username != "" {
		c.Twitter.Username = username
	}
	if password := os.Getenv("TWITTER_PASSWORD"); password != "" {
		c.Twitter.Password = password
	}
	if headless := os.Getenv("HEADLESS"); headless != "" {
		c.Twitter.Headless = headless
	}
	if secret := os.Getenv("TWITTER_TOTP_SECRET"); secret != "" {
		c.Twitter.TOTPSecret = secret
	}
	if userAgent := os.Getenv("TWEETSYNC_USER_AGENT"); userAgent != "" {
		c.Twitter.UserAgent = userAgent
	}

	if dir := os.Getenv("TWEETSYNC_STORAGE_DIR"); dir != "" {
		c.Storage.Directory = dir
	}

	if tweets := os.Getenv("TWEETSYNC_DEFAULT_TWEETS"); tweets != "" {
		val, err := strconv.Atoi(tweets)
		if err != nil {
			return fmt.Errorf("invalid TWEETSYNC_DEFAULT_TWEETS: %w", err)
		}
		c.Scrape.DefaultTweets = val
	}

	// Remote store
	if url := firstEnv("TWEETSYNC_REMOTE_URL", "SUPABASE_URL"); url != "" {
		c.Remote.URL = url
	}
	if key := firstEnv("TWEETSYNC_REMOTE_API_KEY", "SUPABASE_API_KEY"); key != "" {
		c.Remote.APIKey = key
	}
	if table := os.Getenv("TWEETSYNC_REMOTE_TABLE"); table != "" {
		c.Remote.Table = table
	}
	if sink := os.Getenv("TWEETSYNC_REMOTE_SINK"); sink != "" {
		c.Remote.Sink = strings.ToLower(sink)
	}
	if dsn := os.Getenv("TWEETSYNC_REMOTE_DSN"); dsn != "" {
		c.Remote.DSN = dsn
	}
	if ledger := os.Getenv("TWEETSYNC_REMOTE_LEDGER"); ledger != "" {
		c.Remote.Ledger = strings.ToLower(ledger) == "true"
	}

	// Logging level
	if logLevel := os.Getenv("TWEETSYNC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
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
	locations := []string{
		".tweetsync.yaml",
		".tweetsync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tweetsync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tweetsync", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".tweetsync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Remote settings are checked
// separately by RemoteConfig.Validate since only the sync command needs them.
func (c *Config) Validate() error {
	var errs []error

	if c.Scrape.DefaultTweets <= 0 {
		errs = append(errs, errors.New("default tweets must be positive"))
	}
	if c.Scrape.MaxIdleScrolls <= 0 {
		errs = append(errs, errors.New("max idle scrolls must be positive"))
	}
	if c.Scrape.PageTimeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}
	if c.Scrape.NavigateAttempts <= 0 {
		errs = append(errs, errors.New("navigate attempts must be positive"))
	}

	if c.Storage.Directory == "" {
		errs = append(errs, errors.New("storage directory is required"))
	}

	if c.Remote.Sink != SinkREST && c.Remote.Sink != SinkPostgres {
		errs = append(errs, fmt.Errorf("unknown remote sink %q", c.Remote.Sink))
	}
	if c.Remote.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}

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

// Validate checks that the selected sink has everything it needs
func (r *RemoteConfig) Validate() error {
	var errs []error

	switch r.Sink {
	case SinkREST:
		if r.URL == "" {
			errs = append(errs, errors.New("remote URL is required (TWEETSYNC_REMOTE_URL or SUPABASE_URL)"))
		}
		if r.APIKey == "" {
			errs = append(errs, errors.New("remote API key is required (TWEETSYNC_REMOTE_API_KEY or SUPABASE_API_KEY)"))
		}
	case SinkPostgres:
		if r.DSN == "" {
			errs = append(errs, errors.New("remote DSN is required for the postgres sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown remote sink %q", r.Sink))
	}
	if r.Table == "" {
		errs = append(errs, errors.New("remote table is required"))
	}
	if r.Timeout <= 0 {
		errs = append(errs, errors.New("remote timeout must be positive"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

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
	if dir, ok := flags["storage-dir"].(string); ok && dir != "" {
		c.Storage.Directory = dir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.Logging.NoColor = true
	}
	if ledger, ok := flags["ledger"].(bool); ok {
		c.Remote.Ledger = ledger
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Dashboard.Addr = addr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tweetsync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
