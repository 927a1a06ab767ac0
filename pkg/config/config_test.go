package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// clearEnv blanks every variable LoadFromEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TWITTER_MAIL", "TWITTER_USERNAME", "TWITTER_PASSWORD", "HEADLESS",
		"TWITTER_TOTP_SECRET", "TWEETSYNC_USER_AGENT", "TWEETSYNC_STORAGE_DIR",
		"TWEETSYNC_DEFAULT_TWEETS", "TWEETSYNC_REMOTE_URL", "SUPABASE_URL",
		"TWEETSYNC_REMOTE_API_KEY", "SUPABASE_API_KEY", "TWEETSYNC_REMOTE_TABLE",
		"TWEETSYNC_REMOTE_SINK", "TWEETSYNC_REMOTE_DSN", "TWEETSYNC_REMOTE_LEDGER",
		"TWEETSYNC_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.Twitter.UserAgent)
	assert.Equal(t, "https://x.com", cfg.Twitter.BaseURL)

	assert.Equal(t, 50, cfg.Scrape.DefaultTweets)
	assert.Equal(t, 5, cfg.Scrape.MaxIdleScrolls)
	assert.Equal(t, 30*time.Second, cfg.Scrape.PageTimeout)

	assert.Equal(t, "./tweets", cfg.Storage.Directory)

	assert.Equal(t, SinkREST, cfg.Remote.Sink)
	assert.Equal(t, "twitterdata", cfg.Remote.Table)
	assert.True(t, cfg.Remote.Ledger)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWITTER_MAIL", "me@example.com")
	t.Setenv("TWITTER_USERNAME", "someone")
	t.Setenv("TWITTER_PASSWORD", "hunter2")
	t.Setenv("HEADLESS", "no")
	t.Setenv("TWEETSYNC_STORAGE_DIR", "/tmp/tweets")
	t.Setenv("TWEETSYNC_DEFAULT_TWEETS", "25")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_API_KEY", "anon-key")
	t.Setenv("TWEETSYNC_REMOTE_LEDGER", "false")
	t.Setenv("TWEETSYNC_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "me@example.com", cfg.Twitter.Mail)
	assert.Equal(t, "someone", cfg.Twitter.Username)
	assert.Equal(t, "hunter2", cfg.Twitter.Password)
	assert.Equal(t, "no", cfg.Twitter.Headless)
	assert.Equal(t, "/tmp/tweets", cfg.Storage.Directory)
	assert.Equal(t, 25, cfg.Scrape.DefaultTweets)
	assert.Equal(t, "https://abc.supabase.co", cfg.Remote.URL)
	assert.Equal(t, "anon-key", cfg.Remote.APIKey)
	assert.False(t, cfg.Remote.Ledger)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvPrefersTweetsyncRemoteVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://legacy.example")
	t.Setenv("TWEETSYNC_REMOTE_URL", "https://primary.example")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "https://primary.example", cfg.Remote.URL)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWEETSYNC_DEFAULT_TWEETS", "lots")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWEETSYNC_DEFAULT_TWEETS")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
twitter:
  username: fromfile
scrape:
  default_tweets: 10
  max_idle_scrolls: 2
remote:
  sink: postgres
  dsn: postgres://localhost/tweets
  table: posts
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "fromfile", cfg.Twitter.Username)
	assert.Equal(t, 10, cfg.Scrape.DefaultTweets)
	assert.Equal(t, 2, cfg.Scrape.MaxIdleScrolls)
	assert.Equal(t, SinkPostgres, cfg.Remote.Sink)
	assert.Equal(t, "posts", cfg.Remote.Table)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Untouched keys keep their defaults
	assert.Equal(t, "./tweets", cfg.Storage.Directory)
	assert.True(t, cfg.Remote.Ledger)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scrape: [unclosed"), 0644))

	cfg := DefaultConfig()
	err := cfg.LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "non-positive default tweets",
			modify:  func(c *Config) { c.Scrape.DefaultTweets = 0 },
			wantErr: "default tweets must be positive",
		},
		{
			name:    "empty storage directory",
			modify:  func(c *Config) { c.Storage.Directory = "" },
			wantErr: "storage directory is required",
		},
		{
			name:    "unknown sink",
			modify:  func(c *Config) { c.Remote.Sink = "kafka" },
			wantErr: `unknown remote sink "kafka"`,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRemoteConfigValidate(t *testing.T) {
	rest := DefaultConfig().Remote
	err := rest.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote URL is required")
	assert.Contains(t, err.Error(), "remote API key is required")

	rest.URL = "https://abc.supabase.co"
	rest.APIKey = "key"
	assert.NoError(t, rest.Validate())

	pg := DefaultConfig().Remote
	pg.Sink = SinkPostgres
	err = pg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote DSN is required")

	pg.DSN = "postgres://localhost/tweets"
	assert.NoError(t, pg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Remote.Table = "archive"
	cfg.Scrape.ScrollDelay = 3 * time.Second
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, "archive", loaded.Remote.Table)
	assert.Equal(t, 3*time.Second, loaded.Scrape.ScrollDelay)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"storage-dir": "/data/tweets",
		"log-level":   "error",
		"no-color":    true,
		"ledger":      false,
		"addr":        ":9090",
	})

	assert.Equal(t, "/data/tweets", cfg.Storage.Directory)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.True(t, cfg.Logging.NoColor)
	assert.False(t, cfg.Remote.Ledger)
	assert.Equal(t, ":9090", cfg.Dashboard.Addr)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  directory: /from/file\nlogging:\n  level: warn\n"), 0644))

	t.Setenv("TWEETSYNC_STORAGE_DIR", "/from/env")

	cfg, err := Load(path, map[string]interface{}{"log-level": "debug"})
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Storage.Directory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
