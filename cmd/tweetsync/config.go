package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tweetsync/pkg/config"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tweetsync configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TWEETSYNC_*, TWITTER_*, HEADLESS, SUPABASE_*)
  - .env files (./.env and ~/.tweetsync.env)
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.tweetsync.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging every source. Secrets are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# tweetsync configuration file
#
# Environment variables override these values, for example
# TWITTER_USERNAME, TWITTER_PASSWORD, HEADLESS, SUPABASE_URL, SUPABASE_API_KEY
# or TWEETSYNC_STORAGE_DIR.

# Account defaults. Prefer 'tweetsync auth login' over storing a password here.
twitter:
  username: ""
  password: ""
  mail: ""
  # yes or no; empty runs headless
  headless: ""
  # base32 secret of your authenticator app, for two-factor logins
  totp_secret: ""

scrape:
  # posts collected when neither --tweets nor --no_tweets_limit is given
  default_tweets: 50
  scroll_delay: 1.5s
  # stop after this many scrolls without a new post
  max_idle_scrolls: 5
  page_timeout: 30s
  navigate_attempts: 3
  progress_interval: 10

storage:
  directory: "./tweets"

remote:
  # rest (Supabase/PostgREST) or postgres
  sink: rest
  url: ""
  api_key: ""
  table: twitterdata
  # used by the postgres sink
  dsn: ""
  timeout: 15s
  requests_per_second: 5
  # skip rows already confirmed by an earlier sync
  ledger: true
  ledger_path: ""

dashboard:
  addr: ":8080"
  sentiment_file: ""
  emotion_file: ""
  cluster_file: ""

logging:
  # debug, info, warn, error, disabled
  level: info
  file: ""
  no_color: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".tweetsync.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return apperrors.Configuration("configuration file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return apperrors.Persistence(err, "failed to create configuration file")
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintInfo("Next", "edit it, then run 'tweetsync config validate'")
	return nil
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

// redacted returns a copy of cfg safe to print
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	out.Twitter.Password = mask(cfg.Twitter.Password)
	out.Twitter.TOTPSecret = mask(cfg.Twitter.TOTPSecret)
	out.Remote.APIKey = mask(cfg.Remote.APIKey)
	out.Remote.DSN = mask(cfg.Remote.DSN)
	return out
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, nil)
	if err != nil {
		return err
	}

	display := redacted(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, nil)
	if err != nil {
		return err
	}

	if err := cfg.Remote.Validate(); err != nil {
		ui.PrintWarning("Remote store incomplete, 'tweetsync sync' will fail", err)
	}
	if cfg.Twitter.Username == "" {
		ui.PrintWarning("No default username, scrape will use a stored login or prompt")
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Storage directory", cfg.Storage.Directory)
	ui.PrintInfo("Remote sink", cfg.Remote.Sink)
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
