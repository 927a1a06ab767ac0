package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tweetsync/pkg/config"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	notify     bool
	storageDir string
)

var rootCmd = &cobra.Command{
	Use:   "tweetsync",
	Short: "Collect X/Twitter posts, sync them to a remote store and chart the results",
	Long: `tweetsync drives a browser session to collect posts from a profile,
hashtag, search query or your bookmarks, saves every session as a CSV
record set, and uploads the newest record set to a remote table.

Commands:
  scrape     collect posts into a new record set
  sync       upload the latest record set
  dashboard  chart precomputed sentiment, emotion and cluster tables
  auth       manage stored X/Twitter logins
  config     create, show and validate configuration`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		ui.SetQuiet(quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.tweetsync.yaml or ~/.config/tweetsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when a run finishes")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage-dir", "", "record set directory (default ./tweets)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "invalid flags for %s", cmd.CommandPath())
	})

	rootCmd.SetVersionTemplate(`tweetsync {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags the user actually set
func globalFlags(flags *pflag.FlagSet) map[string]interface{} {
	m := make(map[string]interface{})
	if flags.Changed("storage-dir") {
		m["storage-dir"] = storageDir
	}
	switch {
	case flags.Changed("log-level"):
		m["log-level"] = logLevel
	case quiet:
		m["log-level"] = "error"
	}
	if noColor {
		m["no-color"] = true
	}
	return m
}

// setup loads configuration and initialises logging. extra holds command
// specific flag overrides.
func setup(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := globalFlags(cmd.Flags())
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "failed to load configuration")
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "failed to initialise logging")
	}
	return cfg, nil
}
