package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tweetsync/pkg/config"
	"tweetsync/pkg/dashboard"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/storage"
	"tweetsync/pkg/ui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Chart precomputed analytics tables",
	Long: `Render the sentiment, emotion and cluster tables produced by your
analysis step, plus daily post volume from the latest record set.

Without --out the dashboard is served over HTTP and every page load re-reads
the tables. With --out a single HTML file is written and the command exits.`,
	Example: `  tweetsync dashboard --sentiment sentiment.csv --emotion emotion.csv --cluster clusters.csv
  tweetsync dashboard --cluster clusters.csv --out dashboard.html`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	f := dashboardCmd.Flags()
	f.String("addr", "", "listen address (default :8080)")
	f.String("out", "", "write the dashboard to this file instead of serving it")
	f.String("sentiment", "", "sentiment table (Sentiment column)")
	f.String("emotion", "", "emotion table (TextID, Emotion, Score columns)")
	f.String("cluster", "", "cluster table (Cluster and Content columns)")

	rootCmd.AddCommand(dashboardCmd)
}

// dashboardSources overlays table flags on the configured paths
func dashboardSources(f *pflag.FlagSet, cfg config.DashboardConfig) dashboard.Sources {
	src := dashboard.Sources{
		SentimentFile: cfg.SentimentFile,
		EmotionFile:   cfg.EmotionFile,
		ClusterFile:   cfg.ClusterFile,
	}
	if v, _ := f.GetString("sentiment"); v != "" {
		src.SentimentFile = v
	}
	if v, _ := f.GetString("emotion"); v != "" {
		src.EmotionFile = v
	}
	if v, _ := f.GetString("cluster"); v != "" {
		src.ClusterFile = v
	}
	return src
}

func runDashboard(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		extra["addr"] = addr
	}
	cfg, err := setup(cmd, extra)
	if err != nil {
		return err
	}

	store, err := storage.NewManager(cfg.Storage.Directory)
	if err != nil {
		return err
	}
	srv := dashboard.NewServer(
		dashboard.StaticSources(dashboardSources(cmd.Flags(), cfg.Dashboard), store),
		logger.GetLogger(),
	)

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := srv.WriteFile(out); err != nil {
			return err
		}
		ui.PrintSuccess("Dashboard written to " + out)
		return nil
	}

	ui.PrintInfo("Dashboard", "http://"+displayAddr(cfg.Dashboard.Addr))
	return srv.Serve(cmd.Context(), cfg.Dashboard.Addr)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
