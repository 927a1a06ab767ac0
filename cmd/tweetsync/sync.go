package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tweetsync/pkg/checkpoint"
	"tweetsync/pkg/config"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/models"
	"tweetsync/pkg/ratelimit"
	"tweetsync/pkg/storage"
	"tweetsync/pkg/ui"
	"tweetsync/pkg/uploader"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload the latest record set to the remote table",
	Long: `Upload every usable row (Timestamp and Content) of the most recently
modified record set, or of --file, to the remote store.

Rows already confirmed by an earlier run are skipped using the local sync
ledger. Use --resubmit to send every row again.

Exit status is 5 when at least one row was rejected by the remote store.`,
	Example: `  tweetsync sync
  tweetsync sync --file tweets/2024-05-13_09-30-00_tweets_1-50_ab12cd34.csv
  TWEETSYNC_REMOTE_SINK=postgres TWEETSYNC_REMOTE_DSN=postgres://... tweetsync sync`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("file", "", "record set to upload instead of the latest one")
	syncCmd.Flags().Bool("resubmit", false, "ignore the sync ledger and send every row")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if resubmit, _ := cmd.Flags().GetBool("resubmit"); resubmit {
		extra["ledger"] = false
	}
	cfg, err := setup(cmd, extra)
	if err != nil {
		return err
	}
	if err := cfg.Remote.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "remote store is not configured")
	}

	store, err := storage.NewManager(cfg.Storage.Directory)
	if err != nil {
		return err
	}

	sink, err := uploader.NewSink(cmd.Context(), cfg.Remote)
	if err != nil {
		return err
	}
	defer sink.Close()

	up, progress, err := newUploader(cfg, sink, store)
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	var report *uploader.Report
	if file != "" {
		report, err = up.Sync(cmd.Context(), file)
	} else {
		report, err = up.SyncLatest(cmd.Context())
	}
	progress.finish()
	if err != nil {
		return err
	}

	return printReport(report)
}

// lazyProgress creates the progress line once the row count is known
type lazyProgress struct {
	line *ui.Progress
}

func (p *lazyProgress) update(done, total int) {
	if p.line == nil {
		p.line = ui.NewProgress("sync", total)
	}
	p.line.Update(done)
}

func (p *lazyProgress) finish() {
	if p.line != nil {
		p.line.Finish()
	}
}

func newUploader(cfg *config.Config, sink uploader.Sink, store *storage.Manager) (*uploader.Uploader, *lazyProgress, error) {
	opts := uploader.Options{
		Limiter: ratelimit.PerSecond(cfg.Remote.RequestsPerSecond),
		Logger:  logger.GetLogger(),
	}
	if cfg.Remote.Ledger {
		ledger, err := checkpoint.NewManager(cfg.Remote.LedgerPath)
		if err != nil {
			return nil, nil, apperrors.Persistence(err, "failed to open sync ledger")
		}
		opts.Ledger = ledger
	}

	progress := &lazyProgress{}
	opts.OnOutcome = func(done, total int, _ models.UploadOutcome) {
		progress.update(done, total)
	}
	return uploader.New(sink, store, opts), progress, nil
}

func printReport(report *uploader.Report) error {
	notifier := ui.NewNotifier(notify)
	if report.NothingToSync {
		notifier.SendNotification("Nothing to sync", "no record sets found")
		return nil
	}

	ui.PrintInfo("Record set", report.Path)
	ui.PrintInfo("Inserted", fmt.Sprint(report.Inserted))
	ui.PrintInfo("Skipped", fmt.Sprint(report.Skipped))
	ui.PrintInfo("Rejected", fmt.Sprint(report.Rejected))
	if report.Dropped > 0 {
		ui.PrintInfo("Dropped", fmt.Sprint(report.Dropped))
	}
	for _, o := range report.Outcomes {
		if o.Status == models.StatusRejected {
			ui.PrintWarning(fmt.Sprintf("Row %d rejected", o.Row.Line), o.Detail)
		}
	}
	if report.Interrupted {
		ui.PrintWarning("Interrupted, remaining rows were not sent")
	}

	summary := fmt.Sprintf("%d inserted, %d skipped, %d rejected in %s",
		report.Inserted, report.Skipped, report.Rejected, report.Duration.Round(time.Millisecond))
	if err := report.Err(); err != nil {
		notifier.SendError("Sync finished with rejections", summary)
		return err
	}
	notifier.SendSuccess("Sync finished", summary)
	return nil
}
