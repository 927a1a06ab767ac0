package uploader

import (
	"context"
	"errors"
	"time"

	"tweetsync/pkg/checkpoint"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/models"
	"tweetsync/pkg/ratelimit"
	"tweetsync/pkg/storage"
)

// Report summarises one sync run
type Report struct {
	Path string
	// NothingToSync is set when the storage directory had no record set.
	NothingToSync bool
	// Interrupted is set when ctx was cancelled before every row was tried.
	Interrupted bool

	Inserted int
	Rejected int
	Skipped  int
	// Dropped counts rows that never reached the sink because their
	// timestamp or content was unusable.
	Dropped int

	// Outcomes follow file order.
	Outcomes []models.UploadOutcome
	Duration time.Duration
}

// Attempted is the number of rows with an outcome
func (r *Report) Attempted() int {
	return r.Inserted + r.Rejected + r.Skipped
}

// Err returns a sync_row error when any row was rejected
func (r *Report) Err() error {
	if r.Rejected == 0 {
		return nil
	}
	return apperrors.New(apperrors.ErrorTypeSyncRow, "%d of %d rows rejected by the remote store", r.Rejected, r.Attempted())
}

func (r *Report) add(o models.UploadOutcome) {
	switch o.Status {
	case models.StatusInserted:
		r.Inserted++
	case models.StatusSkipped:
		r.Skipped++
	default:
		r.Rejected++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Options tune an Uploader. The zero value sends unpaced with no ledger.
type Options struct {
	Limiter ratelimit.Limiter
	// Ledger enables dedup across runs; nil resubmits every row.
	Ledger *checkpoint.Manager
	Logger logger.Logger
	// OnOutcome is called after every row, in order.
	OnOutcome func(done, total int, outcome models.UploadOutcome)
}

// Uploader sends rows from local record sets to a Sink
type Uploader struct {
	sink      Sink
	store     *storage.Manager
	limiter   ratelimit.Limiter
	ledgers   *checkpoint.Manager
	log       logger.Logger
	onOutcome func(done, total int, outcome models.UploadOutcome)
}

// New creates an uploader reading from store and writing to sink
func New(sink Sink, store *storage.Manager, opts Options) *Uploader {
	u := &Uploader{
		sink:      sink,
		store:     store,
		limiter:   opts.Limiter,
		ledgers:   opts.Ledger,
		log:       opts.Logger,
		onOutcome: opts.OnOutcome,
	}
	if u.limiter == nil {
		u.limiter = ratelimit.Unlimited()
	}
	if u.log == nil {
		u.log = logger.GetLogger()
	}
	return u
}

// SyncLatest syncs the most recently modified record set. An empty
// storage directory yields a NothingToSync report and no error.
func (u *Uploader) SyncLatest(ctx context.Context) (*Report, error) {
	path, err := u.store.Latest()
	if errors.Is(err, storage.ErrNoRecordSets) {
		u.log.WithField("dir", u.store.Dir()).Info("Nothing to sync")
		return &Report{NothingToSync: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return u.Sync(ctx, path)
}

// Sync sends every usable row of path. Rejections never stop the run;
// only cancellation of ctx does. The returned error covers setup failures,
// use Report.Err for row rejections.
func (u *Uploader) Sync(ctx context.Context, path string) (*Report, error) {
	start := time.Now()
	report := &Report{Path: path}

	rows, dropped, err := storage.ReadRows(path)
	if err != nil {
		return nil, err
	}
	report.Dropped = dropped

	var ledger *checkpoint.Ledger
	if u.ledgers != nil {
		ledger, err = u.ledgers.Load()
		if err != nil {
			return nil, apperrors.Persistence(err, "failed to load sync ledger")
		}
	}

	logger.LogComponentStart("uploader", map[string]interface{}{
		"file":    path,
		"rows":    len(rows),
		"dropped": dropped,
		"ledger":  ledger != nil,
	})

	for i, row := range rows {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		outcome := u.syncRow(ctx, path, ledger, row)
		if outcome == nil {
			report.Interrupted = true
			break
		}

		report.add(*outcome)
		logger.LogUpload(row.Line, row.Timestamp, string(outcome.Status), outcome.Detail)
		if u.onOutcome != nil {
			u.onOutcome(i+1, len(rows), *outcome)
		}
	}

	report.Duration = time.Since(start)
	reason := "completed"
	if report.Interrupted {
		reason = "interrupted"
	}
	logger.LogComponentStop("uploader", reason)

	u.log.WithFields(map[string]interface{}{
		"file":        path,
		"inserted":    report.Inserted,
		"rejected":    report.Rejected,
		"skipped":     report.Skipped,
		"dropped":     report.Dropped,
		"interrupted": report.Interrupted,
		"duration_ms": report.Duration.Milliseconds(),
	}).Info("Sync finished")

	return report, nil
}

// syncRow returns nil when ctx was cancelled before the row could be sent
func (u *Uploader) syncRow(ctx context.Context, path string, ledger *checkpoint.Ledger, row models.Row) *models.UploadOutcome {
	var key string
	if ledger != nil {
		key = checkpoint.NaturalKey(row.Timestamp, row.Content)
		if ledger.Has(path, key) {
			return &models.UploadOutcome{Row: row, Status: models.StatusSkipped, Detail: "already synced"}
		}
	}

	if err := u.limiter.Wait(ctx); err != nil {
		return nil
	}

	status, detail := u.sink.Send(ctx, row)
	if status == models.StatusRejected && ctx.Err() != nil {
		return nil
	}

	if ledger != nil && (status == models.StatusInserted || status == models.StatusSkipped) {
		ledger.Mark(path, key)
		if err := u.ledgers.Save(ledger); err != nil {
			u.log.WithError(err).Warn("Failed to save sync ledger")
		}
	}

	return &models.UploadOutcome{Row: row, Status: status, Detail: detail}
}
