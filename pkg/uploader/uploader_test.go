package uploader

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetsync/pkg/checkpoint"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/models"
	"tweetsync/pkg/storage"
)

// fakeSink records every row and answers from a per-content table
type fakeSink struct {
	sent   []models.Row
	reject map[string]string
	onSend func(n int)
	closed bool
}

func (f *fakeSink) Send(ctx context.Context, row models.Row) (models.UploadStatus, string) {
	f.sent = append(f.sent, row)
	if f.onSend != nil {
		f.onSend(len(f.sent))
	}
	if detail, ok := f.reject[row.Content]; ok {
		return models.StatusRejected, detail
	}
	return models.StatusInserted, ""
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func writeRecordSet(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write([]string{"Name", "Timestamp", "Content"}))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

func sampleRows() [][]string {
	return [][]string{
		{"a", "2024-05-01T10:00:00.000Z", "first"},
		{"b", "not a date", "dropped"},
		{"c", "2024-05-01T11:00:00Z", "second"},
		{"d", "2024-05-01 12:00:00", "   "},
		{"e", "2024-05-02", "third"},
	}
}

func newTestUploader(t *testing.T, sink Sink, ledger bool) (*Uploader, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tweets")
	store, err := storage.NewManager(dir)
	require.NoError(t, err)

	opts := Options{Logger: logger.NewNopLogger()}
	if ledger {
		lm, err := checkpoint.NewManager(filepath.Join(t.TempDir(), "ledger.json"))
		require.NoError(t, err)
		opts.Ledger = lm
	}
	return New(sink, store, opts), dir
}

func TestSyncLatestWithNoRecordSets(t *testing.T) {
	sink := &fakeSink{}
	u, _ := newTestUploader(t, sink, true)

	report, err := u.SyncLatest(context.Background())
	require.NoError(t, err)
	assert.True(t, report.NothingToSync)
	assert.Zero(t, report.Attempted())
	assert.Empty(t, sink.sent)
	assert.NoError(t, report.Err())
}

func TestSyncSendsUsableRowsInOrder(t *testing.T) {
	sink := &fakeSink{reject: map[string]string{"second": "status 400: bad row"}}
	u, dir := newTestUploader(t, sink, false)
	writeRecordSet(t, dir, "2024-05-03_10-00-00_tweets_1-5_abcdef01.csv", sampleRows())

	var progress []int
	u.onOutcome = func(done, total int, _ models.UploadOutcome) {
		progress = append(progress, done)
		assert.Equal(t, 3, total)
	}

	report, err := u.SyncLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 2, report.Dropped)
	assert.False(t, report.Interrupted)
	assert.Equal(t, []int{1, 2, 3}, progress)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, "first", report.Outcomes[0].Row.Content)
	assert.Equal(t, models.StatusRejected, report.Outcomes[1].Status)
	assert.Equal(t, "status 400: bad row", report.Outcomes[1].Detail)
	assert.Equal(t, "third", report.Outcomes[2].Row.Content)

	err = report.Err()
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitRowsRejected, apperrors.ExitCode(err))
}

func TestSyncPicksNewestRecordSet(t *testing.T) {
	sink := &fakeSink{}
	u, dir := newTestUploader(t, sink, false)

	old := writeRecordSet(t, dir, "old.csv", [][]string{{"x", "2024-01-01", "old"}})
	writeRecordSet(t, dir, "new.csv", [][]string{{"y", "2024-02-01", "new"}})
	past := mustStat(t, old).ModTime().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	report, err := u.SyncLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new.csv", filepath.Base(report.Path))
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "new", sink.sent[0].Content)
}

func mustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestLedgerSkipsRowsAlreadyInserted(t *testing.T) {
	sink := &fakeSink{reject: map[string]string{"second": "boom"}}
	u, dir := newTestUploader(t, sink, true)
	path := writeRecordSet(t, dir, "set.csv", sampleRows())

	first, err := u.Sync(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 1, first.Rejected)

	sink.sent = nil
	delete(sink.reject, "second")

	second, err := u.Sync(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 1, second.Inserted)
	assert.Equal(t, 0, second.Rejected)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "second", sink.sent[0].Content)
	assert.NoError(t, second.Err())
}

func TestWithoutLedgerEveryRunResubmits(t *testing.T) {
	sink := &fakeSink{}
	u, dir := newTestUploader(t, sink, false)
	path := writeRecordSet(t, dir, "set.csv", sampleRows())

	for i := 0; i < 2; i++ {
		report, err := u.Sync(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Inserted)
		assert.Zero(t, report.Skipped)
	}
	assert.Len(t, sink.sent, 6)
}

func TestSyncStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &fakeSink{onSend: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	u, dir := newTestUploader(t, sink, false)
	path := writeRecordSet(t, dir, "set.csv", sampleRows())

	report, err := u.Sync(ctx, path)
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 1, report.Attempted())
	assert.Len(t, sink.sent, 1)
}

func TestSyncMissingFile(t *testing.T) {
	u, dir := newTestUploader(t, &fakeSink{}, false)

	_, err := u.Sync(context.Background(), filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitPersistence, apperrors.ExitCode(err))
}

func TestHeaderOnlyRecordSet(t *testing.T) {
	sink := &fakeSink{}
	u, dir := newTestUploader(t, sink, true)
	path := writeRecordSet(t, dir, "empty.csv", nil)

	report, err := u.Sync(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, report.NothingToSync)
	assert.Zero(t, report.Attempted())
	assert.Empty(t, sink.sent)
}
