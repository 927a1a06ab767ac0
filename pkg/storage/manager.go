package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/models"
)

// ErrNoRecordSets is returned by Latest when the directory holds no record set
var ErrNoRecordSets = errors.New("no record sets found")

// fileTimeLayout prefixes every record-set name
const fileTimeLayout = "2006-01-02_15-04-05"

// Manager owns the record-set directory
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager creates the directory if needed
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Persistence(err, "failed to create storage directory %s", dir)
	}
	return &Manager{dir: dir, now: time.Now}, nil
}

// Dir returns the record-set directory
func (m *Manager) Dir() string {
	return m.dir
}

// FileName builds a record-set name for n posts collected at t
func FileName(t time.Time, n int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_tweets_1-%d_%s.csv", t.Format(fileTimeLayout), n, suffix)
}

// Write persists posts as a new record set and returns its path. The file is
// written under a hidden temporary name and then linked into place, so a
// reader never sees a partial file and an existing file is never replaced.
// Zero posts still produce a header-only file.
func (m *Manager) Write(posts []models.Post, includePosterDetails bool) (string, error) {
	final := filepath.Join(m.dir, FileName(m.now(), len(posts)))
	tmp := filepath.Join(m.dir, "."+filepath.Base(final)+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", apperrors.Persistence(err, "failed to create record set")
	}
	defer os.Remove(tmp)

	w := csv.NewWriter(f)
	if err := w.Write(Header(includePosterDetails)); err != nil {
		f.Close()
		return "", apperrors.Persistence(err, "failed to write header")
	}
	for i, p := range posts {
		if err := w.Write(Record(p, includePosterDetails)); err != nil {
			f.Close()
			return "", apperrors.Persistence(err, "failed to write post %d", i+1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", apperrors.Persistence(err, "failed to flush record set")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", apperrors.Persistence(err, "failed to sync record set")
	}
	if err := f.Close(); err != nil {
		return "", apperrors.Persistence(err, "failed to close record set")
	}

	// Link fails with EEXIST instead of overwriting
	if err := os.Link(tmp, final); err != nil {
		return "", apperrors.Persistence(err, "failed to publish record set %s", filepath.Base(final))
	}

	return final, nil
}

// Latest returns the most recently modified record set. Ties go to the
// lexically greatest name, which is also the newest by its timestamp prefix.
func (m *Manager) Latest() (string, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoRecordSets
	}
	if err != nil {
		return "", apperrors.Persistence(err, "failed to list %s", m.dir)
	}

	type candidate struct {
		name string
		mod  time.Time
	}
	var found []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{name: name, mod: info.ModTime()})
	}
	if len(found) == 0 {
		return "", ErrNoRecordSets
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].mod.Equal(found[j].mod) {
			return found[i].mod.After(found[j].mod)
		}
		return found[i].name > found[j].name
	})
	return filepath.Join(m.dir, found[0].name), nil
}
