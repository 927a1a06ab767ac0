package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/models"
)

// timestampLayouts are tried in order when coercing the Timestamp column.
// Values without a zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp coerces a record-set timestamp to UTC
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ReadRows loads the Timestamp and Content columns of a record set. Rows
// whose timestamp cannot be coerced or whose content is blank are left out
// and only counted in dropped.
func ReadRows(path string) (rows []models.Row, dropped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, apperrors.Persistence(err, "failed to open record set")
	}
	defer f.Close()

	r := NewCSVReader(f)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, apperrors.Persistence(err, "failed to read header of %s", path)
	}

	tsCol, contentCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColTimestamp:
			tsCol = i
		case ColContent:
			contentCol = i
		}
	}
	if tsCol < 0 || contentCol < 0 {
		return nil, 0, apperrors.Persistence(nil, "%s has no %s/%s columns", path, ColTimestamp, ColContent)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				dropped++
				continue
			}
			return nil, dropped, apperrors.Persistence(err, "failed to read %s", path)
		}
		if tsCol >= len(rec) || contentCol >= len(rec) {
			dropped++
			continue
		}

		ts, ok := ParseTimestamp(rec[tsCol])
		content := rec[contentCol]
		if !ok || strings.TrimSpace(content) == "" {
			dropped++
			continue
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, models.Row{Line: line, Timestamp: ts, Content: content})
	}

	return rows, dropped, nil
}

// NewCSVReader returns a lenient reader for record sets and analytics
// tables: a leading UTF-8 BOM is skipped and rows may vary in width.
func NewCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	ch, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if ch != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
