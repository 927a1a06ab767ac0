package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "set.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadRowsDropsUncoercibleRows(t *testing.T) {
	path := writeFile(t, "\uFEFFName,Timestamp,Content\n"+
		"a,2024-05-01T10:00:00Z,first\n"+
		"b,not a date,second\n"+
		"c,2024-05-02 08:30:00,third\n"+
		"d,2024-05-03,   \n"+
		"e,,fifth\n"+
		"f,2024-05-04T01:02:03.5+02:00,sixth\n")

	rows, dropped, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Len(t, rows, 3)

	assert.Equal(t, "first", rows[0].Content)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), rows[1].Timestamp)
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, time.Date(2024, 5, 3, 23, 2, 3, 500_000_000, time.UTC), rows[2].Timestamp)
}

func TestReadRowsLinesFollowTheFile(t *testing.T) {
	path := writeFile(t, "Timestamp,Content\n"+
		"2024-05-01,\"spans\nthree\nlines\"\n"+
		"not a date,dropped\n"+
		"2024-05-03,after\n")

	rows, dropped, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "after", rows[1].Content)
	assert.Equal(t, 6, rows[1].Line)
}

func TestReadRowsColumnOrderDoesNotMatter(t *testing.T) {
	path := writeFile(t, "Content,Likes,Timestamp\nhello,4,2024-01-01\n")

	rows, dropped, err := ReadRows(path)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0].Content)
}

func TestReadRowsMissingColumns(t *testing.T) {
	path := writeFile(t, "Name,Content\nx,y\n")

	_, _, err := ReadRows(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Timestamp/Content columns")
}

func TestReadRowsEmptyAndHeaderOnly(t *testing.T) {
	rows, dropped, err := ReadRows(writeFile(t, ""))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, dropped)

	rows, dropped, err = ReadRows(writeFile(t, "Timestamp,Content\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, dropped)
}

func TestReadRowsShortRecord(t *testing.T) {
	path := writeFile(t, "Name,Timestamp,Content\nonly-name\nn,2024-01-01,ok\n")

	rows, dropped, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Len(t, rows, 1)
}

func TestParseTimestamp(t *testing.T) {
	_, ok := ParseTimestamp("  ")
	assert.False(t, ok)

	ts, ok := ParseTimestamp("2024-02-29T23:59:59")
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
}
